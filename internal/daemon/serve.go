package daemon

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/poluce/clawdbot-feishu/internal/config"
	"github.com/poluce/clawdbot-feishu/internal/health"
	"github.com/poluce/clawdbot-feishu/internal/ipc"
	"golang.org/x/sync/errgroup"
)

// ServeOptions configures one daemon lifetime.
type ServeOptions struct {
	SocketPath string
	HealthAddr string
	// ConfigPath, when set, is watched and OnReload receives each reload.
	ConfigPath string
	OnReload   config.ChangeHandler
	Logger     *slog.Logger
}

// Serve owns the IPC socket, the health endpoint, and the config watcher
// until ctx is cancelled or one of them fails.
func Serve(ctx context.Context, ctrl *Controller, opts ServeOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	listener, err := ipc.Acquire(ctx, opts.SocketPath, 180*time.Millisecond, 8)
	if err != nil {
		return err
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(opts.SocketPath)
	}()

	var healthSrv *health.Server
	if addr := strings.TrimSpace(opts.HealthAddr); addr != "" {
		healthSrv, err = health.Listen(addr, ctrl.available, logger)
		if err != nil {
			return err
		}
	}

	var watcher *config.Watcher
	if strings.TrimSpace(opts.ConfigPath) != "" {
		watcher, err = config.NewWatcher(opts.ConfigPath, logger)
		if err != nil {
			logger.Warn("config watcher unavailable", "error", err.Error())
			watcher = nil
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return ipc.Serve(gctx, listener, ctrl)
	})

	if healthSrv != nil {
		g.Go(func() error {
			return healthSrv.Serve(gctx)
		})
	}

	if watcher != nil {
		watcher.OnChange(func(loaded config.Loaded) {
			logger.Info("config change picked up", "path", loaded.Path, "warnings", len(loaded.Warnings))
			if opts.OnReload != nil {
				opts.OnReload(loaded)
			}
		})
		if err := watcher.Start(); err != nil {
			logger.Warn("config watcher failed to start", "error", err.Error())
			watcher.Stop()
		} else {
			g.Go(func() error {
				<-gctx.Done()
				watcher.Stop()
				<-watcher.Done()
				return nil
			})
		}
	}

	logger.Info("daemon serving", "socket", opts.SocketPath, "health", opts.HealthAddr)
	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
