package app

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/poluce/clawdbot-feishu/internal/audio"
	"github.com/poluce/clawdbot-feishu/internal/config"
	"github.com/poluce/clawdbot-feishu/internal/daemon"
	"github.com/poluce/clawdbot-feishu/internal/decision"
	"github.com/poluce/clawdbot-feishu/internal/delivery"
	"github.com/poluce/clawdbot-feishu/internal/state"
	"github.com/poluce/clawdbot-feishu/internal/synthesis"
)

// services owns the config snapshot and the collaborators built from it.
// The daemon swaps the snapshot on reload; one-shot commands keep the first.
type services struct {
	snapshot atomic.Pointer[config.Config]
	store    *state.Store
	logger   *slog.Logger
}

func newServices(loaded config.Loaded, logger *slog.Logger) (*services, error) {
	s := &services{logger: logger}
	s.update(loaded)

	statePath, err := state.ResolvePath(config.ExpandUserPath(loaded.Config.State.Path))
	if err != nil {
		return nil, err
	}
	s.store = state.NewStore(statePath,
		state.WithLogger(logger),
		state.WithLocation(func() *time.Location { return s.config().Schedule.Location() }),
	)
	return s, nil
}

func (s *services) config() config.Config {
	return *s.snapshot.Load()
}

func (s *services) update(loaded config.Loaded) {
	cfg := loaded.Config
	s.snapshot.Store(&cfg)
}

func (s *services) pipeline(player audio.Player) *synthesis.Pipeline {
	cfg := s.config()
	return synthesis.New(cfg, synthesis.Options{
		Sender: delivery.NewCommandSender(cfg.Delivery, s.logger),
		Player: player,
		Logger: s.logger,
	})
}

func (s *services) controller() *daemon.Controller {
	engine := &decision.Engine{
		Config: s.config,
		Store:  s.store,
		Logger: s.logger,
	}
	send := func(ctx context.Context, text string, destination string) (delivery.Result, error) {
		return s.pipeline(audio.Player{}).SendAsVoice(ctx, text, destination)
	}
	available := func() bool {
		return s.pipeline(audio.Player{}).IsAvailable()
	}
	return daemon.NewController(s.logger, engine, s.store, send, available)
}
