package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, handler Handler) (string, context.CancelFunc, <-chan error) {
	t.Helper()

	socketPath := filepath.Join(t.TempDir(), "voicereply.sock")
	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- Serve(ctx, listener, handler)
	}()
	return socketPath, cancel, serveDone
}

func TestSendRoundTrip(t *testing.T) {
	socketPath, cancel, serveDone := startServer(t, HandlerFunc(func(_ context.Context, req Request) Response {
		if req.Command != CommandDecide || req.Text != "你好" || req.UserMessage != "driving" {
			return Failure(errors.New("unexpected request"))
		}
		voice := true
		return Response{OK: true, Voice: &voice, Data: json.RawMessage(`{"score":0.8}`)}
	}))
	defer cancel()

	resp, err := Send(context.Background(), socketPath, Request{
		Command:     CommandDecide,
		Text:        "你好",
		UserMessage: "driving",
	}, 200*time.Millisecond)
	require.NoError(t, err)
	require.True(t, resp.OK)
	require.NotNil(t, resp.Voice)
	require.True(t, *resp.Voice)
	require.JSONEq(t, `{"score":0.8}`, string(resp.Data))

	cancel()
	require.NoError(t, <-serveDone)
}

func TestRequestOmitsUnusedFields(t *testing.T) {
	payload, err := json.Marshal(Request{Command: CommandMode, Mode: "voice", DurationMS: 60000})
	require.NoError(t, err)
	require.JSONEq(t, `{"command":"mode","mode":"voice","durationMs":60000}`, string(payload))
}

func TestSendDecodeResponseError(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "voicereply.sock")
	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, acceptErr := listener.Accept()
		if acceptErr != nil {
			return
		}
		defer conn.Close()

		reader := bufio.NewReader(conn)
		_, _ = reader.ReadBytes('\n')
		_, _ = conn.Write([]byte("not-json\n"))
	}()

	_, err = Send(context.Background(), socketPath, Request{Command: CommandStatus}, 200*time.Millisecond)
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode response")
}

func TestSendReadResponseError(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "voicereply.sock")
	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, acceptErr := listener.Accept()
		if acceptErr != nil {
			return
		}
		_ = conn.Close()
	}()

	_, err = Send(context.Background(), socketPath, Request{Command: CommandStatus}, 200*time.Millisecond)
	require.Error(t, err)
	require.Contains(t, err.Error(), "read response")
}

func TestServeDecodeRequestErrorResponse(t *testing.T) {
	socketPath, cancel, serveDone := startServer(t, HandlerFunc(func(_ context.Context, _ Request) Response {
		return Response{OK: true}
	}))
	defer cancel()

	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("not-json\n"))
	require.NoError(t, err)

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal(line, &resp))
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "decode request")

	cancel()
	require.NoError(t, <-serveDone)
}

func TestProbe(t *testing.T) {
	socketPath, cancel, serveDone := startServer(t, HandlerFunc(func(_ context.Context, req Request) Response {
		if req.Command == CommandStatus {
			return Response{OK: true}
		}
		return Failure(errors.New("bad"))
	}))
	defer cancel()

	alive, probeErr := Probe(context.Background(), socketPath, 200*time.Millisecond)
	require.NoError(t, probeErr)
	require.True(t, alive)

	cancel()
	require.NoError(t, <-serveDone)

	alive, probeErr = Probe(context.Background(), socketPath, 100*time.Millisecond)
	require.NoError(t, probeErr)
	require.False(t, alive)
}
