package speechbus

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/altavoxlabs/altavox-core/internal/bus"
	"github.com/altavoxlabs/altavox-core/internal/config"
	"github.com/altavoxlabs/altavox-core/internal/natsserver"
	"github.com/altavoxlabs/altavox-core/internal/pipeline"
	"github.com/altavoxlabs/altavox-core/internal/protocol"
	"github.com/altavoxlabs/altavox-core/internal/synth"
	"github.com/nats-io/nats.go"
)

type synthFunc func(ctx context.Context, req synth.Request) ([]byte, error)

func (f synthFunc) Synthesize(ctx context.Context, req synth.Request) ([]byte, error) {
	return f(ctx, req)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func startTestBus(t *testing.T) *bus.Client {
	t.Helper()
	cfg := config.BusConfig{Embedded: true, Port: -1, ConnectTimeout: 5000}
	srv, err := natsserver.Start(cfg, discardLogger())
	if err != nil {
		t.Fatalf("start embedded server: %v", err)
	}
	t.Cleanup(srv.Shutdown)

	cfg.Servers = []string{srv.ClientURL()}
	client, err := bus.Connect(cfg, discardLogger())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

func startService(t *testing.T, client *bus.Client, fn synthFunc) *Service {
	t.Helper()
	speech := config.Default().Speech
	sched := pipeline.NewScheduler(fn, discardLogger())
	svc := NewService(context.Background(), speech, client, sched, nil, discardLogger())
	if err := svc.Start(); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(svc.Close)
	return svc
}

func collect(t *testing.T, client *bus.Client) (chan protocol.AudioChunk, chan protocol.SpeechStatus) {
	t.Helper()
	chunks := make(chan protocol.AudioChunk, 64)
	statuses := make(chan protocol.SpeechStatus, 4)
	subA, err := client.Conn().Subscribe(protocol.SubjectSpeechAudio, func(msg *nats.Msg) {
		var c protocol.AudioChunk
		if json.Unmarshal(msg.Data, &c) == nil {
			chunks <- c
		}
	})
	if err != nil {
		t.Fatalf("subscribe audio: %v", err)
	}
	t.Cleanup(func() { _ = subA.Unsubscribe() })
	subS, err := client.Conn().Subscribe(protocol.SubjectSpeechStatus, func(msg *nats.Msg) {
		var s protocol.SpeechStatus
		if json.Unmarshal(msg.Data, &s) == nil {
			statuses <- s
		}
	})
	if err != nil {
		t.Fatalf("subscribe status: %v", err)
	}
	t.Cleanup(func() { _ = subS.Unsubscribe() })
	return chunks, statuses
}

func publishRequest(t *testing.T, client *bus.Client, req protocol.SpeechRequest) {
	t.Helper()
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	if err := client.Conn().Publish(protocol.SubjectSpeechRequest, data); err != nil {
		t.Fatalf("publish request: %v", err)
	}
}

func TestServiceDeliversOrderedChunks(t *testing.T) {
	client := startTestBus(t)
	startService(t, client, func(ctx context.Context, req synth.Request) ([]byte, error) {
		return []byte("audio:" + req.Text), nil
	})
	chunks, statuses := collect(t, client)

	publishRequest(t, client, protocol.SpeechRequest{
		SessionID: "sess-1",
		Text:      "One two. Three four. Five six.",
		ChunkSize: 12,
	})

	var got []protocol.AudioChunk
	deadline := time.After(5 * time.Second)
recv:
	for {
		select {
		case c := <-chunks:
			got = append(got, c)
			if c.Final {
				break recv
			}
		case <-deadline:
			t.Fatalf("timed out with %d chunks", len(got))
		}
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(got))
	}
	for i, c := range got {
		if c.Sequence != i {
			t.Fatalf("chunk %d out of order: sequence %d", i, c.Sequence)
		}
		if c.SessionID != "sess-1" {
			t.Fatalf("wrong session id: %q", c.SessionID)
		}
	}
	if !strings.HasPrefix(string(got[0].Audio), "audio:One two.") {
		t.Fatalf("unexpected first unit: %q", got[0].Audio)
	}

	select {
	case s := <-statuses:
		if !s.Completed || s.Error != "" {
			t.Fatalf("expected completed status, got %+v", s)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no status published")
	}
}

func TestServicePublishesFailureStatus(t *testing.T) {
	client := startTestBus(t)
	startService(t, client, func(ctx context.Context, req synth.Request) ([]byte, error) {
		return nil, errors.New("backend offline")
	})
	_, statuses := collect(t, client)

	publishRequest(t, client, protocol.SpeechRequest{
		SessionID: "sess-2",
		Text:      "hello there.",
	})

	select {
	case s := <-statuses:
		if s.Completed {
			t.Fatal("expected failed status")
		}
		if !strings.Contains(s.Error, "backend offline") {
			t.Fatalf("error not propagated: %q", s.Error)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no status published")
	}
}

func TestServiceIgnoresMissingSession(t *testing.T) {
	client := startTestBus(t)
	startService(t, client, func(ctx context.Context, req synth.Request) ([]byte, error) {
		t.Error("synthesizer should not be called")
		return nil, nil
	})
	_, statuses := collect(t, client)

	publishRequest(t, client, protocol.SpeechRequest{Text: "no session."})

	select {
	case s := <-statuses:
		t.Fatalf("unexpected status: %+v", s)
	case <-time.After(500 * time.Millisecond):
	}
}
