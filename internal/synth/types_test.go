package synth

import (
	"context"
	"testing"
	"time"
)

func TestProsodyOffset(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "+0%"},
		{1.0, "+0%"},
		{1.25, "+25%"},
		{0.8, "-20%"},
		{2.0, "+100%"},
		{0.5, "-50%"},
	}
	for _, tc := range cases {
		if got := ProsodyOffset(tc.in); got != tc.want {
			t.Errorf("ProsodyOffset(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestContentType(t *testing.T) {
	cases := map[string]string{
		"mp3":  "audio/mpeg",
		"opus": "audio/opus",
		"webm": "audio/webm",
		"wav":  "audio/wav",
		"":     "audio/mpeg",
	}
	for format, want := range cases {
		if got := ContentType(format); got != want {
			t.Errorf("ContentType(%q) = %q, want %q", format, got, want)
		}
	}
}

func TestMockSynth(t *testing.T) {
	s := NewMockSynth(0)
	data, err := s.Synthesize(context.Background(), Request{Text: "hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "mock-audio:hello" {
		t.Fatalf("unexpected payload: %q", data)
	}
}

func TestMockSynthHonorsCancellation(t *testing.T) {
	s := NewMockSynth(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Synthesize(ctx, Request{Text: "hello"}); err == nil {
		t.Fatal("expected context error")
	}
}

func TestNewExecSynthRejectsBadCommand(t *testing.T) {
	if _, err := NewExecSynth(""); err == nil {
		t.Fatal("expected error for empty command")
	}
	if _, err := NewExecSynth(`engine "unterminated`); err == nil {
		t.Fatal("expected error for unparseable command")
	}
}
