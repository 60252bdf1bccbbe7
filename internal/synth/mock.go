package synth

import (
	"context"
	"time"
)

type mockSynth struct {
	delay time.Duration
}

// NewMockSynth returns a synthesizer producing deterministic placeholder
// audio, used by the mock backend mode and in tests.
func NewMockSynth(delay time.Duration) Synthesizer {
	return &mockSynth{delay: delay}
}

func (m *mockSynth) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.delay):
		}
	}
	return append([]byte("mock-audio:"), req.Text...), nil
}
