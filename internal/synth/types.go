package synth

import (
	"context"
	"fmt"
)

// Request contains one text unit and its voice parameters.
type Request struct {
	Text   string
	Voice  string
	Rate   string // prosody offset, e.g. "+25%"
	Pitch  string
	Style  string
	Format string // logical output format: mp3, opus, webm, wav
}

// Synthesizer is the contract for turning one text unit into audio bytes.
// A failed call is terminal for the whole request; no retries are layered
// on top of it anywhere.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) ([]byte, error)
}

// Error carries the backend status for a failed synthesis or token call.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("speech backend returned %d: %s", e.Status, e.Message)
}

// ProsodyOffset converts a multiplier (1.0 = unchanged) into the signed
// percentage offset the prosody markup expects. Zero is treated as unset.
func ProsodyOffset(v float64) string {
	if v == 0 {
		v = 1
	}
	pct := int(v*100+0.5) - 100
	return fmt.Sprintf("%+d%%", pct)
}

// ContentType maps a logical output format to its MIME type.
func ContentType(format string) string {
	switch format {
	case "opus":
		return "audio/opus"
	case "webm":
		return "audio/webm"
	case "wav":
		return "audio/wav"
	default:
		return "audio/mpeg"
	}
}
