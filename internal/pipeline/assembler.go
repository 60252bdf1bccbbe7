package pipeline

import (
	"bytes"
	"context"
	"io"
	"log/slog"

	"github.com/altavoxlabs/altavox-core/internal/synth"
	"github.com/altavoxlabs/altavox-core/internal/textproc"
)

// Buffered runs all batches to completion and returns one concatenated audio
// payload in unit order. Any failure surfaces as a single terminal error.
func (s *Scheduler) Buffered(ctx context.Context, units []textproc.Unit, requested int, tmpl synth.Request) ([]byte, error) {
	var buf bytes.Buffer
	err := s.RunBatches(ctx, units, requested, tmpl, func(batch []AudioUnit) error {
		for _, u := range batch {
			buf.Write(u.Data)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Stream returns a reader fed batch by batch as synthesis completes. On
// failure the reader is closed with that error, so a partially delivered
// stream ends abnormally instead of looking complete; on success it closes
// cleanly. The pipe is closed exactly once on every path.
func (s *Scheduler) Stream(ctx context.Context, units []textproc.Unit, requested int, tmpl synth.Request) io.ReadCloser {
	pr, pw := io.Pipe()
	go func() {
		err := s.RunBatches(ctx, units, requested, tmpl, func(batch []AudioUnit) error {
			for _, u := range batch {
				if _, werr := pw.Write(u.Data); werr != nil {
					return werr
				}
			}
			return nil
		})
		if err != nil {
			s.logger.Warn("stream aborted", slog.String("error", err.Error()))
			pw.CloseWithError(err)
			return
		}
		pw.Close()
	}()
	return pr
}
