package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sync"

	"github.com/mattn/go-shellwords"
)

type execSynth struct {
	cmd []string
	mu  sync.Mutex
}

type execRequest struct {
	Text   string `json:"text"`
	Voice  string `json:"voice"`
	Rate   string `json:"rate,omitempty"`
	Pitch  string `json:"pitch,omitempty"`
	Style  string `json:"style,omitempty"`
	Format string `json:"format"`
}

// NewExecSynth wraps a local synthesis engine invoked per unit. The engine
// reads one JSON request on stdin and writes raw audio to stdout. Calls are
// serialized; local engines are rarely safe to run in parallel.
func NewExecSynth(command string) (Synthesizer, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse synth command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("synth command empty")
	}
	return &execSynth{cmd: args}, nil
}

func (e *execSynth) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	payload, err := json.Marshal(execRequest{
		Text:   req.Text,
		Voice:  req.Voice,
		Rate:   req.Rate,
		Pitch:  req.Pitch,
		Style:  req.Style,
		Format: req.Format,
	})
	if err != nil {
		return nil, err
	}

	base := e.cmd[0]
	args := append([]string{}, e.cmd[1:]...)
	cmd := exec.CommandContext(ctx, base, args...)
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
			return nil, fmt.Errorf("synth command failed: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("synth command failed: %w", err)
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("synth command produced no audio")
	}
	return stdout.Bytes(), nil
}
