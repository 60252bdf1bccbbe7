package speechbus

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/altavoxlabs/altavox-core/internal/audit"
	"github.com/altavoxlabs/altavox-core/internal/bus"
	"github.com/altavoxlabs/altavox-core/internal/config"
	"github.com/altavoxlabs/altavox-core/internal/pipeline"
	"github.com/altavoxlabs/altavox-core/internal/protocol"
	"github.com/altavoxlabs/altavox-core/internal/synth"
	"github.com/altavoxlabs/altavox-core/internal/textproc"
	"github.com/nats-io/nats.go"
)

// Service synthesizes speech requests arriving over the bus. It mirrors the
// HTTP endpoint: same cleaning, chunking, and batch scheduling, with the
// audio delivered as sequenced chunks on the audio subject and a terminal
// status message per run.
type Service struct {
	speech config.SpeechConfig
	bus    *bus.Client
	sched  *pipeline.Scheduler
	store  *audit.Store
	sub    *nats.Subscription
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *slog.Logger
}

func NewService(parent context.Context, speech config.SpeechConfig, busClient *bus.Client, sched *pipeline.Scheduler, store *audit.Store, log *slog.Logger) *Service {
	ctx, cancel := context.WithCancel(parent)
	return &Service{
		speech: speech,
		bus:    busClient,
		sched:  sched,
		store:  store,
		ctx:    ctx,
		cancel: cancel,
		logger: log.With(slog.String("component", "speechbus")),
	}
}

func (s *Service) Start() error {
	sub, err := s.bus.Conn().Subscribe(protocol.SubjectSpeechRequest, s.handleRequest)
	if err != nil {
		return err
	}
	s.sub = sub
	return nil
}

func (s *Service) Close() {
	s.cancel()
	if s.sub != nil {
		_ = s.sub.Drain()
	}
	s.wg.Wait()
}

func (s *Service) Healthy() bool { return s.sub != nil }

func (s *Service) handleRequest(msg *nats.Msg) {
	var req protocol.SpeechRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.logger.Warn("failed to decode speech request", slogError(err))
		return
	}
	if req.SessionID == "" {
		s.logger.Warn("speech request missing session id")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.synthesize(req)
	}()
}

func (s *Service) synthesize(req protocol.SpeechRequest) {
	timeout := time.Duration(s.speech.RequestTimeoutS) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	cleaned := textproc.Clean(req.Text, textproc.CleanOptions{
		RemoveMarkdown:   req.Cleaning.RemoveMarkdown,
		RemoveEmoji:      req.Cleaning.RemoveEmoji,
		RemoveURLs:       req.Cleaning.RemoveURLs,
		RemoveLineBreaks: req.Cleaning.RemoveLineBreaks,
		RemoveCitations:  req.Cleaning.RemoveCitations,
		CustomKeywords:   textproc.ParseKeywords(req.Cleaning.CustomKeywords),
	})

	maxLen := req.ChunkSize
	if maxLen <= 0 {
		maxLen = s.speech.MaxChunkLength
	}
	concurrency := req.Concurrency
	if concurrency <= 0 {
		concurrency = s.speech.Concurrency
	}
	format := req.Format
	if format == "" {
		format = s.speech.DefaultFormat
	}
	voice := req.Voice
	if voice == "" {
		voice = s.speech.DefaultVoice
	}

	units := textproc.Chunk(cleaned, maxLen)
	if len(units) == 0 {
		s.publishStatus(req.SessionID, "", true)
		return
	}

	tmpl := synth.Request{
		Voice:  voice,
		Rate:   synth.ProsodyOffset(req.Speed),
		Pitch:  synth.ProsodyOffset(req.Pitch),
		Style:  req.Style,
		Format: format,
	}

	eff := pipeline.EffectiveConcurrency(concurrency, len(units))
	entry := audit.Entry{
		RequestID:  req.SessionID,
		Transport:  "bus",
		Voice:      voice,
		Format:     format,
		Stream:     true,
		Characters: len([]rune(cleaned)),
		Units:      len(units),
		Batches:    (len(units) + eff - 1) / eff,
	}
	start := time.Now()

	sequence := 0
	total := len(units)
	err := s.sched.RunBatches(ctx, units, concurrency, tmpl, func(batch []pipeline.AudioUnit) error {
		for _, unit := range batch {
			sequence++
			if perr := s.publishChunk(protocol.AudioChunk{
				SessionID: req.SessionID,
				Sequence:  unit.Index,
				Audio:     unit.Data,
				Final:     sequence == total,
			}); perr != nil {
				return perr
			}
		}
		return nil
	})
	entry.Duration = time.Since(start)
	if err != nil {
		entry.Status = "failed"
		entry.Error = err.Error()
		s.logger.Warn("speech run failed",
			slog.String("session_id", req.SessionID),
			slogError(err))
		s.publishStatus(req.SessionID, err.Error(), false)
		s.record(entry)
		return
	}

	entry.Status = "ok"
	s.logger.Info("speech run completed",
		slog.String("session_id", req.SessionID),
		slog.Int("units", total))
	s.publishStatus(req.SessionID, "", true)
	s.record(entry)
}

func (s *Service) record(entry audit.Entry) {
	if s.store == nil {
		return
	}
	if err := s.store.Record(context.WithoutCancel(s.ctx), entry); err != nil {
		s.logger.Warn("failed to record audit entry", slogError(err))
	}
}

func (s *Service) publishChunk(chunk protocol.AudioChunk) error {
	data, err := json.Marshal(chunk)
	if err != nil {
		return err
	}
	return s.bus.Conn().Publish(protocol.SubjectSpeechAudio, data)
}

func (s *Service) publishStatus(sessionID, errMsg string, completed bool) {
	status := protocol.SpeechStatus{
		SessionID: sessionID,
		Completed: completed,
		Error:     errMsg,
		Timestamp: time.Now().UTC(),
	}
	data, err := json.Marshal(status)
	if err != nil {
		s.logger.Warn("failed to marshal speech status", slogError(err))
		return
	}
	if err := s.bus.Conn().Publish(protocol.SubjectSpeechStatus, data); err != nil {
		s.logger.Warn("failed to publish speech status", slogError(err))
	}
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
