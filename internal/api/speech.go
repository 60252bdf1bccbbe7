package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/altavoxlabs/altavox-core/internal/audit"
	"github.com/altavoxlabs/altavox-core/internal/config"
	"github.com/altavoxlabs/altavox-core/internal/pipeline"
	"github.com/altavoxlabs/altavox-core/internal/synth"
	"github.com/altavoxlabs/altavox-core/internal/textproc"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Handler serves the OpenAI-compatible speech API on top of the batch
// synthesis pipeline.
type Handler struct {
	speech   config.SpeechConfig
	apiKey   string
	sched    *pipeline.Scheduler
	store    *audit.Store
	logger   *slog.Logger
	requests metric.Int64Counter
}

func NewHandler(cfg config.Config, sched *pipeline.Scheduler, store *audit.Store, logger *slog.Logger) *Handler {
	h := &Handler{
		speech: cfg.Speech,
		apiKey: cfg.Auth.APIKey,
		sched:  sched,
		store:  store,
		logger: logger.With(slog.String("component", "speech-api")),
	}
	meter := otel.Meter("github.com/altavoxlabs/altavox-core/internal/api")
	var err error
	if h.requests, err = meter.Int64Counter("speech_requests_total",
		metric.WithDescription("Speech API requests by mode and outcome")); err != nil {
		logger.Warn("failed to create requests counter", slog.String("error", err.Error()))
	}
	return h
}

// Register wires the API routes onto mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle("/v1/audio/speech", withCORS(h.requireAuth(http.HandlerFunc(h.handleSpeech))))
	mux.Handle("/v1/audio/voices", withCORS(h.requireAuth(http.HandlerFunc(h.handleVoices))))
}

func (h *Handler) handleSpeech(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "invalid_request_error", "method_not_allowed",
			"only POST is supported")
		return
	}

	var req SpeechRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "invalid_json",
			"request body is not valid JSON: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Input) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "missing_input",
			"input is required")
		return
	}

	cleaned := textproc.Clean(req.Input, req.Cleaning.cleanOptions())

	maxLen := req.ChunkSize
	if maxLen <= 0 {
		maxLen = h.speech.MaxChunkLength
	}
	concurrency := req.Concurrency
	if concurrency <= 0 {
		concurrency = h.speech.Concurrency
	}
	format := req.ResponseFormat
	if format == "" {
		format = h.speech.DefaultFormat
	}

	units := textproc.Chunk(cleaned, maxLen)
	if len(units) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "empty_input",
			"input contains nothing to synthesize")
		return
	}

	tmpl := synth.Request{
		Voice:  resolveVoice(req.Voice, h.speech.DefaultVoice),
		Rate:   synth.ProsodyOffset(req.Speed),
		Pitch:  synth.ProsodyOffset(req.Pitch),
		Style:  req.Style,
		Format: format,
	}

	ctx := r.Context()
	if h.speech.RequestTimeoutS > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(h.speech.RequestTimeoutS)*time.Second)
		defer cancel()
	}

	entry := audit.Entry{
		RequestID:  uuid.NewString(),
		Transport:  "http",
		Voice:      tmpl.Voice,
		Format:     format,
		Stream:     req.Stream,
		Characters: len([]rune(cleaned)),
		Units:      len(units),
	}
	eff := pipeline.EffectiveConcurrency(concurrency, len(units))
	entry.Batches = (len(units) + eff - 1) / eff

	start := time.Now()
	if req.Stream {
		h.serveStream(ctx, w, units, concurrency, tmpl, entry, start)
		return
	}
	h.serveBuffered(ctx, w, units, concurrency, tmpl, entry, start)
}

func (h *Handler) serveBuffered(ctx context.Context, w http.ResponseWriter, units []textproc.Unit, concurrency int, tmpl synth.Request, entry audit.Entry, start time.Time) {
	data, err := h.sched.Buffered(ctx, units, concurrency, tmpl)
	if err != nil {
		h.finish(ctx, entry, start, "failed", err)
		status, apiErr := mapSynthesisError(err)
		writeError(w, status, apiErr.Type, apiErr.Code, apiErr.Message)
		return
	}

	w.Header().Set("Content-Type", synth.ContentType(tmpl.Format))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		h.logger.Warn("failed to write audio response", slog.String("error", err.Error()))
	}
	h.finish(ctx, entry, start, "ok", nil)
}

func (h *Handler) serveStream(ctx context.Context, w http.ResponseWriter, units []textproc.Unit, concurrency int, tmpl synth.Request, entry audit.Entry, start time.Time) {
	w.Header().Set("Content-Type", synth.ContentType(tmpl.Format))
	w.Header().Set("Cache-Control", "no-store")

	rc := h.sched.Stream(ctx, units, concurrency, tmpl)
	defer rc.Close()

	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 32*1024)
	for {
		n, err := rc.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				h.finish(ctx, entry, start, "failed", werr)
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err == io.EOF {
			h.finish(ctx, entry, start, "ok", nil)
			return
		}
		if err != nil {
			h.finish(ctx, entry, start, "failed", err)
			// Kill the connection so the truncated body cannot be
			// mistaken for a complete stream.
			panic(http.ErrAbortHandler)
		}
	}
}

// finish records the request outcome in metrics and the audit store.
func (h *Handler) finish(ctx context.Context, entry audit.Entry, start time.Time, status string, cause error) {
	entry.Status = status
	entry.Duration = time.Since(start)
	if cause != nil {
		entry.Error = cause.Error()
		h.logger.Warn("speech request failed",
			slog.String("request_id", entry.RequestID),
			slog.String("error", cause.Error()))
	} else {
		h.logger.Info("speech request completed",
			slog.String("request_id", entry.RequestID),
			slog.Int("units", entry.Units),
			slog.Duration("duration", entry.Duration))
	}

	if h.requests != nil {
		mode := "buffered"
		if entry.Stream {
			mode = "stream"
		}
		h.requests.Add(ctx, 1, metric.WithAttributes(
			attribute.String("mode", mode),
			attribute.String("status", status)))
	}
	if h.store != nil {
		if err := h.store.Record(context.WithoutCancel(ctx), entry); err != nil {
			h.logger.Warn("failed to record audit entry", slog.String("error", err.Error()))
		}
	}
}
