package protocol

import "time"

// SpeechRequest asks for a full synthesis run over the bus. Semantics match
// the HTTP speech endpoint: fail-fast, chunks delivered in input order.
type SpeechRequest struct {
	SessionID   string   `json:"session_id"`
	Text        string   `json:"text"`
	Voice       string   `json:"voice,omitempty"`
	Speed       float64  `json:"speed,omitempty"`
	Pitch       float64  `json:"pitch,omitempty"`
	Style       string   `json:"style,omitempty"`
	Format      string   `json:"format,omitempty"`
	Concurrency int      `json:"concurrency,omitempty"`
	ChunkSize   int      `json:"chunk_size,omitempty"`
	Cleaning    Cleaning `json:"cleaning,omitempty"`
}

// Cleaning selects text-scrubbing passes applied before chunking.
type Cleaning struct {
	RemoveMarkdown   bool   `json:"remove_markdown,omitempty"`
	RemoveEmoji      bool   `json:"remove_emoji,omitempty"`
	RemoveURLs       bool   `json:"remove_urls,omitempty"`
	RemoveLineBreaks bool   `json:"remove_line_breaks,omitempty"`
	RemoveCitations  bool   `json:"remove_citations,omitempty"`
	CustomKeywords   string `json:"custom_keywords,omitempty"`
}

// AudioChunk carries one synthesized unit's bytes.
type AudioChunk struct {
	SessionID string `json:"session_id"`
	Sequence  int    `json:"sequence"`
	Audio     []byte `json:"audio"`
	Final     bool   `json:"final"`
}

// SpeechStatus closes a run: either completed or failed with Error set. A
// failed run delivers no further chunks.
type SpeechStatus struct {
	SessionID string    `json:"session_id"`
	Completed bool      `json:"completed"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	SubjectSpeechRequest = "speech.request"
	SubjectSpeechAudio   = "speech.audio"
	SubjectSpeechStatus  = "speech.status"
)
