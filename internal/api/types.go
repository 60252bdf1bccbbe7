package api

import "github.com/altavoxlabs/altavox-core/internal/textproc"

// SpeechRequest is the OpenAI-compatible request body for /v1/audio/speech.
// Only Input is required.
type SpeechRequest struct {
	Model          string           `json:"model,omitempty"`
	Input          string           `json:"input"`
	Voice          string           `json:"voice,omitempty"`
	Speed          float64          `json:"speed,omitempty"`
	Pitch          float64          `json:"pitch,omitempty"`
	Style          string           `json:"style,omitempty"`
	ResponseFormat string           `json:"response_format,omitempty"`
	Stream         bool             `json:"stream,omitempty"`
	Concurrency    int              `json:"concurrency,omitempty"`
	ChunkSize      int              `json:"chunk_size,omitempty"`
	Cleaning       *CleaningOptions `json:"cleaning,omitempty"`
}

// CleaningOptions is the request-level text-scrubbing toggle bag.
type CleaningOptions struct {
	RemoveMarkdown   bool   `json:"remove_markdown,omitempty"`
	RemoveEmoji      bool   `json:"remove_emoji,omitempty"`
	RemoveURLs       bool   `json:"remove_urls,omitempty"`
	RemoveLineBreaks bool   `json:"remove_line_breaks,omitempty"`
	RemoveCitations  bool   `json:"remove_citations,omitempty"`
	CustomKeywords   string `json:"custom_keywords,omitempty"`
}

func (c *CleaningOptions) cleanOptions() textproc.CleanOptions {
	if c == nil {
		return textproc.CleanOptions{}
	}
	return textproc.CleanOptions{
		RemoveMarkdown:   c.RemoveMarkdown,
		RemoveEmoji:      c.RemoveEmoji,
		RemoveURLs:       c.RemoveURLs,
		RemoveLineBreaks: c.RemoveLineBreaks,
		RemoveCitations:  c.RemoveCitations,
		CustomKeywords:   textproc.ParseKeywords(c.CustomKeywords),
	}
}
