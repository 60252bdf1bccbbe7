package textproc

import (
	"regexp"
	"strings"
)

// CleanOptions selects which scrubbing passes run before chunking.
type CleanOptions struct {
	RemoveMarkdown   bool
	RemoveEmoji      bool
	RemoveURLs       bool
	RemoveLineBreaks bool
	RemoveCitations  bool
	CustomKeywords   []string
}

var (
	reURL        = regexp.MustCompile(`https?://[^\s]+`)
	reImage      = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	reLink       = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	reCodeFence  = regexp.MustCompile("(?s)```.*?```")
	reInlineCode = regexp.MustCompile("`([^`]*)`")
	reEmphasis   = regexp.MustCompile(`[*_]{1,3}([^*_]+)[*_]{1,3}`)
	reHeading    = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	reQuote      = regexp.MustCompile(`(?m)^>\s?`)
	reCitation   = regexp.MustCompile(`\[\^?\d+\]|【\d+】`)
	reEmoji      = regexp.MustCompile(`[\x{1F000}-\x{1FAFF}\x{2600}-\x{27BF}\x{2B00}-\x{2BFF}\x{FE00}-\x{FE0F}]`)
	reSpaces     = regexp.MustCompile(`[ \t]{2,}`)
)

// Clean applies the selected passes to text. Every pass is stateless and the
// zero-value options leave the text untouched apart from keyword removal.
func Clean(text string, opts CleanOptions) string {
	if opts.RemoveMarkdown {
		text = reCodeFence.ReplaceAllString(text, " ")
		text = reImage.ReplaceAllString(text, "")
		text = reLink.ReplaceAllString(text, "$1")
		text = reInlineCode.ReplaceAllString(text, "$1")
		text = reEmphasis.ReplaceAllString(text, "$1")
		text = reHeading.ReplaceAllString(text, "")
		text = reQuote.ReplaceAllString(text, "")
	}
	if opts.RemoveURLs {
		text = reURL.ReplaceAllString(text, "")
	}
	if opts.RemoveCitations {
		text = reCitation.ReplaceAllString(text, "")
	}
	if opts.RemoveEmoji {
		text = reEmoji.ReplaceAllString(text, "")
	}
	for _, kw := range opts.CustomKeywords {
		if kw != "" {
			text = strings.ReplaceAll(text, kw, "")
		}
	}
	if opts.RemoveLineBreaks {
		text = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(text)
	}
	return reSpaces.ReplaceAllString(text, " ")
}

// ParseKeywords splits a comma-separated keyword list, dropping empty entries.
func ParseKeywords(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	var keywords []string
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			keywords = append(keywords, s)
		}
	}
	return keywords
}
