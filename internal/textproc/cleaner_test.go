package textproc

import (
	"strings"
	"testing"
)

func TestCleanNoOptions(t *testing.T) {
	in := "Hello. World!"
	if got := Clean(in, CleanOptions{}); got != in {
		t.Fatalf("expected untouched text, got %q", got)
	}
}

func TestCleanMarkdown(t *testing.T) {
	in := "# Title\n**bold** and [a link](https://example.com) plus `code`"
	got := Clean(in, CleanOptions{RemoveMarkdown: true})
	for _, banned := range []string{"#", "**", "](", "`"} {
		if strings.Contains(got, banned) {
			t.Fatalf("markdown %q survived in %q", banned, got)
		}
	}
	if !strings.Contains(got, "a link") {
		t.Fatalf("link text should survive, got %q", got)
	}
}

func TestCleanURLs(t *testing.T) {
	got := Clean("see https://example.com/page for details", CleanOptions{RemoveURLs: true})
	if strings.Contains(got, "example.com") {
		t.Fatalf("url should be removed, got %q", got)
	}
}

func TestCleanCitations(t *testing.T) {
	got := Clean("as shown[12] and 【3】 elsewhere", CleanOptions{RemoveCitations: true})
	if strings.Contains(got, "[12]") || strings.Contains(got, "【3】") {
		t.Fatalf("citations should be removed, got %q", got)
	}
}

func TestCleanLineBreaks(t *testing.T) {
	got := Clean("line one\r\nline two\nline three", CleanOptions{RemoveLineBreaks: true})
	if strings.Contains(got, "\n") || strings.Contains(got, "\r") {
		t.Fatalf("line breaks should be removed, got %q", got)
	}
}

func TestCleanCustomKeywords(t *testing.T) {
	opts := CleanOptions{CustomKeywords: ParseKeywords("foo, bar ,")}
	got := Clean("foo says bar to baz", opts)
	if strings.Contains(got, "foo") || strings.Contains(got, "bar") {
		t.Fatalf("keywords should be removed, got %q", got)
	}
	if !strings.Contains(got, "baz") {
		t.Fatalf("unrelated text should survive, got %q", got)
	}
}

func TestParseKeywordsEmpty(t *testing.T) {
	if kws := ParseKeywords("  "); kws != nil {
		t.Fatalf("expected nil, got %v", kws)
	}
}

