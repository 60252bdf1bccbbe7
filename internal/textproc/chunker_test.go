package textproc

import (
	"strings"
	"testing"
)

func TestChunkEmpty(t *testing.T) {
	if units := Chunk("", 300); units != nil {
		t.Fatalf("expected no units for empty input, got %v", units)
	}
	if units := Chunk("   \n  ", 300); units != nil {
		t.Fatalf("expected no units for blank input, got %v", units)
	}
}

func TestChunkSingleUnit(t *testing.T) {
	units := Chunk("  Hello. World!  ", 300)
	if len(units) != 1 {
		t.Fatalf("expected 1 unit, got %d", len(units))
	}
	if units[0].Content != "Hello. World!" {
		t.Fatalf("expected trimmed unit, got %q", units[0].Content)
	}
	if units[0].Index != 0 {
		t.Fatalf("expected index 0, got %d", units[0].Index)
	}
}

func TestChunkRespectsMaxLength(t *testing.T) {
	text := strings.Repeat("One short sentence here. ", 40)
	units := Chunk(text, 100)
	if len(units) < 2 {
		t.Fatalf("expected multiple units, got %d", len(units))
	}
	for _, u := range units {
		if n := len([]rune(u.Content)); n > 100 {
			t.Fatalf("unit %d exceeds max length: %d runes", u.Index, n)
		}
	}
	if got := squash(units); got != squash([]Unit{{Content: text}}) {
		t.Fatal("concatenated units do not reconstruct the input")
	}
}

func TestChunkIndexesSequential(t *testing.T) {
	units := Chunk(strings.Repeat("A sentence. ", 30), 50)
	for i, u := range units {
		if u.Index != i {
			t.Fatalf("expected index %d, got %d", i, u.Index)
		}
	}
}

func TestChunkCJKBoundaries(t *testing.T) {
	units := Chunk("你好世界。今天天气不错，适合出门。再见！", 12)
	if len(units) < 2 {
		t.Fatalf("expected CJK text to split, got %d units", len(units))
	}
	for _, u := range units {
		if n := len([]rune(u.Content)); n > 12 {
			t.Fatalf("unit %q exceeds max length: %d runes", u.Content, n)
		}
	}
}

func TestChunkFallbackFixedWidth(t *testing.T) {
	text := strings.Repeat("x", 35)
	units := Chunk(text, 10)
	if len(units) != 4 {
		t.Fatalf("expected 4 fixed-width windows, got %d", len(units))
	}
	for i, u := range units[:3] {
		if len(u.Content) != 10 {
			t.Fatalf("window %d has length %d", i, len(u.Content))
		}
	}
	if len(units[3].Content) != 5 {
		t.Fatalf("last window has length %d", len(units[3].Content))
	}
}

func TestChunkFallbackOnOversizeRun(t *testing.T) {
	// A short sentence followed by a run with no boundaries inside maxLength.
	text := "Hi. " + strings.Repeat("y", 50)
	units := Chunk(text, 20)
	if len(units) == 0 {
		t.Fatal("expected fallback units")
	}
	for _, u := range units {
		if n := len([]rune(u.Content)); n > 20 {
			t.Fatalf("unit %q exceeds max length", u.Content)
		}
	}
	if got, want := squash(units), squashText(text); got != want {
		t.Fatalf("fallback lost content: got %q want %q", got, want)
	}
}

func squash(units []Unit) string {
	var b strings.Builder
	for _, u := range units {
		b.WriteString(u.Content)
	}
	return squashText(b.String())
}

func squashText(s string) string {
	return strings.Join(strings.Fields(s), "")
}
