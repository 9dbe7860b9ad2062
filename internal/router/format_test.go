package router

import (
	"strings"
	"testing"
)

func TestFormatTelegram(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello world", "hello world"},
		{"specials escaped", "a.b!c-d", `a\.b\!c\-d`},
		{"bold converted", "say **hi** now", "say *hi* now"},
		{"underline kept", "an __underlined__ word", "an __underlined__ word"},
		{"inline code untouched", "run `go-test.sh` now", "run `go-test.sh` now"},
		{"unclosed bold escaped", "a **b", `a \*\*b`},
		{"fenced block untouched", "```\nx.y!z\n```", "```\nx.y!z\n```"},
		{"bold with specials inside", "**a.b**", `*a\.b*`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatTelegram(tt.in); got != tt.want {
				t.Errorf("FormatTelegram(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSplitText_ShortTextIsSingleChunk(t *testing.T) {
	t.Parallel()
	chunks := SplitText("short", 100)
	if len(chunks) != 1 || chunks[0] != "short" {
		t.Errorf("chunks = %v", chunks)
	}
}

func TestSplitText_PrefersNewlineThenSpace(t *testing.T) {
	t.Parallel()
	in := "first line\nsecond line that keeps going"
	chunks := SplitText(in, 15)
	if chunks[0] != "first line\n" {
		t.Errorf("first chunk = %q, want cut after newline", chunks[0])
	}

	in = "no newline here just spaces everywhere"
	chunks = SplitText(in, 12)
	if !strings.HasSuffix(chunks[0], " ") {
		t.Errorf("first chunk = %q, want cut after a space", chunks[0])
	}
}

func TestSplitText_HardCutWithoutBoundaries(t *testing.T) {
	t.Parallel()
	in := strings.Repeat("x", 25)
	chunks := SplitText(in, 10)
	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(chunks))
	}
	if chunks[0] != strings.Repeat("x", 10) {
		t.Errorf("first chunk = %q", chunks[0])
	}
}

func TestSplitText_ReconstructsOriginal(t *testing.T) {
	t.Parallel()
	var b strings.Builder
	for i := 0; i < 500; i++ {
		b.WriteString("some words here and there ")
		if i%7 == 0 {
			b.WriteByte('\n')
		}
	}
	in := b.String()

	chunks := SplitText(in, TelegramMaxMessageLength)
	if len(chunks) < 2 {
		t.Fatalf("chunks = %d, want at least 2", len(chunks))
	}
	for i, c := range chunks {
		if n := len([]rune(c)); n > TelegramMaxMessageLength {
			t.Errorf("chunk %d length = %d, exceeds limit", i, n)
		}
	}
	if strings.Join(chunks, "") != in {
		t.Error("concatenation does not reconstruct the input")
	}
}
