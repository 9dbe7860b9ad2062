package router

import "strings"

// TelegramMaxMessageLength is the per-message character limit imposed by the
// Telegram Bot API.
const TelegramMaxMessageLength = 4096

// telegramEscaper escapes every character MarkdownV2 treats as syntax.
var telegramEscaper = strings.NewReplacer(
	`_`, `\_`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`(`, `\(`,
	`)`, `\)`,
	`~`, `\~`,
	"`", "\\`",
	`>`, `\>`,
	`#`, `\#`,
	`+`, `\+`,
	`-`, `\-`,
	`=`, `\=`,
	`|`, `\|`,
	`{`, `\{`,
	`}`, `\}`,
	`.`, `\.`,
	`!`, `\!`,
)

// EscapeTelegram escapes all MarkdownV2 special characters in text.
func EscapeTelegram(text string) string {
	return telegramEscaper.Replace(text)
}

// FormatTelegram renders standard markdown as Telegram MarkdownV2. Fenced
// code blocks and inline code pass through untouched; **bold** becomes
// Telegram's single-asterisk bold; everything else is escaped.
func FormatTelegram(text string) string {
	var b strings.Builder
	inFence := false

	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			b.WriteByte('\n')
		}
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			b.WriteString(line)
			continue
		}
		if inFence {
			b.WriteString(line)
			continue
		}
		b.WriteString(formatTelegramLine(line))
	}

	return b.String()
}

func formatTelegramLine(line string) string {
	var b strings.Builder
	runes := []rune(line)
	n := len(runes)

	for i := 0; i < n; {
		// Inline code passes through without escaping.
		if runes[i] == '`' {
			if end := indexRune(runes, i+1, '`'); end > 0 {
				b.WriteString(string(runes[i : end+1]))
				i = end + 1
				continue
			}
		}

		// **bold** becomes *bold*.
		if runes[i] == '*' && i+1 < n && runes[i+1] == '*' {
			if end := indexPair(runes, i+2, '*'); end > 0 {
				b.WriteByte('*')
				b.WriteString(EscapeTelegram(string(runes[i+2 : end])))
				b.WriteByte('*')
				i = end + 2
				continue
			}
		}

		// __underline__ keeps its delimiters.
		if runes[i] == '_' && i+1 < n && runes[i+1] == '_' {
			if end := indexPair(runes, i+2, '_'); end > 0 {
				b.WriteString("__")
				b.WriteString(EscapeTelegram(string(runes[i+2 : end])))
				b.WriteString("__")
				i = end + 2
				continue
			}
		}

		b.WriteString(EscapeTelegram(string(runes[i])))
		i++
	}

	return b.String()
}

func indexRune(runes []rune, start int, r rune) int {
	for i := start; i < len(runes); i++ {
		if runes[i] == r {
			return i
		}
	}
	return -1
}

func indexPair(runes []rune, start int, r rune) int {
	for i := start; i+1 < len(runes); i++ {
		if runes[i] == r && runes[i+1] == r {
			return i
		}
	}
	return -1
}

// FormatDiscord renders text for Discord, which accepts standard markdown
// unchanged.
func FormatDiscord(text string) string {
	return text
}

// SplitText splits text into chunks of at most maxLen characters. Each cut
// prefers the last newline inside the window, then the last space, then a
// hard cut. Separators stay with the preceding chunk, so concatenating the
// chunks reproduces the input exactly.
func SplitText(text string, maxLen int) []string {
	runes := []rune(text)
	if maxLen <= 0 || len(runes) <= maxLen {
		return []string{text}
	}

	var chunks []string
	for len(runes) > maxLen {
		window := runes[:maxLen]
		cut := maxLen
		if i := lastIndexRune(window, '\n'); i > 0 {
			cut = i + 1
		} else if i := lastIndexRune(window, ' '); i > 0 {
			cut = i + 1
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}

func lastIndexRune(runes []rune, r rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}
