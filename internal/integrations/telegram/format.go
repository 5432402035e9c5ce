package telegram

import (
	"strings"
	"unicode/utf8"
)

// MaxMessageLength is Telegram's limit for one text message, in characters.
const MaxMessageLength = 4096

// maxTitleLength keeps room for the body even when every title character
// needs escaping.
const maxTitleLength = 256

const truncatedSuffix = "\n\n\\.\\.\\. \\(truncated\\)"

var markdownV2Escaper = strings.NewReplacer(
	`\`, `\\`, "_", `\_`, "*", `\*`, "[", `\[`, "]", `\]`, "(", `\(`, ")", `\)`,
	"~", `\~`, "`", "\\`", ">", `\>`, "#", `\#`, "+", `\+`, "-", `\-`,
	"=", `\=`, "|", `\|`, "{", `\{`, "}", `\}`, ".", `\.`, "!", `\!`,
)

// EscapeMarkdownV2 escapes every character MarkdownV2 treats as markup.
func EscapeMarkdownV2(s string) string {
	return markdownV2Escaper.Replace(s)
}

// FormatMessage renders a bold title followed by the message body, cut to
// MaxMessageLength characters.
func FormatMessage(title, message string) string {
	text, _ := formatMessage(title, message)
	return text
}

// formatMessage also reports whether the body was cut.
func formatMessage(title, message string) (string, bool) {
	if utf8.RuneCountInString(title) > maxTitleLength {
		title = string([]rune(title)[:maxTitleLength])
	}
	head := "*" + EscapeMarkdownV2(title) + "*\n\n"
	body := EscapeMarkdownV2(message)
	if utf8.RuneCountInString(head)+utf8.RuneCountInString(body) <= MaxMessageLength {
		return head + body, false
	}

	budget := MaxMessageLength - utf8.RuneCountInString(head) - utf8.RuneCountInString(truncatedSuffix)
	cut := []rune(body)[:budget]
	// Never leave a dangling escape.
	trailing := 0
	for i := len(cut) - 1; i >= 0 && cut[i] == '\\'; i-- {
		trailing++
	}
	if trailing%2 == 1 {
		cut = cut[:len(cut)-1]
	}
	return head + string(cut) + truncatedSuffix, true
}
