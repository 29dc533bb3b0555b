package handlers

import "strings"

const parseModeMarkdownV2 = "MarkdownV2"

var markdownEscaper = strings.NewReplacer(
	"\\", "\\\\",
	"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]", "(", "\\(", ")", "\\)",
	"~", "\\~", "`", "\\`", ">", "\\>", "#", "\\#", "+", "\\+", "-", "\\-",
	"=", "\\=", "|", "\\|", "{", "\\{", "}", "\\}", ".", "\\.", "!", "\\!",
)

// escapeMarkdown escapes the characters MarkdownV2 reserves.
func escapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}

func hashtag(s string) string {
	return "#" + strings.ReplaceAll(strings.TrimSpace(s), " ", "_")
}
