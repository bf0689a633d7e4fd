package telegram

import (
	"regexp"
	"strconv"
	"strings"
)

// supergroupPrefix is prepended by the Bot API to supergroup and channel ids.
const supergroupPrefix = "-100"

var (
	fencedCodeBlocksRegex = regexp.MustCompile("```[\\s\\S]*?```")
	headersRegex          = regexp.MustCompile(`(?m)^#{1,6}\s+(.+?)\s*#*$`)
	boldRegex             = regexp.MustCompile(`\*\*(.+?)\*\*`)
	boldAltRegex          = regexp.MustCompile(`__(.+?)__`)
	strikeRegex           = regexp.MustCompile(`~~(.+?)~~`)
	bulletRegex           = regexp.MustCompile(`(?m)^(\s*)[\*\-\+]\s+`)
	horizontalRuleRegex   = regexp.MustCompile(`(?m)^\s*[\*\-_]{3,}\s*$`)
	multipleNewlinesRegex = regexp.MustCompile("\n{3,}")

	legacyEscaper = strings.NewReplacer(`_`, `\_`, `*`, `\*`, "`", "\\`", `[`, `\[`)
)

// MarkdownFormatter renders text for Telegram's legacy Markdown parse mode.
type MarkdownFormatter struct{}

// Markdown converts common markdown produced by language models to the
// subset Telegram's legacy Markdown mode understands. Code blocks are left
// untouched.
func (MarkdownFormatter) Markdown(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")

	var b strings.Builder
	last := 0
	for _, loc := range fencedCodeBlocksRegex.FindAllStringIndex(s, -1) {
		b.WriteString(convertMarkdown(s[last:loc[0]]))
		b.WriteString(s[loc[0]:loc[1]])
		last = loc[1]
	}
	b.WriteString(convertMarkdown(s[last:]))

	return strings.TrimSpace(multipleNewlinesRegex.ReplaceAllString(b.String(), "\n\n"))
}

func convertMarkdown(s string) string {
	s = horizontalRuleRegex.ReplaceAllString(s, "")
	s = bulletRegex.ReplaceAllString(s, "$1• ")
	s = headersRegex.ReplaceAllString(s, "*$1*")
	s = boldRegex.ReplaceAllString(s, "*$1*")
	s = boldAltRegex.ReplaceAllString(s, "_${1}_")
	s = strikeRegex.ReplaceAllString(s, "$1")
	return s
}

// Escape makes user supplied text literal inside a legacy Markdown message.
func (MarkdownFormatter) Escape(s string) string {
	return legacyEscaper.Replace(s)
}

// MessageLink returns the t.me deep link of a message in a supergroup, or ""
// when messageID is unknown or groupID is not numeric.
func (MarkdownFormatter) MessageLink(groupID string, messageID int64) string {
	if messageID <= 0 {
		return ""
	}
	if _, err := strconv.ParseInt(groupID, 10, 64); err != nil {
		return ""
	}

	internalID := strings.TrimPrefix(groupID, supergroupPrefix)
	internalID = strings.TrimPrefix(internalID, "-")
	return "https://t.me/c/" + internalID + "/" + strconv.FormatInt(messageID, 10)
}
