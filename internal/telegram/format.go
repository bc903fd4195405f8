package telegram

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// MaxMessageLength is the longest text sendMessage accepts, in characters.
	MaxMessageLength = 4096

	summaryHeader = "New email(s):"
	dateLayout    = "2006-01-02 15:04"
)

// FormatSummary renders the entries as a header followed by one
// "sender | subject | date" line per entry. If the text would exceed
// MaxMessageLength, trailing lines are replaced by "... and N more".
func FormatSummary(entries []Entry) string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = formatLine(e)
	}

	var b strings.Builder
	b.WriteString(summaryHeader)
	length := utf8.RuneCountInString(summaryHeader)

	for i, line := range lines {
		lineLen := 1 + utf8.RuneCountInString(line)
		reserve := 0
		if rest := len(lines) - i - 1; rest > 0 {
			reserve = utf8.RuneCountInString(moreTrailer(rest))
		}
		if length+lineLen+reserve > MaxMessageLength {
			b.WriteString(moreTrailer(len(lines) - i))
			break
		}
		b.WriteByte('\n')
		b.WriteString(line)
		length += lineLen
	}

	return b.String()
}

func formatLine(e Entry) string {
	date := "-"
	if !e.Date.IsZero() {
		date = e.Date.Format(dateLayout)
	}
	// The subject is sent as received; only line breaks are flattened so
	// each entry stays on its own line.
	subject := lineBreaks.Replace(e.Subject)
	if strings.TrimSpace(subject) == "" {
		subject = "(no subject)"
	}
	return fmt.Sprintf("%s | %s | %s", e.Sender, subject, date)
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

func moreTrailer(n int) string {
	return fmt.Sprintf("\n... and %d more", n)
}
