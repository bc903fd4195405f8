package telegram

import (
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSummary(t *testing.T) {
	date := time.Date(2024, 11, 2, 18, 5, 0, 0, time.UTC)
	entries := []Entry{
		{Sender: "boss@x.com", Subject: "Report", Date: date},
		{Sender: "hr@x.com", Subject: "  Payroll\r\n  update ", Date: date},
		{Sender: "ops@x.com"},
	}

	want := strings.Join([]string{
		"New email(s):",
		"boss@x.com | Report | 2024-11-02 18:05",
		"hr@x.com |   Payroll   update  | 2024-11-02 18:05",
		"ops@x.com | (no subject) | -",
	}, "\n")
	assert.Equal(t, want, FormatSummary(entries))
}

func TestFormatSummary_SubjectKeptVerbatim(t *testing.T) {
	tests := []struct {
		name    string
		subject string
	}{
		{name: "repeated spaces", subject: "Q1  report\t(final)"},
		{name: "long subject", subject: strings.Repeat("x", 250)},
		{name: "leading and trailing space", subject: " padded "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := FormatSummary([]Entry{{Sender: "boss@x.com", Subject: tt.subject}})

			lines := strings.Split(text, "\n")
			require.Len(t, lines, 2)
			assert.Equal(t, 1, strings.Count(text, tt.subject))
			assert.Equal(t, "boss@x.com | "+tt.subject+" | -", lines[1])
		})
	}
}

func TestFormatSummary_LineBreaksInSubject(t *testing.T) {
	text := FormatSummary([]Entry{{Sender: "a@b.c", Subject: "first\r\nsecond\nthird"}})

	lines := strings.Split(text, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "a@b.c | first second third | -", lines[1])
}

func TestFormatSummary_Truncation(t *testing.T) {
	entries := make([]Entry, 200)
	for i := range entries {
		entries[i] = Entry{
			Sender:  fmt.Sprintf("sender%03d@example.com", i),
			Subject: "Weekly digest número " + strings.Repeat("ñ", 20),
		}
	}

	text := FormatSummary(entries)
	assert.LessOrEqual(t, utf8.RuneCountInString(text), MaxMessageLength)

	lines := strings.Split(text, "\n")
	last := lines[len(lines)-1]
	kept := len(lines) - 2 // header and trailer
	assert.Equal(t, fmt.Sprintf("... and %d more", len(entries)-kept), last)
	assert.Equal(t, "sender000@example.com", strings.Split(lines[1], " | ")[0])
}

func TestFormatSummary_ExactFit(t *testing.T) {
	// A summary right at the limit is sent whole.
	line := formatLine(Entry{Sender: "a@b.c", Subject: "s"})
	header := utf8.RuneCountInString(summaryHeader)
	n := (MaxMessageLength - header) / (len(line) + 1)

	entries := make([]Entry, n)
	for i := range entries {
		entries[i] = Entry{Sender: "a@b.c", Subject: "s"}
	}

	text := FormatSummary(entries)
	assert.NotContains(t, text, "more")
	assert.Equal(t, n+1, strings.Count(text, "\n")+1)
}
