package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/afreisinger/gmail-telegram-notifications/internal/sweep"
)

const dateLayout = "2006-01-02 15:04"

// Reporter writes run summaries to w.
type Reporter struct {
	w io.Writer
}

// New returns a Reporter writing to w.
func New(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// Print writes the counts table followed by a section for every non-empty
// part of the result: deletions per sender, notifications, saved
// attachments and errors.
func (r *Reporter) Print(res *sweep.Result) error {
	if res == nil {
		return nil
	}

	summary := [][]string{
		{"Messages scanned", strconv.Itoa(res.Scanned)},
		{"Messages deleted", strconv.Itoa(res.Deleted)},
		{"Messages notified", strconv.Itoa(res.Notified)},
		{"Attachments saved", strconv.Itoa(res.AttachmentsSaved)},
		{"Errors", strconv.Itoa(len(res.Errors))},
	}
	if err := r.table("Summary", []string{"Action", "Count"}, summary); err != nil {
		return err
	}

	if counts := res.DeletionsBySender(); len(counts) > 0 {
		rows := make([][]string, len(counts))
		for i, c := range counts {
			rows[i] = []string{c.Sender, strconv.Itoa(c.Count)}
		}
		if err := r.table("Deleted", []string{"Email", "Count"}, rows); err != nil {
			return err
		}
	}

	if len(res.Notifications) > 0 {
		title := "Notified"
		if !res.NotificationSent {
			title = "Notified (not delivered)"
		}
		rows := make([][]string, len(res.Notifications))
		for i, n := range res.Notifications {
			rows[i] = []string{n.Sender, n.Subject, formatDate(n)}
		}
		if err := r.table(title, []string{"From", "Subject", "Date"}, rows); err != nil {
			return err
		}
	}

	if len(res.Attachments) > 0 {
		rows := make([][]string, len(res.Attachments))
		for i, a := range res.Attachments {
			rows[i] = []string{a.Sender, a.Path, humanize.Bytes(uint64(a.Size))}
		}
		if err := r.table("Attachments", []string{"From", "File", "Size"}, rows); err != nil {
			return err
		}
	}

	if len(res.Errors) > 0 {
		rows := make([][]string, len(res.Errors))
		for i, err := range res.Errors {
			rows[i] = []string{sweep.ErrorKind(err), err.Error()}
		}
		if err := r.table("Errors", []string{"Kind", "Error"}, rows); err != nil {
			return err
		}
	}

	return nil
}

func (r *Reporter) table(title string, header []string, rows [][]string) error {
	if _, err := fmt.Fprintf(r.w, "\n%s\n", title); err != nil {
		return err
	}

	cols := make([]any, len(header))
	for i, h := range header {
		cols[i] = h
	}

	table := tablewriter.NewWriter(r.w)
	table.Header(cols...)
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return fmt.Errorf("report %s: %w", title, err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("report %s: %w", title, err)
	}
	return nil
}

func formatDate(n sweep.NotificationEntry) string {
	if n.Date.IsZero() {
		return "-"
	}
	return n.Date.Format(dateLayout)
}
