package mailbox

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

var wordDecoder = &mime.WordDecoder{CharsetReader: charset.Reader}

// messageFromBuffer converts a fetched envelope into a Message.
func messageFromBuffer(buf *imapclient.FetchMessageBuffer) *Message {
	msg := &Message{UID: uint32(buf.UID)}

	if env := buf.Envelope; env != nil {
		msg.Subject = env.Subject
		msg.Date = env.Date

		if len(env.From) > 0 {
			from := env.From[0]
			msg.Sender = NormalizeSender(from.Addr())
			msg.SenderName = from.Name
		}
	}

	for _, flag := range buf.Flags {
		if flag == imap.FlagSeen {
			msg.Seen = true
			break
		}
	}

	return msg
}

// NormalizeSender lower-cases and trims an envelope address.
func NormalizeSender(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// parseAttachments walks a raw RFC 5322 message and returns the parts whose
// Content-Disposition is "attachment" and that carry a filename. Inline parts
// and attachments without a filename are skipped.
func parseAttachments(raw []byte) ([]Attachment, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing message: %w", err)
	}
	defer mr.Close()

	var attachments []Attachment
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return attachments, fmt.Errorf("reading MIME part: %w", err)
		}

		h, ok := part.Header.(*mail.AttachmentHeader)
		if !ok {
			continue
		}

		disp, _, err := h.ContentDisposition()
		if err != nil || !strings.EqualFold(disp, "attachment") {
			continue
		}

		filename, err := h.Filename()
		if err != nil {
			continue
		}
		if decoded, err := wordDecoder.DecodeHeader(filename); err == nil {
			filename = decoded
		}
		if strings.TrimSpace(filename) == "" {
			continue
		}

		contentType, _, _ := h.ContentType()

		data, err := io.ReadAll(part.Body)
		if err != nil {
			return attachments, fmt.Errorf("reading attachment %q: %w", filename, err)
		}

		attachments = append(attachments, Attachment{
			Filename:    filename,
			ContentType: contentType,
			Data:        data,
		})
	}

	return attachments, nil
}
