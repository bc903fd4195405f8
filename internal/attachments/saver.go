package attachments

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"

	"github.com/afreisinger/gmail-telegram-notifications/internal/logging"
	"github.com/afreisinger/gmail-telegram-notifications/internal/mailbox"
)

const (
	// DefaultDir is used when a Saver is created with an empty directory.
	DefaultDir = "./attachments"

	fallbackName = "attachment"
	maxSuffix    = 1000
)

// Saved describes one attachment written to disk.
type Saved struct {
	UID      uint32
	Filename string // name as found in the message
	Path     string
	Size     int64
}

// Saver writes attachments under a single directory.
type Saver struct {
	dir    string
	logger *slog.Logger
}

// NewSaver returns a Saver writing to dir. The directory is created on the
// first Save.
func NewSaver(dir string, logger *slog.Logger) *Saver {
	if dir == "" {
		dir = DefaultDir
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Saver{
		dir:    dir,
		logger: logging.WithComponent(logger, "attachments"),
	}
}

// Dir returns the output directory.
func (s *Saver) Dir() string {
	return s.dir
}

// Save writes every part of the message with the given UID. A part that
// cannot be written yields a *WriteError and the remaining parts are still
// attempted.
func (s *Saver) Save(uid uint32, parts []mailbox.Attachment) ([]Saved, []error) {
	if len(parts) == 0 {
		return nil, nil
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		werr := &WriteError{Path: s.dir, Err: err}
		errs := make([]error, len(parts))
		for i := range parts {
			errs[i] = werr
		}
		return nil, errs
	}

	var saved []Saved
	var errs []error
	for _, part := range parts {
		path, err := s.write(uid, part)
		if err != nil {
			s.logger.Warn("attachment not saved",
				logging.UID(uid),
				slog.String("filename", part.Filename),
				logging.Err(err))
			errs = append(errs, err)
			continue
		}

		size := int64(len(part.Data))
		s.logger.Debug("attachment saved",
			logging.UID(uid),
			slog.String("path", path),
			slog.String("size", humanize.IBytes(uint64(size))))
		saved = append(saved, Saved{
			UID:      uid,
			Filename: part.Filename,
			Path:     path,
			Size:     size,
		})
	}

	return saved, errs
}

func (s *Saver) write(uid uint32, part mailbox.Attachment) (string, error) {
	name := fmt.Sprintf("%d_%s", uid, SanitizeFilename(part.Filename))
	f, path, err := s.create(name)
	if err != nil {
		return path, err
	}

	if _, err := f.Write(part.Data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return path, &WriteError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return path, &WriteError{Path: path, Err: err}
	}
	return path, nil
}

// create opens a new file for name in the output directory, adding a -N
// suffix before the extension while the name is taken.
func (s *Saver) create(name string) (*os.File, string, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	path := filepath.Join(s.dir, name)
	for n := 1; ; n++ {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, path, &WriteError{Path: path, Err: err}
		}
		if n > maxSuffix {
			return nil, path, &WriteError{Path: path, Err: fmt.Errorf("no free name after %d attempts", maxSuffix)}
		}
		path = filepath.Join(s.dir, fmt.Sprintf("%s-%d%s", base, n, ext))
	}
}

// SanitizeFilename reduces an attachment name to a single safe path element.
func SanitizeFilename(filename string) string {
	// Remove path separators and other potentially dangerous characters
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")
	filename = strings.ReplaceAll(filename, "..", "_")
	filename = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, filename)
	filename = strings.TrimSpace(filename)

	if filename == "" || filename == "." {
		return fallbackName
	}
	return filename
}
