package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by LoadSettings.
const EnvPrefix = "GMAILNOTIFY"

// Setting keys. The matching environment variable is EnvPrefix + "_" + the
// upper-cased key, e.g. GMAILNOTIFY_ATTACHMENT_DIR.
const (
	KeyCredentialsFile    = "credentials_file"
	KeyDeleteListFile     = "delete_list_file"
	KeyNotifyListFile     = "notify_list_file"
	KeyAttachmentListFile = "attachment_list_file"
	KeyAttachmentDir      = "attachment_dir"
	KeyIMAPAddr           = "imap_addr"
	KeyMailbox            = "mailbox"
	KeyIMAPTimeout        = "imap_timeout"
	KeyFetchBatchSize     = "fetch_batch_size"
	KeyTelegramAPIURL     = "telegram_api_url"
	KeyNotifyTimeout      = "notify_timeout"
	KeyNotifyUnseenOnly   = "notify_unseen_only"
	KeyMarkNotifiedSeen   = "mark_notified_seen"
	KeyLogLevel           = "log_level"
	KeyLogFormat          = "log_format"
)

// Defaults for a run started from the directory holding the config files.
const (
	DefaultCredentialsFile    = "credentials.yaml"
	DefaultDeleteListFile     = "delete_email_list.json"
	DefaultNotifyListFile     = "notify_email_list.json"
	DefaultAttachmentListFile = "attachment_senders.json"
	DefaultAttachmentDir      = "./attachments"
	DefaultIMAPAddr           = "imap.gmail.com:993"
	DefaultMailbox            = "INBOX"
	DefaultIMAPTimeout        = 30 * time.Second
	DefaultFetchBatchSize     = 50
	DefaultTelegramAPIURL     = "https://api.telegram.org"
	DefaultNotifyTimeout      = 15 * time.Second
)

// Settings holds the run settings. Paths are relative to the working
// directory unless absolute.
type Settings struct {
	CredentialsFile    string
	DeleteListFile     string
	NotifyListFile     string
	AttachmentListFile string
	AttachmentDir      string

	// IMAPAddr is host:port of the IMAP server, reached over TLS.
	IMAPAddr string
	// Mailbox is the folder scanned each run.
	Mailbox string
	// IMAPTimeout bounds the dial and every IMAP command.
	IMAPTimeout time.Duration
	// FetchBatchSize is the number of envelopes fetched per round trip.
	FetchBatchSize int

	TelegramAPIURL string
	NotifyTimeout  time.Duration

	// NotifyUnseenOnly limits notifications to messages without \Seen.
	NotifyUnseenOnly bool
	// MarkNotifiedSeen sets \Seen on every message put in the summary.
	MarkNotifiedSeen bool

	LogLevel  string
	LogFormat string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyCredentialsFile, DefaultCredentialsFile)
	v.SetDefault(KeyDeleteListFile, DefaultDeleteListFile)
	v.SetDefault(KeyNotifyListFile, DefaultNotifyListFile)
	v.SetDefault(KeyAttachmentListFile, DefaultAttachmentListFile)
	v.SetDefault(KeyAttachmentDir, DefaultAttachmentDir)
	v.SetDefault(KeyIMAPAddr, DefaultIMAPAddr)
	v.SetDefault(KeyMailbox, DefaultMailbox)
	v.SetDefault(KeyIMAPTimeout, DefaultIMAPTimeout)
	v.SetDefault(KeyFetchBatchSize, DefaultFetchBatchSize)
	v.SetDefault(KeyTelegramAPIURL, DefaultTelegramAPIURL)
	v.SetDefault(KeyNotifyTimeout, DefaultNotifyTimeout)
	v.SetDefault(KeyNotifyUnseenOnly, false)
	v.SetDefault(KeyMarkNotifiedSeen, false)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
}

// LoadSettings reads the run settings from GMAILNOTIFY_* environment
// variables, falling back to the defaults above.
func LoadSettings() (Settings, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	s := Settings{
		CredentialsFile:    v.GetString(KeyCredentialsFile),
		DeleteListFile:     v.GetString(KeyDeleteListFile),
		NotifyListFile:     v.GetString(KeyNotifyListFile),
		AttachmentListFile: v.GetString(KeyAttachmentListFile),
		AttachmentDir:      v.GetString(KeyAttachmentDir),
		IMAPAddr:           v.GetString(KeyIMAPAddr),
		Mailbox:            v.GetString(KeyMailbox),
		IMAPTimeout:        v.GetDuration(KeyIMAPTimeout),
		FetchBatchSize:     v.GetInt(KeyFetchBatchSize),
		TelegramAPIURL:     strings.TrimRight(v.GetString(KeyTelegramAPIURL), "/"),
		NotifyTimeout:      v.GetDuration(KeyNotifyTimeout),
		NotifyUnseenOnly:   v.GetBool(KeyNotifyUnseenOnly),
		MarkNotifiedSeen:   v.GetBool(KeyMarkNotifiedSeen),
		LogLevel:           v.GetString(KeyLogLevel),
		LogFormat:          v.GetString(KeyLogFormat),
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks that the settings are usable.
func (s *Settings) Validate() error {
	for key, val := range map[string]string{
		KeyCredentialsFile:    s.CredentialsFile,
		KeyDeleteListFile:     s.DeleteListFile,
		KeyNotifyListFile:     s.NotifyListFile,
		KeyAttachmentListFile: s.AttachmentListFile,
		KeyAttachmentDir:      s.AttachmentDir,
		KeyMailbox:            s.Mailbox,
		KeyTelegramAPIURL:     s.TelegramAPIURL,
	} {
		if strings.TrimSpace(val) == "" {
			return &ConfigError{Key: key, Err: errors.New("must not be empty")}
		}
	}

	if _, _, err := net.SplitHostPort(s.IMAPAddr); err != nil {
		return &ConfigError{Key: KeyIMAPAddr, Err: fmt.Errorf("expected host:port: %w", err)}
	}
	if s.IMAPTimeout <= 0 {
		return &ConfigError{Key: KeyIMAPTimeout, Err: fmt.Errorf("must be positive, got %s", s.IMAPTimeout)}
	}
	if s.NotifyTimeout <= 0 {
		return &ConfigError{Key: KeyNotifyTimeout, Err: fmt.Errorf("must be positive, got %s", s.NotifyTimeout)}
	}
	if s.FetchBatchSize <= 0 {
		return &ConfigError{Key: KeyFetchBatchSize, Err: fmt.Errorf("must be positive, got %d", s.FetchBatchSize)}
	}
	return nil
}
