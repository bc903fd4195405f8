package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// Credential file keys.
const (
	KeyUser           = "user"
	KeyPassword       = "password"
	KeyTelegramToken  = "telegram_token"
	KeyTelegramChatID = "telegram_chat_id"
)

// Credentials holds the mailbox login and the Telegram bot target.
type Credentials struct {
	// User is the Gmail address used to log in to IMAP.
	User string

	// Password is the Gmail app password.
	Password string

	// TelegramToken is the bot token issued by BotFather.
	TelegramToken string

	// TelegramChatID is the chat that receives the summary.
	TelegramChatID string
}

// String masks the secrets so a Credentials value is safe to print.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{User: %s, Password: ***, TelegramToken: ***, TelegramChatID: %s}",
		c.User, c.TelegramChatID)
}

// LoadCredentials reads the YAML credentials file at path. Every key must be
// present and non-empty.
func LoadCredentials(path string) (Credentials, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return Credentials{}, &ConfigError{Path: path, Err: fmt.Errorf("reading credentials: %w", err)}
	}

	for _, key := range []string{KeyUser, KeyPassword, KeyTelegramToken, KeyTelegramChatID} {
		if !v.IsSet(key) || v.GetString(key) == "" {
			return Credentials{}, &ConfigError{Path: path, Key: key, Err: errors.New("required value is missing")}
		}
	}

	return Credentials{
		User:           v.GetString(KeyUser),
		Password:       v.GetString(KeyPassword),
		TelegramToken:  v.GetString(KeyTelegramToken),
		TelegramChatID: v.GetString(KeyTelegramChatID),
	}, nil
}
