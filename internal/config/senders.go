package config

import (
	"fmt"
	"net/mail"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// Sender list names.
const (
	ListDelete     = "delete"
	ListNotify     = "notify"
	ListAttachment = "attachment"
)

const keyEmails = "emails"

// SenderList is a named set of lower-cased bare email addresses.
type SenderList struct {
	Name  string
	addrs map[string]struct{}
}

// NewSenderList builds a list from raw entries. Entries may be bare
// addresses or "Name <addr>" forms.
func NewSenderList(name string, entries ...string) (SenderList, error) {
	l := SenderList{Name: name, addrs: make(map[string]struct{}, len(entries))}
	for _, entry := range entries {
		addr, err := NormalizeAddress(entry)
		if err != nil {
			return SenderList{}, err
		}
		l.addrs[addr] = struct{}{}
	}
	return l, nil
}

// Contains reports whether addr is in the list. addr is expected to be a
// bare address, as found in a message envelope; it is only trimmed and
// lower-cased before the lookup.
func (l SenderList) Contains(addr string) bool {
	_, ok := l.addrs[strings.ToLower(strings.TrimSpace(addr))]
	return ok
}

// Len returns the number of addresses in the list.
func (l SenderList) Len() int {
	return len(l.addrs)
}

// Addresses returns the addresses in sorted order.
func (l SenderList) Addresses() []string {
	out := make([]string, 0, len(l.addrs))
	for addr := range l.addrs {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}

// SenderLists groups the three lists of a run.
type SenderLists struct {
	Delete     SenderList
	Notify     SenderList
	Attachment SenderList
}

// NormalizeAddress returns the lower-cased bare address of entry. Entries
// net/mail rejects are still accepted when they look like a bare
// local@domain address, since mail stores deliver such senders.
func NormalizeAddress(entry string) (string, error) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return "", fmt.Errorf("empty address")
	}
	parsed, err := mail.ParseAddress(entry)
	if err == nil {
		return strings.ToLower(parsed.Address), nil
	}
	if isBareAddress(entry) {
		return strings.ToLower(entry), nil
	}
	return "", fmt.Errorf("invalid address %q: %w", entry, err)
}

func isBareAddress(s string) bool {
	if strings.ContainsAny(s, " \t<>,;\"") {
		return false
	}
	local, domain, ok := strings.Cut(s, "@")
	return ok && local != "" && domain != "" && !strings.Contains(domain, "@")
}

// LoadSenderList reads a JSON file of the form {"emails": [...]}. An absent
// or empty "emails" key yields an empty list.
func LoadSenderList(name, path string) (SenderList, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		return SenderList{}, &ConfigError{Path: path, Err: fmt.Errorf("reading %s list: %w", name, err)}
	}

	var entries []string
	switch raw := v.Get(keyEmails).(type) {
	case nil:
	case []any:
		for i, item := range raw {
			s, ok := item.(string)
			if !ok {
				return SenderList{}, &ConfigError{
					Path: path,
					Key:  fmt.Sprintf("%s[%d]", keyEmails, i),
					Err:  fmt.Errorf("expected a string, got %T", item),
				}
			}
			entries = append(entries, s)
		}
	default:
		return SenderList{}, &ConfigError{Path: path, Key: keyEmails, Err: fmt.Errorf("expected a list of addresses, got %T", raw)}
	}

	list, err := NewSenderList(name, entries...)
	if err != nil {
		return SenderList{}, &ConfigError{Path: path, Key: keyEmails, Err: err}
	}
	return list, nil
}

// LoadSenderLists loads the delete, notify and attachment lists named in s.
func LoadSenderLists(s Settings) (SenderLists, error) {
	var (
		lists SenderLists
		err   error
	)
	if lists.Delete, err = LoadSenderList(ListDelete, s.DeleteListFile); err != nil {
		return SenderLists{}, err
	}
	if lists.Notify, err = LoadSenderList(ListNotify, s.NotifyListFile); err != nil {
		return SenderLists{}, err
	}
	if lists.Attachment, err = LoadSenderList(ListAttachment, s.AttachmentListFile); err != nil {
		return SenderLists{}, err
	}
	return lists, nil
}
