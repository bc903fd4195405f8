package sweep

import (
	"strings"

	"github.com/afreisinger/gmail-telegram-notifications/internal/config"
)

// Actions is the set of actions matched for a sender.
type Actions uint8

const (
	ActionDelete Actions = 1 << iota
	ActionNotify
	ActionAttachment

	// ActionNone means the sender is in none of the lists.
	ActionNone Actions = 0
)

// Has reports whether all actions in b are set in a.
func (a Actions) Has(b Actions) bool {
	return a&b == b
}

func (a Actions) String() string {
	if a == ActionNone {
		return "none"
	}
	var names []string
	if a.Has(ActionDelete) {
		names = append(names, "delete")
	}
	if a.Has(ActionNotify) {
		names = append(names, "notify")
	}
	if a.Has(ActionAttachment) {
		names = append(names, "attachment")
	}
	return strings.Join(names, "|")
}

// Classifier matches senders against the three sender lists. Matching is
// exact on the lower-cased bare address.
type Classifier struct {
	lists config.SenderLists
}

// NewClassifier returns a Classifier over lists.
func NewClassifier(lists config.SenderLists) *Classifier {
	return &Classifier{lists: lists}
}

// Classify returns every action whose list contains sender.
func (c *Classifier) Classify(sender string) Actions {
	var a Actions
	if c.lists.Delete.Contains(sender) {
		a |= ActionDelete
	}
	if c.lists.Notify.Contains(sender) {
		a |= ActionNotify
	}
	if c.lists.Attachment.Contains(sender) {
		a |= ActionAttachment
	}
	return a
}
