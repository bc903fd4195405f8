// Package sweep runs one pass over the mailbox.
//
// A Classifier maps a sender to the set of actions configured for it. The
// Dispatcher walks the mailbox once, in the order the mailbox lists messages,
// and applies every matched action independently: attachments are saved,
// notify matches are collected, delete matches are flagged. The Runner drives
// the whole run as a linear state machine:
//
//	Idle → LoadingConfig → Connected → Scanning → FinalizingDeletions →
//	Notifying → Reporting → Done
//
// A failure while loading configuration or connecting moves the run to
// Failed without attempting later stages. Failures of single actions,
// the expunge or the notification are collected in the Result instead.
package sweep
