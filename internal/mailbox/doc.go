// Package mailbox owns one authenticated IMAP session against the mail store.
//
// A Session is opened with Dial, which connects over TLS, logs in and selects
// the mailbox to scan. It exposes the operations the sweep needs:
//   - ForeachMessage iterates the mailbox in UID order, one envelope batch at a time
//   - Attachments downloads a message and returns its attachment parts
//   - Delete marks a message \Deleted (tentative until committed)
//   - MarkSeen sets \Seen on a message
//   - Expunge commits pending deletions
//   - Close commits what is still pending and logs out
//
// Every command runs under a deadline on the underlying connection so a stuck
// server surfaces as a *ConnectionError instead of hanging the run.
//
// Example usage:
//
//	sess, err := mailbox.Dial(ctx, mailbox.Options{
//	    Addr:     "imap.gmail.com:993",
//	    User:     creds.User,
//	    Password: creds.Password,
//	})
//	if err != nil {
//	    return err
//	}
//	defer sess.Close(ctx)
//
//	err = sess.ForeachMessage(ctx, func(m *mailbox.Message) error {
//	    fmt.Println(m.UID, m.Sender, m.Subject)
//	    return nil
//	})
package mailbox
