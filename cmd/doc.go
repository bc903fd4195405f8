// Package cmd implements the command-line interface for gmailnotify.
//
// This package provides the following commands:
//   - run: Sweep the mailbox, save attachments, notify Telegram and print a report
//   - version: Display version information
//
// The run command is the default command when no subcommand is specified.
package cmd
