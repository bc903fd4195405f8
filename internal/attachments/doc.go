// Package attachments writes message attachments to a local directory.
//
// Files are named <uid>_<filename>. A name that is already taken gets a
// numeric suffix before its extension (report.pdf, report-1.pdf, ...) and
// files are created with O_EXCL, so an existing file is never overwritten.
package attachments
