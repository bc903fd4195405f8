// Package report prints the outcome of a run as terminal tables.
package report
