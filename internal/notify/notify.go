// Package notify reports the outcome of user actions.
package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/nikbrunner/quickmark/internal/logger"
	"github.com/nikbrunner/quickmark/internal/merge"
)

// Notifier delivers a short status message. Delivery is best effort and
// never reports failure.
type Notifier interface {
	Notify(msg string)
}

// Fixed messages.
const (
	MsgAdded          = "Bookmark added"
	MsgAlreadySaved   = "Already bookmarked"
	MsgRemoved        = "Bookmark removed"
	MsgNotBookmarked  = "Not bookmarked"
	MsgAddFailed      = "Failed to add bookmark"
	MsgRemoveFailed   = "Failed to remove bookmark"
	MsgImportFailed   = "Import failed"
	importSummaryText = "Imported %d bookmarks, skipped %d"
)

// ImportSummary formats the message shown after an import.
func ImportSummary(stats merge.Stats) string {
	msg := fmt.Sprintf(importSummaryText, stats.Added, stats.Skipped)
	if stats.Invalid > 0 {
		msg += fmt.Sprintf(" (%d invalid)", stats.Invalid)
	}
	return msg
}

// AddOutcome picks the message for the result of an add.
func AddOutcome(outcome merge.Outcome, err error) string {
	switch {
	case err != nil:
		return MsgAddFailed
	case outcome == merge.DuplicateSkipped:
		return MsgAlreadySaved
	default:
		return MsgAdded
	}
}

// RemoveOutcome picks the message for the result of a removal.
func RemoveOutcome(removed bool, err error) string {
	switch {
	case err != nil:
		return MsgRemoveFailed
	case !removed:
		return MsgNotBookmarked
	default:
		return MsgRemoved
	}
}

// WriterNotifier prints one message per line.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterNotifier creates a notifier printing to w.
func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (n *WriterNotifier) Notify(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, _ = fmt.Fprintln(n.w, msg)
}

// LogNotifier records messages as info log entries.
type LogNotifier struct {
	log logger.Logger
}

// NewLogNotifier creates a notifier writing to log.
func NewLogNotifier(log logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(msg string) {
	n.log.Info("notification", logger.String("message", msg))
}
