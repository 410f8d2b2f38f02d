package merge

import (
	"fmt"
	"slices"
	"sync"
)

// Issue records one validation finding for one input file. Skipped issues are
// non-fatal: the offending row or file was excluded and the merge continued.
// Non-skipped issues are critical and, absent the skip-invalid-files option,
// abort the run.
type Issue struct {
	File    string
	Skipped bool
	Message string
}

func (i Issue) String() string {
	severity := "error"
	if i.Skipped {
		severity = "warning"
	}
	return fmt.Sprintf("%s: %s: %s", severity, i.File, i.Message)
}

// IssueList is the append-only sink validators and the orchestrator write
// into. It keeps insertion order and is safe for use from multiple goroutines.
type IssueList struct {
	mu     sync.Mutex
	issues []Issue
}

func NewIssueList() *IssueList {
	return &IssueList{}
}

func (l *IssueList) Append(file string, skipped bool, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.issues = append(l.issues, Issue{
		File:    file,
		Skipped: skipped,
		Message: fmt.Sprintf(format, args...),
	})
}

// Items returns a snapshot of the accumulated issues in insertion order.
func (l *IssueList) Items() []Issue {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.issues)
}

func (l *IssueList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.issues)
}

// HasCritical reports whether any non-skipped issue has been recorded.
func (l *IssueList) HasCritical() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, issue := range l.issues {
		if !issue.Skipped {
			return true
		}
	}
	return false
}
