package ui

import (
	"fmt"
	"sync"
	"time"
)

// Outcome is one finished user in a batch
type Outcome struct {
	UserID   string
	Kind     string
	Count    int
	Max      int
	Path     string
	Duration time.Duration
	Err      error
}

// ProgressDisplay prints one line per finished user and a closing summary
type ProgressDisplay struct {
	mu        sync.Mutex
	kind      string
	total     int
	done      int
	collected int
	failed    int
	startTime time.Time
}

// NewProgressDisplay tracks total users of kind
func NewProgressDisplay(kind string, total int) *ProgressDisplay {
	return &ProgressDisplay{
		kind:      kind,
		total:     total,
		startTime: time.Now(),
	}
}

// Complete records a finished user and prints its line
func (p *ProgressDisplay) Complete(o Outcome) {
	p.mu.Lock()
	p.done++
	prefix := fmt.Sprintf("[%d/%d]", p.done, p.total)
	if o.Err != nil {
		p.failed++
	} else {
		p.collected += o.Count
	}
	p.mu.Unlock()

	if o.Err != nil {
		PrintError(fmt.Sprintf("%s %s %s failed", prefix, o.UserID, o.Kind), o.Err)
		return
	}

	printf(false, "%s %s %s %s %s\n",
		Dim(prefix),
		Green("✓"),
		Cyan(o.UserID),
		fmt.Sprintf("%d/%d %s in %s", o.Count, o.Max, o.Kind, FormatDuration(o.Duration)),
		Dim(o.Path),
	)
}

// Failed returns how many users failed so far
func (p *ProgressDisplay) Failed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failed
}

// Finish prints the summary
func (p *ProgressDisplay) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := time.Since(p.startTime)
	printf(false, "\n%s Collected %d %s from %d users in %s\n",
		Green("✓"),
		p.collected,
		p.kind,
		p.done-p.failed,
		FormatDuration(elapsed),
	)
	if p.failed > 0 {
		printf(false, "  %s %d users failed\n", Dim("•"), p.failed)
	}
}

// RateLimitWarning tells the user a long wait is in progress
func RateLimitWarning(userID string, wait time.Duration) {
	printf(false, "%s %s rate limited, waiting %s\n", Yellow("⚠"), userID, FormatDuration(wait))
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
