package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
	barWidth      = 20
)

// Tracker shows progress through a sweep of sequential requests on stderr
type Tracker struct {
	label     string
	total     int
	done      int
	startTime time.Time
	bar       progress.Model
}

// NewTracker creates a tracker for total steps
func NewTracker(label string, total int) *Tracker {
	return &Tracker{
		label:     label,
		total:     total,
		startTime: time.Now(),
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(barWidth),
			progress.WithoutPercentage(),
		),
	}
}

// Step records one finished step and redraws the progress line
func (t *Tracker) Step(name string) {
	t.done++
	if IsQuiet() {
		return
	}
	fmt.Fprintf(Stderr, "\r%s %s %s", Magenta("["+t.label+"]"), t.Bar(), Dim(name))
}

// Finish ends the progress line
func (t *Tracker) Finish() {
	if IsQuiet() {
		return
	}
	fmt.Fprintf(Stderr, "\n%s %d/%d in %s\n", Green("[DONE]"), t.done, t.total, t.Elapsed().Round(time.Millisecond))
}

// Bar returns a formatted progress bar, drawn with a gradient when colors
// are enabled
func (t *Tracker) Bar() string {
	if colored() {
		return fmt.Sprintf("%s %d/%d", t.bar.ViewAs(t.percent()), t.done, t.total)
	}

	filled := 0
	if t.total > 0 {
		filled = t.done * barWidth / t.total
	}
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, barWidth-filled)
	return fmt.Sprintf("[%s] %d/%d", bar, t.done, t.total)
}

func (t *Tracker) percent() float64 {
	if t.total <= 0 {
		return 0
	}
	p := float64(t.done) / float64(t.total)
	if p > 1 {
		p = 1
	}
	return p
}

// Done returns the number of finished steps
func (t *Tracker) Done() int {
	return t.done
}

// Elapsed returns the time since the tracker was created
func (t *Tracker) Elapsed() time.Duration {
	return time.Since(t.startTime)
}
