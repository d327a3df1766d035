package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/bubbles/progress"

	"github.com/go-scripts/research/internal/research"
	"github.com/go-scripts/research/pkg/common"
)

// Tracker reports research progress on a terminal: a spinner while a site
// is being visited and an overall progress bar after each one.
type Tracker struct {
	out         io.Writer
	bar         progress.Model
	spin        *spinner.Spinner
	interactive bool

	mu       sync.Mutex
	total    int
	finished int
	counts   map[common.Status]int
	started  time.Time
}

// New creates a Tracker writing to out. The spinner only runs when
// interactive is set, since it redraws the current line in place.
func New(out io.Writer, interactive bool) *Tracker {
	t := &Tracker{
		out:         out,
		bar:         progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		interactive: interactive,
		counts:      make(map[common.Status]int),
	}
	if interactive {
		t.spin = spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(out))
	}
	return t
}

func (t *Tracker) StateChanged(s research.State) {
	switch s {
	case research.StateSearching:
		t.mu.Lock()
		t.started = time.Now()
		t.mu.Unlock()
		fmt.Fprintln(t.out, "Searching...")
	case research.StatePersisting:
		fmt.Fprintln(t.out, "Saving research data...")
	case research.StateFailed:
		t.stopSpinner()
	}
}

func (t *Tracker) SearchCompleted(query string, results int) {
	fmt.Fprintf(t.out, "Found %d results for %q\n", results, query)
}

func (t *Tracker) SiteStarted(index, total int, title, url string) {
	t.mu.Lock()
	t.total = total
	t.mu.Unlock()

	label := title
	if label == "" {
		label = url
	}
	if t.spin == nil {
		fmt.Fprintf(t.out, "[%d/%d] Visiting %s\n", index, total, label)
		return
	}
	t.spin.Suffix = fmt.Sprintf(" [%d/%d] Visiting %s", index, total, label)
	t.spin.Start()
}

func (t *Tracker) SiteFinished(index, total int, status common.Status) {
	t.stopSpinner()

	t.mu.Lock()
	t.finished++
	t.total = total
	t.counts[status]++
	percent := t.progressLocked()
	t.mu.Unlock()

	fmt.Fprintf(t.out, "Progress: %s %d/%d sites (%s)\n", t.bar.ViewAs(percent), index, total, status)
}

func (t *Tracker) stopSpinner() {
	if t.spin != nil && t.spin.Active() {
		t.spin.Stop()
	}
}

// Progress returns the fraction of sites finished
func (t *Tracker) Progress() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progressLocked()
}

func (t *Tracker) progressLocked() float64 {
	if t.total == 0 {
		return 0
	}
	return float64(t.finished) / float64(t.total)
}

// Counts returns how many sites finished with each status
func (t *Tracker) Counts() map[common.Status]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	counts := make(map[common.Status]int, len(t.counts))
	for k, v := range t.counts {
		counts[k] = v
	}
	return counts
}

// Elapsed returns the time since the search started
func (t *Tracker) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started.IsZero() {
		return 0
	}
	return time.Since(t.started)
}
