package research

import "github.com/go-scripts/research/pkg/common"

// State is the phase a research run is in
type State int

const (
	StateIdle State = iota
	StateSearching
	StateExtractingResults
	StateVisitingSite
	StateExtractingContent
	StatePersisting
	StateSummarizing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSearching:
		return "searching"
	case StateExtractingResults:
		return "extracting results"
	case StateVisitingSite:
		return "visiting site"
	case StateExtractingContent:
		return "extracting content"
	case StatePersisting:
		return "persisting"
	case StateSummarizing:
		return "summarizing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Observer is notified as a run progresses
type Observer interface {
	StateChanged(s State)
	SearchCompleted(query string, results int)
	SiteStarted(index, total int, title, url string)
	SiteFinished(index, total int, status common.Status)
}

type nopObserver struct{}

func (nopObserver) StateChanged(State) {}
func (nopObserver) SearchCompleted(string, int) {}
func (nopObserver) SiteStarted(int, int, string, string) {}
func (nopObserver) SiteFinished(int, int, common.Status) {}
