package crawl

import (
	"io"
	"math/rand"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/go-scripts/research/internal/browser/browsertest"
	"github.com/go-scripts/research/pkg/common"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func testHumanizer() *Humanizer {
	return NewHumanizer(common.DefaultConfiguration().Humanize,
		WithRand(rand.New(rand.NewSource(1))),
		WithSleep(NoSleep),
	)
}

func newTestNavigator(t *testing.T, d *browsertest.Driver) *Navigator {
	t.Helper()
	return NewNavigator(browsertest.NewProvider(d), testHumanizer(), NavigatorConfig{
		MaxRetries:    3,
		MaxTextLength: 50,
	}, testLogger())
}

func newTestInteractor(t *testing.T, d *browsertest.Driver) *Interactor {
	t.Helper()
	return NewInteractor(browsertest.NewProvider(d), testHumanizer(), testLogger())
}

