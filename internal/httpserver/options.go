package httpserver

import (
	"io/fs"
	"time"

	"github.com/keithlinneman/linnemanlabs-pipeline/internal/httpmw"
	"github.com/keithlinneman/linnemanlabs-pipeline/internal/items"
	"github.com/keithlinneman/linnemanlabs-pipeline/internal/log"
	"github.com/keithlinneman/linnemanlabs-pipeline/internal/metrics"
)

// DefaultMaxBodyBytes caps request bodies.
const DefaultMaxBodyBytes = 2048

type Options struct {
	Logger log.Logger
	// Port defaults to 3000.
	Port int

	// Origins is the CORS allow-list. nil allows no cross-origin requests.
	Origins      httpmw.OriginMatcher
	MaxBodyBytes int64

	// Runner supervises item work. Required.
	Runner        items.Runner
	ItemWorkDelay time.Duration
	// ItemWork replaces the simulated delay; tests only.
	ItemWork items.WorkFunc

	// Site defaults to the embedded landing page.
	Site fs.FS

	// Draining, when set, makes responses close keep-alive connections
	// during shutdown.
	Draining func() bool

	// Metrics is optional; nil disables instrumentation.
	Metrics *metrics.ServerMetrics
}
