package reduce

import (
	"os"
	"sync"

	"github.com/labstack/gommon/log"
)

// Launch describes one kernel launch of a reduction, reported to observers.
type Launch struct {
	Level   int // 0 for the pass over the input, then one per recursive pass
	N       int // elements reduced by this launch
	Threads int
	Blocks  int
	Pow2    bool // whether the bounds-check-free path was taken
}

type config struct {
	device         Device
	maxThreads     int
	maxBlocks      int
	finalThreshold int
	abort          bool
	logger         *log.Logger
	observe        func(Launch)
}

// Option configures a reduction.
type Option func(*config)

// WithDevice selects the device. The default is a shared CPU device.
func WithDevice(d Device) Option {
	return func(c *config) {
		if d != nil {
			c.device = d
		}
	}
}

// WithMaxThreads caps threads per block, rounded down to a power of two.
func WithMaxThreads(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxThreads = floorPow2(n)
		}
	}
}

// WithMaxBlocks caps blocks per launch.
func WithMaxBlocks(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxBlocks = n
		}
	}
}

// WithFinalThreshold sets the partial count at or below which the host
// finishes the reduction.
func WithFinalThreshold(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.finalThreshold = n
		}
	}
}

// WithAbortOnDeviceFailure makes device allocation failures panic instead of
// returning an error.
func WithAbortOnDeviceFailure() Option {
	return func(c *config) {
		c.abort = true
	}
}

// WithLogger sets the logger used for sizing diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver registers a callback invoked before every launch.
func WithObserver(fn func(Launch)) Option {
	return func(c *config) {
		c.observe = fn
	}
}

var (
	defaultOnce   sync.Once
	defaultDevice Device
	defaultLogger *log.Logger
)

func defaults() (Device, *log.Logger) {
	defaultOnce.Do(func() {
		defaultDevice = NewCPU()
		defaultLogger = log.New("reduce")
		defaultLogger.SetOutput(os.Stderr)
		defaultLogger.SetLevel(log.WARN)
	})
	return defaultDevice, defaultLogger
}

func newConfig(opts []Option) *config {
	dev, logger := defaults()
	c := &config{
		device:         dev,
		maxThreads:     256,
		maxBlocks:      64,
		finalThreshold: 1,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
