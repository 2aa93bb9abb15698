package world

import (
	"log/slog"
	"time"

	"github.com/quarry-mc/quarry/server/block/cube"
	"github.com/quarry-mc/quarry/server/protocol"
)

// Config may be used to create a new World. Once used, any modifications to
// the Config will not change the World it created.
type Config struct {
	// Log is the Logger that will be used to log errors and debug messages to.
	// If set to nil, slog.Default() is set.
	Log *slog.Logger
	// Generator produces the terrain of chunks entering the viewer's area. If
	// set to nil, a seeded HillGenerator is used.
	Generator Generator
	// Range is the vertical range of the world in chunks. If left as the zero
	// value, DefaultRange is used.
	Range cube.Range
	// Workers is the number of goroutines that chunk generation and snapshot
	// building are fanned out over. If non-positive, one worker per available
	// CPU is started.
	Workers int
	// Reach is the maximum distance in blocks at which the viewer's aim ray
	// resolves a hovered block. If non-positive, DefaultReach is used.
	Reach float64
	// TickInterval is the interval between world time ticks. If non-positive,
	// the world ticks 20 times per second.
	TickInterval time.Duration
	// Output is the channel the world publishes its server events to. The
	// consumer owns the channel and must keep receiving until Done is closed.
	Output chan<- protocol.ServerEvent
	// Done signals that the consumer of Output is gone. Once closed, the
	// world silently discards events instead of publishing them.
	Done <-chan struct{}
}

const (
	// DefaultReach is the block reach used when Config.Reach is not set.
	DefaultReach = 8.0
	// defaultTickInterval matches a 20 ticks per second world clock.
	defaultTickInterval = time.Second / 20
)

// DefaultRange is the vertical range used when Config.Range is not set.
var DefaultRange = cube.Range{-4, 20}

// New creates a World using the Config and spawns its simulation goroutine.
// The World starts without a viewer area; it streams nothing until the first
// area request arrives.
func (conf Config) New() *World {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.Range == (cube.Range{}) {
		conf.Range = DefaultRange
	}
	if conf.Generator == nil {
		conf.Generator = HillGenerator{Seed: 1, Range: conf.Range, BaseY: 10, Amplitude: 12}
	}
	if conf.Reach <= 0 {
		conf.Reach = DefaultReach
	}
	if conf.TickInterval <= 0 {
		conf.TickInterval = defaultTickInterval
	}
	w := &World{
		conf:    conf,
		ra:      conf.Range,
		store:   NewChunkStore(),
		actions: NewActionStore(),
		light:   NewWorldLight(conf.Range),
		pool:    newWorkerPool(conf.Workers),
		queue:   make(chan protocol.ClientEvent, 128),
		closing: make(chan struct{}),
	}
	w.running.Add(1)
	go w.run()
	return w
}
