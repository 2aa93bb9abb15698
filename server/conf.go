package server

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/quarry-mc/quarry/server/block/cube"
	"github.com/quarry-mc/quarry/server/world"
)

// Config contains options for starting a world streaming server.
type Config struct {
	// Log is the Logger to use for logging information. If nil, Log is set to
	// slog.Default().
	Log *slog.Logger
	// PriorityAddress and BulkAddress are the TCP addresses the server binds
	// its two listeners to. A client connects to both; the priority stream
	// carries its events and the disconnect notice, the bulk stream the chunk
	// traffic. If empty, DefaultPriorityAddress and DefaultBulkAddress are
	// used.
	PriorityAddress, BulkAddress string
	// Generator produces the terrain of every session's world. If nil, each
	// world falls back to a seeded HillGenerator.
	Generator world.Generator
	// Range is the vertical chunk range of every world created. If left as
	// the zero value, world.DefaultRange is used.
	Range cube.Range
	// Workers is the per-world worker count for chunk generation and snapshot
	// building. Non-positive derives the count from the available CPUs.
	Workers int
	// Reach is the block reach of each viewer's aim ray. Non-positive uses
	// world.DefaultReach.
	Reach float64
	// TickInterval is the world clock interval. Non-positive ticks 20 times
	// per second.
	TickInterval time.Duration
}

// Default listen addresses of the two streams.
const (
	DefaultPriorityAddress = ":19700"
	DefaultBulkAddress     = ":19701"
)

// New creates a Server using fields of conf. Connections may be accepted by
// calling Server.Listen() and Server.Accept() afterwards.
func (conf Config) New() *Server {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.PriorityAddress == "" {
		conf.PriorityAddress = DefaultPriorityAddress
	}
	if conf.BulkAddress == "" {
		conf.BulkAddress = DefaultBulkAddress
	}
	return &Server{conf: conf}
}

// UserConfig is the user configuration of a quarry server. It holds the
// settings that affect the worlds served and the addresses listened on.
// UserConfig may be serialised and can be converted to a Config by calling
// UserConfig.Config().
type UserConfig struct {
	Network struct {
		// PriorityAddress is the TCP address of the low-latency stream that
		// clients send their events over.
		PriorityAddress string
		// BulkAddress is the TCP address of the stream chunk data is
		// delivered over.
		BulkAddress string
	}
	World struct {
		// Generator selects the terrain generator. Valid values are "hills"
		// and "flat".
		Generator string
		// Seed determines the layout of generated terrain. The same seed
		// always produces the same world.
		Seed int64
		// MinChunkY and MaxChunkY bound the vertical chunk range of the
		// world. MaxChunkY is exclusive.
		MinChunkY, MaxChunkY int32
		// SurfaceY is the grass surface height of the flat generator and the
		// average surface height of the hills generator.
		SurfaceY int
		// Amplitude is the maximum deviation of the hills generator from
		// SurfaceY.
		Amplitude int
		// Workers is the number of generation and snapshot workers per
		// world. Set to 0 to derive the count from the host's CPUs.
		Workers int
	}
	Player struct {
		// Reach is the maximum distance in blocks at which a player can aim
		// at and edit blocks.
		Reach float64
	}
}

// Config converts a UserConfig to a Config, so that it may be used for
// creating a Server.
func (uc UserConfig) Config(log *slog.Logger) (Config, error) {
	conf := Config{
		Log:             log,
		PriorityAddress: uc.Network.PriorityAddress,
		BulkAddress:     uc.Network.BulkAddress,
		Range:           cube.Range{uc.World.MinChunkY, uc.World.MaxChunkY},
		Workers:         uc.World.Workers,
		Reach:           uc.Player.Reach,
	}
	if conf.Range[0] >= conf.Range[1] {
		return conf, fmt.Errorf("world range: min chunk y %v must be below max chunk y %v", conf.Range[0], conf.Range[1])
	}
	switch strings.ToLower(uc.World.Generator) {
	case "hills", "":
		conf.Generator = world.HillGenerator{
			Seed:      uc.World.Seed,
			Range:     conf.Range,
			BaseY:     uc.World.SurfaceY,
			Amplitude: uc.World.Amplitude,
		}
	case "flat":
		conf.Generator = world.FlatGenerator{Range: conf.Range, SurfaceY: uc.World.SurfaceY}
	default:
		return conf, fmt.Errorf("world generator: unknown generator %q", uc.World.Generator)
	}
	return conf, nil
}

// DefaultConfig returns a configuration with the default values filled out.
func DefaultConfig() UserConfig {
	c := UserConfig{}
	c.Network.PriorityAddress = DefaultPriorityAddress
	c.Network.BulkAddress = DefaultBulkAddress
	c.World.Generator = "hills"
	c.World.Seed = 1
	c.World.MinChunkY = world.DefaultRange[0]
	c.World.MaxChunkY = world.DefaultRange[1]
	c.World.SurfaceY = 10
	c.World.Amplitude = 12
	c.Player.Reach = world.DefaultReach
	return c
}
