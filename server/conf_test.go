package server

import (
	"log/slog"
	"testing"

	"github.com/quarry-mc/quarry/server/world"
)

func TestDefaultConfigConverts(t *testing.T) {
	conf, err := DefaultConfig().Config(slog.Default())
	if err != nil {
		t.Fatalf("converting the default config failed: %v", err)
	}
	if _, ok := conf.Generator.(world.HillGenerator); !ok {
		t.Fatalf("default generator = %T, want HillGenerator", conf.Generator)
	}
	if conf.Range != world.DefaultRange {
		t.Fatalf("default range = %v, want %v", conf.Range, world.DefaultRange)
	}
}

func TestUserConfigRejectsBadValues(t *testing.T) {
	uc := DefaultConfig()
	uc.World.Generator = "void"
	if _, err := uc.Config(slog.Default()); err == nil {
		t.Fatalf("unknown generator accepted")
	}

	uc = DefaultConfig()
	uc.World.MinChunkY, uc.World.MaxChunkY = 4, 4
	if _, err := uc.Config(slog.Default()); err == nil {
		t.Fatalf("empty vertical range accepted")
	}

	uc = DefaultConfig()
	uc.World.Generator = "flat"
	conf, err := uc.Config(slog.Default())
	if err != nil {
		t.Fatalf("flat generator rejected: %v", err)
	}
	if _, ok := conf.Generator.(world.FlatGenerator); !ok {
		t.Fatalf("generator = %T, want FlatGenerator", conf.Generator)
	}
}
