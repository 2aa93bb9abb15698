// Command quarry runs a voxel world streaming server. Each viewer that
// connects is served its own procedurally generated, editable world.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/pelletier/go-toml"

	"github.com/quarry-mc/quarry/server"
)

func main() {
	path := flag.String("config", "config.toml", "path to the server configuration file")
	flag.Parse()

	log := slog.Default()
	conf, err := readConfig(*path, log)
	if err != nil {
		log.Error("load config: " + err.Error())
		os.Exit(1)
	}

	srv := conf.New()
	if err := srv.Listen(); err != nil {
		log.Error("listen: " + err.Error())
		os.Exit(1)
	}
	defer srv.Close()

	for {
		if _, ok := srv.Accept(); !ok {
			return
		}
	}
}

// readConfig reads the configuration from the path passed, creating the file
// with default values if it does not yet exist.
func readConfig(path string, log *slog.Logger) (server.Config, error) {
	c := server.DefaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		data, err := toml.Marshal(c)
		if err != nil {
			return server.Config{}, fmt.Errorf("encode default config: %w", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return server.Config{}, fmt.Errorf("create default config: %w", err)
		}
		return c.Config(log)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return server.Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &c); err != nil {
		return server.Config{}, fmt.Errorf("decode config: %w", err)
	}
	return c.Config(log)
}
