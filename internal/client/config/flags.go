package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/dropzone/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-i", "-e", "-p", "-r", "-u", "-l", "-x"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the entity store")
	fs.StringVar(&cfg.HealthAddr, "g", cfg.HealthAddr, "address and port of the gRPC health endpoint")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.ParentEntity, "e", cfg.ParentEntity, "parent entity logical name")
	fs.StringVar(&cfg.ParentID, "p", cfg.ParentID, "parent record id")
	fs.StringVar(&cfg.Relationship, "r", cfg.Relationship, "relationship schema name")
	fs.StringVar(&cfg.ClientID, "u", cfg.ClientID, "API client id")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	accept := fs.String("x", strings.Join(cfg.Accept, ","), "accepted extensions, comma separated")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	if *accept != "" {
		cfg.Accept = flagx.SplitList(*accept)
	}
}
