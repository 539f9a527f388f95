// GoCast - an Icecast-compatible streaming relay written in Go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gocast/gocast/internal/auth"
	"github.com/gocast/gocast/internal/config"
	"github.com/gocast/gocast/internal/geo"
	"github.com/gocast/gocast/internal/playlist"
	"github.com/gocast/gocast/internal/server"
	"github.com/gocast/gocast/internal/stream"
)

// Version information, injected at build time via ldflags.
var (
	version   = "dev"
	gitCommit = "unknown"
)

func main() {
	var configFile string

	root := &cobra.Command{
		Use:   "gocast",
		Short: "An Icecast-compatible streaming relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configFile)
		},
	}
	root.Flags().StringVar(&configFile, "config", "", "path to a YAML configuration file (optional)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gocast %s (%s)\n", version, gitCommit)
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := newLogger(cfg)
	printBanner()

	log.Debug().Str("source_password_hash", auth.MaskForLog(cfg.Server.SourcePassword)).
		Msg("source password configured")

	var geoResolver *geo.Resolver
	if cfg.Advanced.GeoIPDatabase != "" {
		geoResolver, err = geo.Open(cfg.Advanced.GeoIPDatabase)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.Advanced.GeoIPDatabase).Msg("GeoIP database unavailable, country enrichment disabled")
		} else {
			defer geoResolver.Close()
		}
	}

	mount := stream.NewMount(cfg.Server.MountPoint, cfg.BufferBytes(), 500, cfg.Advanced.MaxListeners)
	broadcaster := stream.NewBroadcaster(mount, cfg.Broadcaster.ChunkSize, log)
	broadcaster.Start()
	defer broadcaster.Stop()

	feeder := playlist.NewFeeder(mount, cfg.Playlist.Directory, cfg.Playlist.Extensions, cfg.Playlist.Shuffle, log)
	if err := feeder.Load(); err != nil {
		log.Warn().Err(err).Str("directory", cfg.Playlist.Directory).Msg("playlist directory unreadable, fallback feed disabled")
	} else {
		feeder.Start()
		defer feeder.Stop()
	}

	srv := server.New(cfg, mount, broadcaster, geoResolver, time.Now(), log)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	log.Info().
		Str("source_addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.SourcePort)).
		Str("listen_addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.ListenPort)).
		Str("mount", cfg.Server.MountPoint).
		Msg("gocast is running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Msg("shutdown complete")
	return nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Logging.JSON {
		return zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
}

func printBanner() {
	banner := `
   ██████╗  ██████╗  ██████╗ █████╗ ███████╗████████╗
  ██╔════╝ ██╔═══██╗██╔════╝██╔══██╗██╔════╝╚══██╔══╝
  ██║  ███╗██║   ██║██║     ███████║███████╗   ██║
  ██║   ██║██║   ██║██║     ██╔══██║╚════██║   ██║
  ╚██████╔╝╚██████╔╝╚██████╗██║  ██║███████║   ██║
   ╚═════╝  ╚═════╝  ╚═════╝╚═╝  ╚═╝╚══════╝   ╚═╝

  Icecast-compatible streaming relay - v%s
  ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
`
	fmt.Printf(banner, version)
}
