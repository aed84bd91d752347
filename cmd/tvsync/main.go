package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/tvsync/tvsync/pkg/cache"
	"github.com/tvsync/tvsync/pkg/config"
	"github.com/tvsync/tvsync/pkg/proxy"
	"github.com/tvsync/tvsync/pkg/server"
	"github.com/tvsync/tvsync/pkg/stats"
	"github.com/tvsync/tvsync/pkg/storage"
	"github.com/tvsync/tvsync/pkg/vod"
)

type Opts struct {
	ConfigPath     string `long:"config" short:"c" default:"config.toml" env:"TVSYNC_CONFIG_PATH"`
	SubscribeToken string `long:"token" env:"TVSYNC_SUBSCRIBE_TOKEN" description:"overrides tokens.subscribe from the config file"`
	Hostname       string `long:"hostname" env:"TVSYNC_HOSTNAME" description:"overrides server.hostname from the config file"`
	Debug          bool   `long:"debug"`
	NoBanner       bool   `long:"no-banner"`
}

const banner = `
 _
| |___   _____ _   _ _ __   ___
| __\ \ / / __| | | | '_ \ / __|
| |_ \ V /\__ \ |_| | | | | (__
 \__| \_/ |___/\__, |_| |_|\___|
               |___/
`

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	log.SetFormatter(&log.TextFormatter{
		TimestampFormat: time.RFC3339,
		FullTimestamp:   true,
	})

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	group, ctx := errgroup.WithContext(ctx)

	// Parse args
	opts := Opts{}
	_, err := flags.Parse(&opts)
	if err != nil {
		log.WithError(err).Fatal("failed to parse command line arguments")
	}

	if opts.Debug {
		log.SetLevel(log.DebugLevel)
	}

	if !opts.NoBanner {
		log.Info(banner)
	}

	log.WithFields(log.Fields{
		"version": version,
		"commit":  commit,
		"date":    date,
	}).Info("running tvsync")

	// Load TOML file
	log.Debugf("loading configuration %q", opts.ConfigPath)
	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration file")
	}

	if opts.SubscribeToken != "" {
		cfg.Tokens.Subscribe = opts.SubscribeToken
	}

	if opts.Hostname != "" {
		cfg.Server.Hostname = opts.Hostname
	}

	log.Debug("connecting to settings database")
	db, err := storage.NewPG(cfg.Database.PostgresURL, true)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}

	var counter stats.Counter = stats.Noop{}
	if cfg.Redis.URL != "" {
		redisStats, err := stats.NewRedisStats(cfg.Redis.URL)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to redis")
		}

		counter = redisStats
	}

	configCache := cache.New(db)

	handlers := server.New(
		vod.New(configCache),
		proxy.New(configCache),
		configCache,
		counter,
		server.Opts{
			SubscribeToken: cfg.Tokens.Subscribe,
			CookieSecret:   cfg.Tokens.CookieSecret,
			Hostname:       cfg.Server.Hostname,
		},
	)

	// Run web server
	srv := NewServer(cfg, handlers)

	group.Go(func() error {
		log.Infof("running listener at %s", srv.Addr)
		return srv.ListenAndServe()
	})

	group.Go(func() error {
		// Shutdown web server
		defer func() {
			log.Info("shutting down web server")
			if err := srv.Shutdown(ctx); err != nil {
				log.WithError(err).Error("server shutdown failed")
			}

			if err := counter.Close(); err != nil {
				log.WithError(err).Error("failed to close stats")
			}

			if err := db.Close(); err != nil {
				log.WithError(err).Error("failed to close database")
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-stop:
				cancel()
				return nil
			}
		}
	})

	if err := group.Wait(); err != nil && (err != context.Canceled && err != http.ErrServerClosed) {
		log.WithError(err).Error("wait error")
	}

	log.Info("gracefully stopped")
}
