package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gnss-relay/internal/config"
	"gnss-relay/internal/driver"
	"gnss-relay/internal/nmea"
	"gnss-relay/internal/web"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to YAML config (empty: defaults)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logs := web.NewLogBuffer(2000)
	log.SetOutput(io.MultiWriter(os.Stderr, logs))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	src, err := openSource(ctx, cfg)
	if err != nil {
		log.Fatalf("source init failed: %v", err)
	}
	defer src.Close()

	status := web.NewStatus(500)
	sinks, err := buildSinks(cfg, os.Stdout)
	if err != nil {
		log.Fatalf("sink init failed: %v", err)
	}
	defer sinks.Close()

	opts := []driver.Option{
		driver.WithSentenceSinks(append(sinks.sentences, status)...),
		driver.WithRecordSinks(append(sinks.records, status)...),
	}
	if cfg.Receiver.Configure {
		cfgr, err := configurator(cfg, src)
		if err != nil {
			log.Fatalf("receiver configure: %v", err)
		}
		opts = append(opts, driver.WithConfigurator(cfgr))
	}

	d := driver.New(driver.Config{
		PollTimeout: cfg.Source.Timeout,
		Validator:   nmea.Validator{RequireChecksum: cfg.NMEA.RequireChecksum},
	}, src, opts...)

	log.Printf("gnss-relay starting")
	log.Printf("source kind=%s timeout=%s require_checksum=%v", cfg.Source.Kind, cfg.Source.Timeout, cfg.NMEA.RequireChecksum)

	if cfg.Web.Listen != "" {
		go func() {
			log.Printf("web listen=%s", cfg.Web.Listen)
			if err := web.Serve(ctx, cfg.Web.Listen, status, d.Snapshot, logs); err != nil {
				log.Printf("web server stopped: %v", err)
			}
		}()
	}

	if err := d.Run(ctx); err != nil {
		// One terminal diagnostic; deferred closes do not run past Fatalf.
		src.Close()
		sinks.Close()
		log.Fatalf("receiver session failed: %v", err)
	}
	log.Printf("gnss-relay stopping")
}
