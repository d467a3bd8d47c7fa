package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"whereis/internal/application/service"
	"whereis/internal/infrastructure/config"
	"whereis/internal/infrastructure/container"
	"whereis/internal/infrastructure/logger"
	"whereis/internal/interfaces/console"
	"whereis/internal/interfaces/httpapi"
)

func main() {
	logger.Setup()

	configPath := flag.String("config", "configs/config.toml", "path to config.toml or config.yaml")
	lookup := flag.String("lookup", "", "resolve one asset id, print it and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}
	logCloser := logger.Configure(cfg.Log)
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := container.New(cfg, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("container init failed")
	}
	defer c.Close()

	if *lookup != "" {
		if err := runLookup(ctx, c, *lookup); err != nil {
			log.Error().Err(err).Str("asset", *lookup).Msg("lookup failed")
			_ = c.Close()
			os.Exit(1)
		}
		return
	}

	if err := serve(ctx, c); err != nil {
		log.Error().Err(err).Msg("http server exited")
	}
}

func runLookup(ctx context.Context, c *container.Container, raw string) error {
	assetID, err := httpapi.NormalizeAssetID(raw)
	if err != nil {
		return err
	}

	now := time.Now()
	res := c.Resolver().Resolve(ctx, assetID, now)

	var links *service.MapLinks
	if res.Found {
		l := c.Linker().Links(res.Position)
		links = &l
	}

	sink := console.NewSink(nil)
	renderer := console.NewRenderer(stdoutIsTerminal())
	for _, line := range renderer.RenderLines(res, links, now) {
		if err := sink.WriteLine(now, line); err != nil {
			return err
		}
	}
	return sink.NewLine()
}

func stdoutIsTerminal() bool {
	fi, err := os.Stdout.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

func serve(ctx context.Context, c *container.Container) error {
	cfg := c.Config()
	e := httpapi.NewServer(&httpapi.Dependencies{
		Resolver: c.Resolver(),
		Linker:   c.Linker(),
		Metrics:  c.Metrics(),
		Chat: httpapi.ChatOptions{
			Secret:    cfg.Chat.Secret,
			ParseMode: cfg.Chat.ParseMode,
		},
		Name:    cfg.App.Name,
		Version: cfg.App.Version,
	}, cfg.Chat.Enabled)

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      e,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", cfg.HTTP.Addr).
			Bool("chat", cfg.Chat.Enabled).
			Msg("whereis started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
