// youme-server hosts the match store over HTTP for YouMe & Word clients.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/youme-word/internal/config"
	"github.com/robalobadob/youme-word/internal/httpserver"
	"github.com/robalobadob/youme-word/internal/janitor"
	"github.com/robalobadob/youme-word/internal/store"
	"github.com/robalobadob/youme-word/internal/words"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to YAML config file")
	printKey := flag.Bool("print-anon-key", false, "print a signed anon API key and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := cfg.Log.Setup(os.Stderr)

	if *printKey {
		key, err := httpserver.SignAnonKey(cfg.Auth.JWTSecret, cfg.Auth.AnonKeyTTL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to sign anon key")
		}
		fmt.Println(key)
		return
	}

	lists, err := words.Load(words.Files{
		AnswersFile: cfg.Words.AnswersFile,
		AllowedFile: cfg.Words.AllowedFile,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load word lists")
	}
	answers, allowed := lists.Stats()
	log.Info().Int("answers", answers).Int("allowed", allowed).Msg("word lists loaded")

	if cfg.Store.Driver == "http" {
		log.Fatal().Msg("the server cannot use the http store driver")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("failed to open match store")
	}
	defer st.Close()
	log.Info().Str("driver", cfg.Store.Driver).Msg("match store ready")

	sweeper := janitor.New(st, cfg.Match.Retention, cfg.Match.JanitorInterval, logger)
	sweeper.Start(ctx)

	srv := httpserver.New(st, lists, httpserver.Options{
		JWTSecret:      cfg.Auth.JWTSecret,
		ClientOrigin:   cfg.Server.ClientOrigin,
		HandlerTimeout: cfg.Server.HandlerTimeout,
	})
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting youme-server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server exited")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	sweeper.Stop()
	log.Info().Msg("server stopped")
}
