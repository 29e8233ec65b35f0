// Command louvain-server serves clustering and stored runs over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dd0wney/cluso-louvain/pkg/api"
	"github.com/dd0wney/cluso-louvain/pkg/auth"
	"github.com/dd0wney/cluso-louvain/pkg/config"
	"github.com/dd0wney/cluso-louvain/pkg/events"
	"github.com/dd0wney/cluso-louvain/pkg/logging"
	"github.com/dd0wney/cluso-louvain/pkg/metrics"
	"github.com/dd0wney/cluso-louvain/pkg/store"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	listen := flag.String("listen", "", "Listen address (overrides server.listen)")
	issueToken := flag.String("issue-token", "", "Print a bearer token for subject:role and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "louvain-server: %v\n", err)
		os.Exit(1)
	}
	if *listen != "" {
		cfg.Server.Listen = *listen
	}

	logger := logging.NewJSONLogger(os.Stdout, cfg.LogLevel())

	var tokens *auth.TokenManager
	if cfg.Auth.JWTSecret != "" {
		tokens, err = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
		if err != nil {
			logger.Error("failed to create token manager", logging.Error(err))
			os.Exit(1)
		}
	}

	if *issueToken != "" {
		if err := printToken(tokens, *issueToken); err != nil {
			fmt.Fprintf(os.Stderr, "louvain-server: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, tokens, logger); err != nil {
		logger.Error("server error", logging.Error(err))
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *config.Config, tokens *auth.TokenManager, logger logging.Logger) error {
	reg := metrics.NewRegistry()

	var runs store.RunStore
	if cfg.Database.URL != "" {
		pg, err := store.NewPGStore(ctx, store.PGConfig{
			URL:            cfg.Database.URL,
			MaxConns:       cfg.Database.MaxConns,
			MinConns:       cfg.Database.MinConns,
			ConnectTimeout: cfg.Database.ConnectTimeout,
		}, logger)
		if err != nil {
			return err
		}
		runs = pg
	} else {
		logger.Warn("no database configured, runs are kept in memory")
		runs = store.NewMemoryStore()
	}
	defer runs.Close()

	bus := events.NewBus()
	if cfg.Events.URL != "" {
		publisher, err := events.NewPublisher(cfg.Events.URL, logger, reg)
		if err != nil {
			return err
		}
		if err := publisher.Forward(bus, events.TopicLevel, events.TopicRun); err != nil {
			publisher.Close()
			return err
		}
		defer publisher.Close()
	}
	defer bus.Shutdown()

	if tokens == nil {
		logger.Warn("no JWT secret configured, authentication disabled")
	}

	server, err := api.NewServer(api.Config{
		AlgorithmTimeout: cfg.Server.AlgorithmTimeout,
		MaxBodyBytes:     cfg.Server.MaxBodyBytes,
		ReadTimeout:      cfg.Server.ReadTimeout,
		WriteTimeout:     cfg.Server.WriteTimeout,
		Louvain:          cfg.LouvainOptions(),
	}, api.Deps{
		Store:   runs,
		Tokens:  tokens,
		Metrics: reg,
		Bus:     bus,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	return server.ListenAndServe(ctx, cfg.Server.Listen)
}

// printToken issues a token for "subject:role". The role defaults to viewer.
func printToken(tokens *auth.TokenManager, spec string) error {
	if tokens == nil {
		return fmt.Errorf("auth.jwt_secret or %s is required to issue tokens", config.EnvJWTSecret)
	}
	subject, role, ok := strings.Cut(spec, ":")
	if !ok {
		role = auth.RoleViewer
	}
	token, err := tokens.GenerateToken(subject, role)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
