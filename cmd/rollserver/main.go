// Package main provides the R2 Telnet roll server: clients connect,
// type dice expressions, and receive evaluated results.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/r2/internal/config"
	"github.com/cory-johannsen/r2/internal/dice"
	"github.com/cory-johannsen/r2/internal/macros"
	"github.com/cory-johannsen/r2/internal/observability"
	"github.com/cory-johannsen/r2/internal/roll"
	"github.com/cory-johannsen/r2/internal/server"
	"github.com/cory-johannsen/r2/internal/server/handlers"
	"github.com/cory-johannsen/r2/internal/server/telnet"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file (optional)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("loading config: %v", err)
		}
		cfg = loaded
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting R2 roll server",
		zap.String("telnet_addr", cfg.Server.Addr()),
	)

	var src dice.Source = dice.NewCryptoSource()
	if cfg.Dice.Seed != 0 {
		logger.Warn("using deterministic seeded dice source",
			zap.Int64("seed", cfg.Dice.Seed),
		)
		src = dice.NewSeededSource(cfg.Dice.Seed)
	}

	base := roll.NewEvaluator(src, roll.Limits{
		MaxChain:         cfg.Dice.MaxChain,
		MaxDice:          cfg.Dice.MaxDice,
		MaxBatch:         cfg.Dice.MaxBatch,
		MaxStatements:    cfg.Dice.MaxStatements,
		DefaultTarget:    cfg.Dice.DefaultTarget,
		DefaultRaise:     cfg.Dice.DefaultRaise,
		DefaultWildSides: cfg.Dice.DefaultWildSides,
	})
	evaluator := roll.NewLoggedEvaluator(base, logger)

	// Macro layer
	var mgr *macros.Manager
	if cfg.Macros.AliasFile != "" || cfg.Macros.ScriptDir != "" {
		mgr = macros.NewManager(cfg.Macros.InstructionLimit, logger)
		if cfg.Macros.AliasFile != "" {
			if err := mgr.LoadAliases(cfg.Macros.AliasFile); err != nil {
				logger.Fatal("loading aliases", zap.Error(err))
			}
		}
		if cfg.Macros.ScriptDir != "" {
			if err := mgr.LoadScripts(cfg.Macros.ScriptDir); err != nil {
				logger.Fatal("loading macro scripts", zap.Error(err))
			}
		}
		logger.Info("macros loaded", zap.Strings("names", mgr.Names()))
	}

	handler := handlers.NewRollHandler(evaluator, mgr, logger)
	acceptor := telnet.NewAcceptor(cfg.Server, handler, uuid.NewString, logger)

	lifecycle := server.NewLifecycle(logger)
	lifecycle.AddService("telnet", &server.FuncService{
		StartFn: acceptor.ListenAndServe,
		StopFn:  acceptor.Stop,
	})
	if mgr != nil {
		lifecycle.AddCloser("macros", mgr.Close)
	}

	logger.Info("roll server initialized",
		zap.Duration("startup", time.Since(start)),
	)

	if err := lifecycle.Run(context.Background()); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
