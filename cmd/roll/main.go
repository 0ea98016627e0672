// Package main provides the r2 command line roller: evaluate a dice
// expression given as arguments, or run a read-eval-print loop on stdin.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/r2/internal/config"
	"github.com/cory-johannsen/r2/internal/dice"
	"github.com/cory-johannsen/r2/internal/observability"
	"github.com/cory-johannsen/r2/internal/roll"
	"github.com/cory-johannsen/r2/internal/server/handlers"
)

func main() {
	seed := flag.Int64("seed", 0, "deterministic seed (0 uses crypto randomness)")
	noColor := flag.Bool("no-color", false, "disable ANSI colors")
	verbose := flag.Bool("verbose", false, "log every evaluation to stderr")
	flag.Parse()

	var src dice.Source = dice.NewCryptoSource()
	if *seed != 0 {
		src = dice.NewSeededSource(*seed)
	}

	logger := zap.NewNop()
	if *verbose {
		var err error
		logger, err = observability.NewLogger(config.LoggingConfig{Level: "debug", Format: "console"})
		if err != nil {
			fmt.Fprintln(os.Stderr, "initializing logger:", err)
			os.Exit(1)
		}
		defer logger.Sync()
	}

	evaluator := roll.NewLoggedEvaluator(roll.NewEvaluator(src, roll.DefaultLimits()), logger)
	renderer := handlers.NewRenderer()
	renderer.Color = !*noColor

	if flag.NArg() > 0 {
		expr := strings.Join(flag.Args(), " ")
		if !evalAndPrint(evaluator, renderer, expr) {
			os.Exit(1)
		}
		return
	}

	// REPL mode
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
		case "quit", "exit":
			return
		default:
			evalAndPrint(evaluator, renderer, line)
		}
		fmt.Print("> ")
	}
}

func evalAndPrint(evaluator handlers.ExpressionEvaluator, renderer *handlers.Renderer, expr string) bool {
	results, err := evaluator.EvaluateAll(roll.Normalize(expr))
	if err != nil {
		fmt.Fprintln(os.Stderr, renderer.RenderError(err))
		return false
	}
	for _, result := range results {
		fmt.Println(renderer.Render(result))
	}
	return true
}
