// Package handlers implements the interactive session layer of the roll
// server: it reads client input lines, expands macros, normalizes and
// evaluates dice expressions, and renders the results.
package handlers

import (
	"errors"
	"io"
	"net"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/r2/internal/macros"
	"github.com/cory-johannsen/r2/internal/roll"
	"github.com/cory-johannsen/r2/internal/server/telnet"
)

const welcomeBanner = "R2 roll server. Type a dice expression, 'help' for syntax, 'quit' to leave."

// ExpressionEvaluator evaluates roll expressions. Satisfied by both
// *roll.Evaluator and *roll.LoggedEvaluator; the binaries pass the
// logged wrapper so every roll leaves an audit trail.
type ExpressionEvaluator interface {
	Evaluate(expr string) (roll.Result, error)
	EvaluateAll(expr string) ([]roll.Result, error)
}

// RollHandler drives a single client session: a read-evaluate-render loop
// over the Telnet connection.
type RollHandler struct {
	evaluator ExpressionEvaluator
	macros    *macros.Manager
	renderer  *Renderer
	logger    *zap.Logger
}

// NewRollHandler creates a session handler.
//
// Precondition: evaluator must not be nil. macros may be nil when the
// macro layer is disabled.
func NewRollHandler(evaluator ExpressionEvaluator, mgr *macros.Manager, logger *zap.Logger) *RollHandler {
	return &RollHandler{
		evaluator: evaluator,
		macros:    mgr,
		renderer:  NewRenderer(),
		logger:    logger,
	}
}

// Handle runs the session loop until the client disconnects or quits.
//
// Postcondition: Returns after the client quits, disconnects, or times out.
func (h *RollHandler) Handle(conn *telnet.Conn, sessionID string) {
	log := h.logger.With(zap.String("session_id", sessionID))

	if err := conn.WriteLine(telnet.Colorize(telnet.Cyan, welcomeBanner)); err != nil {
		log.Warn("failed to send banner", zap.Error(err))
		return
	}

	for {
		if err := conn.Write([]byte(telnet.Colorize(telnet.Dim, "> "))); err != nil {
			return
		}

		line, err := conn.ReadLine()
		if err != nil {
			if !errors.Is(err, io.EOF) && !isTimeout(err) {
				log.Warn("read failed", zap.Error(err))
			}
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch strings.ToLower(line) {
		case "quit", "exit":
			_ = conn.WriteLine("Goodbye.")
			return
		case "help":
			h.writeHelp(conn)
			continue
		case "macros":
			h.writeMacros(conn)
			continue
		}

		h.handleExpression(conn, log, line)
	}
}

// handleExpression runs one input line through macro expansion,
// normalization, and evaluation, writing one output line per statement.
func (h *RollHandler) handleExpression(conn *telnet.Conn, log *zap.Logger, line string) {
	expr, err := h.expandMacro(line)
	if err != nil {
		_ = conn.WriteLine(h.renderer.RenderError(err))
		return
	}

	normalized := roll.Normalize(expr)
	results, err := h.evaluator.EvaluateAll(normalized)
	if err != nil {
		log.Debug("evaluation failed", zap.String("expression", normalized), zap.Error(err))
		_ = conn.WriteLine(h.renderer.RenderError(err))
		return
	}

	log.Debug("evaluated expression",
		zap.String("input", line),
		zap.String("expression", normalized),
		zap.Int("statements", len(results)))

	for _, result := range results {
		_ = conn.WriteLine(h.renderer.Render(result))
	}
}

// expandMacro replaces the line with a macro expansion when its first
// word names a known macro; remaining words become the macro arguments.
func (h *RollHandler) expandMacro(line string) (string, error) {
	if h.macros == nil {
		return line, nil
	}
	fields := strings.Fields(line)
	if len(fields) == 0 || !h.macros.Known(strings.ToLower(fields[0])) {
		return line, nil
	}
	return h.macros.Expand(strings.ToLower(fields[0]), fields[1:]...)
}

func (h *RollHandler) writeHelp(conn *telnet.Conn) {
	lines := []string{
		telnet.Colorize(telnet.Bold, "Expression syntax:"),
		telnet.Ruler(40),
		"  2d6+3        roll 2 six-sided dice, add 3",
		"  4d6k3        roll 4d6, keep the 3 highest (kl keeps lowest)",
		"  2d20adv      roll with advantage (keep the highest)",
		"  2d6!         acing dice: max rolls chain",
		"  5d10s6f1     count successes at 6+, failures at 1",
		"  2d6t7r3      compare vs target 7, raises every 3",
		"  s8           Savage Worlds trait d8 with wild d6",
		"  s8w8t6       trait d8, wild d8, target 6",
		"  2e8          Savage extras: 2 rolls, no wild die",
		"  4dF          fudge dice",
		"  1--100       uniform range",
		"  3x2d6        batch: repeat three times",
		"  2d6[2:10]    clamp result to bounds",
		"  @hp := 2d6; @hp*2   variables, ';' separates statements",
	}
	for _, l := range lines {
		_ = conn.WriteLine(l)
	}
}

func (h *RollHandler) writeMacros(conn *telnet.Conn) {
	if h.macros == nil {
		_ = conn.WriteLine("No macros loaded.")
		return
	}
	names := h.macros.Names()
	if len(names) == 0 {
		_ = conn.WriteLine("No macros loaded.")
		return
	}
	_ = conn.WriteLine(telnet.Colorf(telnet.Bold, "Macros (%d): ", len(names)) + strings.Join(names, ", "))
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
