package handlers

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/r2/internal/dice"
	"github.com/cory-johannsen/r2/internal/roll"
	"github.com/cory-johannsen/r2/internal/server/telnet"
)

// Renderer formats evaluation results as colored text for Telnet clients.
type Renderer struct {
	// Color disables ANSI codes when false.
	Color bool
}

// NewRenderer creates a renderer with ANSI colors enabled.
func NewRenderer() *Renderer {
	return &Renderer{Color: true}
}

func (r *Renderer) colorize(color, text string) string {
	if !r.Color {
		return text
	}
	return telnet.Colorize(color, text)
}

// Render formats a single evaluation result for display.
//
// Postcondition: Returns a non-empty single-line description of the result.
func (r *Renderer) Render(result roll.Result) string {
	switch res := result.(type) {
	case *roll.SimpleResult:
		return r.renderSimple(res)
	case *roll.GenericResult:
		return r.renderGeneric(res)
	case *roll.SuccessResult:
		return r.renderSuccess(res)
	case *roll.SavageResult:
		return r.renderSavage(res)
	case *roll.MultipleResult:
		return r.renderMultiple(res)
	default:
		return fmt.Sprintf("%s = %s",
			result.String(),
			r.colorize(telnet.Bold, fmt.Sprintf("%d", result.Total())))
	}
}

func (r *Renderer) renderSimple(res *roll.SimpleResult) string {
	if res.Description == "" {
		return r.colorize(telnet.Bold, fmt.Sprintf("%d", res.Value))
	}
	return fmt.Sprintf("%s = %s", res.Description,
		r.colorize(telnet.Bold, fmt.Sprintf("%d", res.Value)))
}

func (r *Renderer) renderGeneric(res *roll.GenericResult) string {
	var b strings.Builder

	b.WriteString(r.renderDice(res.Dice))
	if res.Keep != roll.KeepNone {
		fmt.Fprintf(&b, " %s ", res.Keep)
		b.WriteString(r.colorize(telnet.Cyan, formatPlainDice(res.Kept)))
	}
	if res.Modifier != 0 {
		fmt.Fprintf(&b, " %+d", res.Modifier)
	}
	fmt.Fprintf(&b, " = %s", r.colorize(telnet.Bold, fmt.Sprintf("%d", res.Total())))

	if outcome := res.Raises(); outcome != nil {
		fmt.Fprintf(&b, " vs %d: %s", res.Target, r.renderOutcome(*outcome))
	}
	return b.String()
}

func (r *Renderer) renderSuccess(res *roll.SuccessResult) string {
	var b strings.Builder
	b.WriteString(r.renderDice(res.Dice))
	fmt.Fprintf(&b, " = %s",
		r.colorize(telnet.BrightGreen, fmt.Sprintf("%d success(es)", res.Total())))
	if res.HasFail {
		fmt.Fprintf(&b, ", %s",
			r.colorize(telnet.BrightRed, fmt.Sprintf("%d failure(s)", res.Failures())))
	}
	return b.String()
}

func (r *Renderer) renderSavage(res *roll.SavageResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "trait [%s]", r.renderDie(res.Trait))
	if res.HasWild {
		fmt.Fprintf(&b, " wild [%s]", r.renderDie(res.Wild))
		fmt.Fprintf(&b, " using %s", r.colorize(telnet.Cyan, res.UsedDie().String()))
	}
	if res.Modifier != 0 {
		fmt.Fprintf(&b, " %+d", res.Modifier)
	}
	fmt.Fprintf(&b, " = %s vs %d: %s",
		r.colorize(telnet.Bold, fmt.Sprintf("%d", res.Total())),
		res.Target,
		r.renderOutcome(res.Raises()))
	return b.String()
}

func (r *Renderer) renderMultiple(res *roll.MultipleResult) string {
	parts := make([]string, len(res.Rolls))
	for i, sub := range res.Rolls {
		parts[i] = r.Render(sub)
	}
	return fmt.Sprintf("%s | sum = %s",
		strings.Join(parts, " | "),
		r.colorize(telnet.Bold, fmt.Sprintf("%d", res.Total())))
}

func (r *Renderer) renderOutcome(o roll.RaiseOutcome) string {
	if !o.Success {
		return r.colorize(telnet.BrightRed, o.String())
	}
	if o.Raises > 0 {
		return r.colorize(telnet.BrightYellow, o.String())
	}
	return r.colorize(telnet.BrightGreen, o.String())
}

func (r *Renderer) renderDice(dies []dice.Die) string {
	parts := make([]string, len(dies))
	for i, d := range dies {
		parts[i] = r.renderDie(d)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// renderDie highlights exploded chains so aced dice stand out.
func (r *Renderer) renderDie(d dice.Die) string {
	if d.ChainLength() > 1 {
		return r.colorize(telnet.BrightYellow, d.String())
	}
	return d.String()
}

func formatPlainDice(dies []dice.Die) string {
	parts := make([]string, len(dies))
	for i, d := range dies {
		parts[i] = d.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// RenderError formats an evaluation or parse error for display.
func (r *Renderer) RenderError(err error) string {
	return r.colorize(telnet.Red, "error: "+err.Error())
}
