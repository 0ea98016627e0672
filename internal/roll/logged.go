package roll

import "go.uber.org/zap"

// LoggedEvaluator wraps an Evaluator and logs every evaluation at debug
// level with the expression, result kind, and total, giving hosts a full
// audit trail of rolls.
type LoggedEvaluator struct {
	eval   *Evaluator
	logger *zap.Logger
}

// NewLoggedEvaluator creates a LoggedEvaluator.
//
// Precondition: eval and logger must be non-nil.
func NewLoggedEvaluator(eval *Evaluator, logger *zap.Logger) *LoggedEvaluator {
	return &LoggedEvaluator{eval: eval, logger: logger}
}

// Evaluate evaluates expr and logs the outcome.
func (l *LoggedEvaluator) Evaluate(expr string) (Result, error) {
	result, err := l.eval.Evaluate(expr)
	if err != nil {
		l.logger.Debug("roll failed",
			zap.String("expression", expr),
			zap.Error(err),
		)
		return nil, err
	}
	l.logger.Debug("roll evaluated",
		zap.String("expression", expr),
		zap.Stringer("kind", result.Kind()),
		zap.Int("total", result.Total()),
		zap.String("detail", result.String()),
	)
	return result, nil
}

// EvaluateAll evaluates every statement in expr and logs each result.
func (l *LoggedEvaluator) EvaluateAll(expr string) ([]Result, error) {
	results, err := l.eval.EvaluateAll(expr)
	if err != nil {
		l.logger.Debug("roll failed",
			zap.String("expression", expr),
			zap.Error(err),
		)
		return nil, err
	}
	for i, result := range results {
		l.logger.Debug("roll evaluated",
			zap.String("expression", expr),
			zap.Int("statement", i+1),
			zap.Stringer("kind", result.Kind()),
			zap.Int("total", result.Total()),
		)
	}
	return results, nil
}
