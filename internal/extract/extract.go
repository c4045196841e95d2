package extract

import (
	"go.uber.org/zap"

	"github.com/sells-group/sitrep-cli/internal/model"
	"github.com/sells-group/sitrep-cli/internal/registry"
)

// Strategy is a pure extraction pass over recovered text.
type Strategy func(text string, countries registry.Countries) []model.Candidate

// Named pairs a strategy with a label for logging.
type Named struct {
	Name     string
	Strategy Strategy
}

// DefaultStrategies returns the table, infographic and narrative passes in
// that order.
func DefaultStrategies() []Named {
	return []Named{
		{Name: "table", Strategy: Table},
		{Name: "infographic", Strategy: Infographic},
		{Name: "narrative", Strategy: Narrative},
	}
}

// Extractor runs every strategy over the same text.
type Extractor struct {
	strategies []Named
}

// New creates an Extractor. With no strategies it uses DefaultStrategies.
func New(strategies ...Named) *Extractor {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Extractor{strategies: strategies}
}

// Extract returns the union of all strategy output in strategy order.
// countries scopes table rows to the report's countries.
func (e *Extractor) Extract(text string, countries registry.Countries) []model.Candidate {
	var out []model.Candidate
	for _, s := range e.strategies {
		found := s.Strategy(text, countries)
		zap.L().Debug("extract: strategy done", zap.String("strategy", s.Name), zap.Int("candidates", len(found)))
		out = append(out, found...)
	}
	return out
}
