package processors

import (
	"strings"
)

// NewCalculators builds every registered aggregation kind, with output
// artifacts rooted at outputRoot.
func NewCalculators(outputRoot string) map[string]Calculator {
	calculators := make(map[string]Calculator)

	register := func(c Calculator) { calculators[c.Kind()] = c }

	register(NewForeignFlowCalculator(outputRoot + "/foreign_flow"))
	for _, board := range []string{BoardRegular, BoardCash, BoardNegotiated} {
		register(NewBrokerSummaryCalculator(board,
			outputRoot+"/broker_summary/"+strings.ToLower(board)))
	}

	return calculators
}
