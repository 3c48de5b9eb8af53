package processors

import (
	"github.com/username/idxflow/backend/src/parsers"
)

// NeedsProcessing decides, from a bounded prefix scan, whether a source file
// contains any (entity, date) pair missing from the state index. It returns
// true as soon as one unknown pair is found, and conservatively returns true
// whenever the sampled prefix did not cover the whole file: only a file the
// sample fully covered, with no new pairs, is skipped.
func NeedsProcessing(content string, parser *parsers.TickParser, calc Calculator, idx StateIndex, sampleLines int) bool {
	records, complete, err := parser.ParsePrefix(content, sampleLines)
	if err != nil {
		// Structural problems are the full pipeline's to report; don't skip.
		return true
	}
	for _, rec := range records {
		for _, entity := range calc.Entities(rec) {
			if !idx.Has(entity, rec.TradeDate) {
				return true
			}
		}
	}
	return !complete
}
