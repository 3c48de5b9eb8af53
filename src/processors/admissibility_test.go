package processors

import (
	"fmt"
	"strings"
	"testing"

	"github.com/username/idxflow/backend/src/parsers"
)

const sampleHeader = "STK_CODE;BRK_COD1;BRK_COD2;STK_VOLM;STK_PRIC;TRX_DATE;TRX_TIME;INV_TYP1;INV_TYP2"

func tickFile(rows ...string) string {
	return sampleHeader + "\n" + strings.Join(rows, "\n") + "\n"
}

func TestNeedsProcessingUnknownPair(t *testing.T) {
	parser := parsers.NewTickParser()
	calc := NewForeignFlowCalculator("aggregates/foreign_flow")
	content := tickFile("BBRI;XY;ZZ;100;4500;2024-01-05;09:30:00;D;A")

	if !NeedsProcessing(content, parser, calc, make(StateIndex), 1000) {
		t.Error("Expected true for a file with an unknown (entity, date) pair")
	}
}

func TestNeedsProcessingAllKnownAndFullyCovered(t *testing.T) {
	parser := parsers.NewTickParser()
	calc := NewForeignFlowCalculator("aggregates/foreign_flow")
	idx := make(StateIndex)
	idx.Add("BBRI", "2024-01-05")
	idx.Add("TLKM", "2024-01-05")

	content := tickFile(
		"BBRI;XY;ZZ;100;4500;2024-01-05;09:30:00;D;A",
		"TLKM;AB;CD;500;3200;2024-01-05;10:00:00;D;D",
	)

	if NeedsProcessing(content, parser, calc, idx, 1000) {
		t.Error("Expected false when every sampled pair is known and the sample covers the file")
	}
}

func TestNeedsProcessingLargerThanSample(t *testing.T) {
	parser := parsers.NewTickParser()
	calc := NewForeignFlowCalculator("aggregates/foreign_flow")
	idx := make(StateIndex)
	idx.Add("BBRI", "2024-01-05")

	var rows []string
	for i := 0; i < 20; i++ {
		rows = append(rows, fmt.Sprintf("BBRI;XY;ZZ;%d;4500;2024-01-05;09:30:00;D;A", i+1))
	}
	content := tickFile(rows...)

	// Every sampled pair is known, but the sample does not cover the file:
	// never skip on sample evidence alone.
	if !NeedsProcessing(content, parser, calc, idx, 10) {
		t.Error("Expected true for a file larger than the sampled prefix")
	}
}

func TestNeedsProcessingStructuralFailure(t *testing.T) {
	parser := parsers.NewTickParser()
	calc := NewForeignFlowCalculator("aggregates/foreign_flow")
	content := "STK_CODE;TRX_DATE\nBBRI;2024-01-05\n"

	// Files the prefix scan cannot parse go to the full pipeline for the
	// structural failure to be reported there.
	if !NeedsProcessing(content, parser, calc, make(StateIndex), 1000) {
		t.Error("Expected true for a structurally broken file")
	}
}
