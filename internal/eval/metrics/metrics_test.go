package metrics

import (
	"math"
	"testing"
	"time"
)

func TestAggregate(t *testing.T) {
	results := []CaseResult{
		{CaseID: "c1", Rank: 1, TopScore: 0.9, MatchType: "exact", ProcessingTime: time.Second},
		{CaseID: "c2", Rank: 2, TopScore: 0.6, MatchType: "moderate", ProcessingTime: time.Second},
		{CaseID: "c3", Rank: 0, TopScore: 0.3, MatchType: "poor", ProcessingTime: time.Second},
		{CaseID: "c4", Error: "no candidates", ProcessingTime: time.Second},
	}

	report := Aggregate(results, "advanced", 5)

	if report.TotalCases != 4 || report.Evaluated != 3 || report.FailureCount != 1 {
		t.Fatalf("counts wrong: %+v", report)
	}

	if got := report.Top1Accuracy; math.Abs(got-1.0/3.0) > 1e-9 {
		t.Errorf("top-1 accuracy = %v", got)
	}
	if got := report.TopKAccuracy; math.Abs(got-2.0/3.0) > 1e-9 {
		t.Errorf("top-k accuracy = %v", got)
	}
	// MRR: 1 + 1/2 + 0 over 3 cases.
	if got := report.MRR; math.Abs(got-0.5) > 1e-9 {
		t.Errorf("MRR = %v", got)
	}
	if got := report.MeanTopScore; math.Abs(got-0.6) > 1e-9 {
		t.Errorf("mean top score = %v", got)
	}

	if report.MatchTypeCounts["exact"] != 1 || report.MatchTypeCounts["poor"] != 1 {
		t.Errorf("match type counts wrong: %v", report.MatchTypeCounts)
	}
	if report.AverageProcessingTime != time.Second {
		t.Errorf("average processing time = %v", report.AverageProcessingTime)
	}
	if report.TotalProcessingTime != 4*time.Second {
		t.Errorf("total processing time = %v", report.TotalProcessingTime)
	}
}

func TestAggregate_RankBeyondK(t *testing.T) {
	results := []CaseResult{
		{CaseID: "c1", Rank: 7, TopScore: 0.5, MatchType: "weak"},
	}

	report := Aggregate(results, "advanced", 5)
	if report.TopKAccuracy != 0 {
		t.Errorf("rank beyond k should not count, got %v", report.TopKAccuracy)
	}
	if math.Abs(report.MRR-1.0/7.0) > 1e-9 {
		t.Errorf("MRR = %v", report.MRR)
	}
}

func TestAggregate_Empty(t *testing.T) {
	report := Aggregate(nil, "advanced", 5)
	if report.TotalCases != 0 || report.Top1Accuracy != 0 || report.MRR != 0 {
		t.Errorf("empty run should zero out: %+v", report)
	}
}

func TestCaseResultCorrect(t *testing.T) {
	if !(CaseResult{Rank: 1}).Correct() {
		t.Error("rank 1 should be correct")
	}
	if (CaseResult{Rank: 2}).Correct() || (CaseResult{Rank: 0}).Correct() {
		t.Error("rank other than 1 should not be correct")
	}
}
