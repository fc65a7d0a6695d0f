// Package scoring converts harness results into weighted scores.
//
// The engine is pure: the same HarnessResult and bonus always produce the
// same Result. All output fields are rounded to 2 decimal places so that
// persisted and replayed values are stable across platforms.
package scoring

import (
	"math"
	"time"
)

const (
	// MaxBase is the score for a fully correct submission before
	// latency/resource weighting and bonus.
	MaxBase = 1000.0

	// LatencyBaseline is the duration at which the latency factor reaches 0.
	LatencyBaseline = 60 * time.Second

	// ResourceBaseline is the memory usage at which the resource factor
	// reaches 0.
	ResourceBaseline = 512 * 1024 * 1024 // 512 MiB

	// Weighting of the total score components.
	baseWeight     = 0.7
	latencyWeight  = 0.2
	resourceWeight = 0.1

	// bonusWeight caps the external bonus at 10% of the base score.
	bonusWeight = 0.1
)

// HarnessResult is the raw outcome of running a submission against the
// test harness.
type HarnessResult struct {
	TotalTests  int
	PassedTests int
	Duration    time.Duration
	MemoryBytes int64 // 0 means no measurable usage
}

// Result is the immutable scored outcome of one submission.
// Produced once, appended to the owning manager's round-score list, and
// never mutated afterward.
type Result struct {
	Correctness    float64 `json:"correctness"`
	BaseScore      float64 `json:"base_score"`
	LatencyFactor  float64 `json:"latency_factor"`
	ResourceFactor float64 `json:"resource_factor"`
	Bonus          float64 `json:"bonus"`
	TotalScore     float64 `json:"total_score"`
}

// Score computes the weighted score for a harness result.
//
// rawBonus is an external 0..1 score (clamped); it contributes at most 10%
// of the base score.
//
// Correctness gate: a submission with zero correctness earns nothing. The
// latency factor, resource factor, and bonus are all forced to 0, so speed
// and efficiency can never rescue a failing or empty submission.
func Score(res HarnessResult, rawBonus float64) Result {
	correctness := 0.0
	if res.TotalTests > 0 {
		correctness = clamp01(float64(res.PassedTests) / float64(res.TotalTests))
	}

	base := correctness * MaxBase
	if base == 0 {
		return Result{}
	}

	latency := clamp01(1 - res.Duration.Seconds()/LatencyBaseline.Seconds())
	resource := 1.0
	if res.MemoryBytes > 0 {
		resource = clamp01(1 - float64(res.MemoryBytes)/float64(ResourceBaseline))
	}

	bonus := clamp01(rawBonus) * bonusWeight * base
	total := base*(baseWeight+latencyWeight*latency+resourceWeight*resource) + bonus

	return Result{
		Correctness:    round2(correctness),
		BaseScore:      round2(base),
		LatencyFactor:  round2(latency),
		ResourceFactor: round2(resource),
		Bonus:          round2(bonus),
		TotalScore:     round2(total),
	}
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
