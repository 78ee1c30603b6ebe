package ai

import (
	"context"
)

// Assessment is the structured answer of a text-comprehension provider.
// Score is a hint on the same 0..100 scale the matching engine uses.
type Assessment struct {
	Score      float64
	Strengths  []string
	Weaknesses []string
	Summary    string
	Raw        string
}

// Assessor compares a candidate text block with a position text block.
// Callers must treat any error as a partial failure and fall back to heuristics.
type Assessor interface {
	Assess(ctx context.Context, candidateText, positionText string) (*Assessment, error)
}
