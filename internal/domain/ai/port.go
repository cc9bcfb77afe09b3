package ai

import "context"

// NarrativeRequest describes one completed analysis for the summarizer.
type NarrativeRequest struct {
	PatientName string
	Age         int
	Sex         string
	Findings    []string
	Flags       []string
}

// Summarizer turns a completed analysis into a short clinical
// narrative. Optional: a nil Summarizer means derived records carry
// only the deterministic summary.
type Summarizer interface {
	Narrative(ctx context.Context, req NarrativeRequest) (string, error)
}
