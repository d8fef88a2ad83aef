package models

// Stage is a step of the analysis pipeline
type Stage string

const (
	StageResolving Stage = "resolving"
	StageFetching  Stage = "fetching"
	StageAnalyzing Stage = "analyzing"
	StageDone      Stage = "done"
	StageFailed    Stage = "failed"
)
