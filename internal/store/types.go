package store

import "time"

// Environment is one discovered conda environment row.
type Environment struct {
	ID int64
	// Path is the canonical absolute environment path (unique).
	Path string
	// BaseKind is one of "unknown", "self", "linked", "unresolved".
	BaseKind string
	// BasePath is the base installation path for linked and unresolved
	// environments; empty otherwise.
	BasePath string
	// ScannedAt records when the scan classified this environment.
	ScannedAt time.Time
}

// Version is one tracked package version row for an environment.
type Version struct {
	ID      int64
	EnvID   int64
	Package string
	Version string
}
