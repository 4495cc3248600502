package main

import "github.com/jward/condascan"

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLIEnvironment is a JSON-friendly environment representation.
type CLIEnvironment struct {
	Path     string            `json:"path"`
	BaseKind string            `json:"base_kind"`
	Base     string            `json:"base,omitempty"`
	Versions map[string]string `json:"versions,omitempty"`
}

// cliEnvironment converts a live Guess from a survey.
func cliEnvironment(g *condascan.Guess) CLIEnvironment {
	e := CLIEnvironment{
		Path:     g.Path,
		BaseKind: g.BaseKind.String(),
		Versions: g.Versions,
	}
	switch g.BaseKind {
	case condascan.BaseLinked:
		e.Base = g.Base.Path
	case condascan.BaseUnresolved:
		e.Base = g.BasePath
	}
	return e
}

// cliEnvironmentFromResult converts an indexed query result.
func cliEnvironmentFromResult(r condascan.EnvironmentResult) CLIEnvironment {
	return CLIEnvironment{
		Path:     r.Path,
		BaseKind: r.BaseKind,
		Base:     r.BasePath,
		Versions: r.Versions,
	}
}
