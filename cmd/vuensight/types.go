package main

// CLIResult is the top-level JSON envelope for all query commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLIComponent is a component with its channels by name.
type CLIComponent struct {
	Name   string   `json:"name"`
	Path   string   `json:"path"`
	Props  []string `json:"props"`
	Events []string `json:"events"`
	Slots  []string `json:"slots"`
}
