package models

// Sample is one (input, expected output) pair shown on a problem page.
type Sample struct {
	Input       string `json:"input"`
	Output      string `json:"output"`
	Explanation string `json:"explanation,omitempty"`
}

// Problem is what the problem-info provider hands to the runner and to the
// scaffolding commands. Samples are ordered; index i is displayed as case i+1.
type Problem struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	LimitText   string   `json:"limitText"` // e.g. "1 초" or "2 seconds", empty when unknown
	Info        string   `json:"info,omitempty"`
	Description string   `json:"description,omitempty"`
	InputDesc   string   `json:"inputDesc,omitempty"`
	OutputDesc  string   `json:"outputDesc,omitempty"`
	Limit       string   `json:"limit,omitempty"`
	Hint        string   `json:"hint,omitempty"`
	Source      string   `json:"source,omitempty"`
	Samples     []Sample `json:"samples"`
}
