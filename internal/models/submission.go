package models

// Submission is one row of the judge's status table.
type Submission struct {
	ID           string `json:"id"`
	User         string `json:"user"`
	ProblemID    string `json:"problemId"`
	ProblemTitle string `json:"problemTitle,omitempty"`
	Result       string `json:"result"`
	ResultClass  string `json:"resultClass,omitempty"` // e.g. "result-ac", "result-wa"
	Memory       string `json:"memory,omitempty"`
	Time         string `json:"time,omitempty"`
	Language     string `json:"language"`
	CodeLength   string `json:"codeLength,omitempty"`
	SubmittedAt  string `json:"submittedAt,omitempty"`
}

// Accepted reports whether the judge marked the submission correct.
func (s Submission) Accepted() bool {
	return s.ResultClass == "result-ac"
}
