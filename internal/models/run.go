package models

// RunRequest asks the runner to test one source file against the samples of
// one problem. It is also the payload of run requests received over NATS.
type RunRequest struct {
	ID         string `json:"id"`
	ProblemID  string `json:"problemId"`
	SourcePath string `json:"sourcePath"`
	Language   string `json:"language"`
}

// RunResult is published once a run finishes, successfully or not.
type RunResult struct {
	RequestID string  `json:"requestId"`
	Report    *Report `json:"report,omitempty"`
	ErrorType string  `json:"errorType,omitempty"`
	Error     string  `json:"error,omitempty"`
	Text      string  `json:"text,omitempty"`
}
