package dto

// DestroyPostRequest is the optional body of DELETE /posts/:id.
type DestroyPostRequest struct {
	// Context is recorded as the removal reason in the audit log.
	Context string `json:"context"`

	// Permanent erases the row itself after cleanup. Not recoverable.
	Permanent bool `json:"permanent"`
}

// SweepResponse reports the outcome of a manually triggered sweep.
type SweepResponse struct {
	Scanned   int                    `json:"scanned"`
	Destroyed int                    `json:"destroyed"`
	Failures  []SweepFailureResponse `json:"failures,omitempty"`
}

// SweepFailureResponse describes one candidate a sweep could not remove.
type SweepFailureResponse struct {
	PostID string `json:"postId"`
	Error  string `json:"error"`
}
