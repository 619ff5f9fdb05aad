package models

// SaveResult is the outcome of a create or update. OK=false is a rejection by
// the remote, not a transport failure.
type SaveResult struct {
	OK   bool `json:"ok"`
	Note Note `json:"note"`
}

// DeleteResult is the outcome of a delete.
type DeleteResult struct {
	OK bool `json:"ok"`
}
