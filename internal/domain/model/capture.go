package model

import "time"

// Capture is the persisted outcome of one extraction invocation. Exactly one
// row is written per invocation whether inference succeeded or not.
type Capture struct {
	ID          string // ULID
	AccountID   string
	Code        string // activation code used for admission
	ContentHash string // sha256 of the decoded image
	ContentSize int64
	Prompt      string
	RawResponse *string
	Answer      *string
	ElapsedMs   int64
	Success     bool
	ErrorText   *string
	CreatedAt   time.Time
}
