// Package pipeline coordinates the HTTP producers and the transcription
// worker: the online/offline mode, the single-slot result mailbox, and the
// consumer loop that turns queued chunks into text.
package pipeline

type Status string

const (
	StatusIdle    Status = "idle"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Result is the latest transcription as seen by polling clients.
type Result struct {
	Status Status `json:"status"`
	Text   string `json:"text"`
}

// IdleResult is the value of an empty mailbox.
var IdleResult = Result{Status: StatusIdle}
