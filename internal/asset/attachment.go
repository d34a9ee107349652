// Package asset uploads user-supplied files to the remote asset store and
// turns them into attachments usable by both the generation service and the
// conversation store.
package asset

import (
	"github.com/google/uuid"
	"google.golang.org/genai"
)

// State is the upload state of an attachment.
type State int

const (
	// StatePending marks an attachment that has not started uploading.
	StatePending State = iota

	// StateUploading marks an upload in flight.
	StateUploading

	// StateReady marks a completed upload. Ready attachments are immutable.
	StateReady

	// StateFailed marks a failed upload. Failed attachments are never
	// mutated back to ready; retrying produces a new Attachment.
	StateFailed
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateUploading:
		return "uploading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Attachment is one user file in transit toward the asset store.
//
// Attachments are produced by Resolver.Resolve and mutated only by it, on
// the resolving goroutine. Once State() returns StateReady the value is
// immutable; a StateFailed attachment only records its diagnostic reason.
type Attachment struct {
	id        uuid.UUID
	localPath string

	state      State
	remotePath string
	payload    *genai.Part
	reason     error
}

// Staged creates a pending attachment that has not started uploading.
// Used when a file is picked before its conversation exists; conversation
// creation sends the raw file directly instead of an uploaded reference.
func Staged(localPath string) *Attachment {
	return newAttachment(localPath)
}

func newAttachment(localPath string) *Attachment {
	return &Attachment{
		id:        uuid.New(),
		localPath: localPath,
		state:     StatePending,
	}
}

// ID identifies this resolution attempt. Retries get a fresh ID.
func (a *Attachment) ID() uuid.UUID { return a.id }

// LocalPath returns the local file the attachment was created from.
func (a *Attachment) LocalPath() string { return a.localPath }

// State returns the current upload state.
func (a *Attachment) State() State { return a.state }

// Ready reports whether the attachment can be included in a generation
// request or a commit payload.
func (a *Attachment) Ready() bool { return a.state == StateReady }

// RemotePath returns the asset-store path. Set only when Ready.
func (a *Attachment) RemotePath() string { return a.remotePath }

// Payload returns the AI-consumable representation of the file.
// Set only when Ready.
func (a *Attachment) Payload() *genai.Part { return a.payload }

// Reason returns the upload failure diagnostic. Set only when Failed.
func (a *Attachment) Reason() error { return a.reason }

func (a *Attachment) ready(remotePath string, payload *genai.Part) {
	a.state = StateReady
	a.remotePath = remotePath
	a.payload = payload
}

func (a *Attachment) fail(reason error) {
	a.state = StateFailed
	a.reason = reason
}
