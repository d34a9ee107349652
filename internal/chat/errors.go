package chat

import "errors"

// Sentinel errors for session operations, checked with errors.Is().
//
// The upstream components carry their own sentinels for the remaining
// failure classes: asset.ErrUpload for upload failures, stream.ErrStream
// for generation transport failures, store.ErrCommit for persistence
// failures. The controller surfaces those unchanged.
var (
	// ErrBusy indicates a submission is already in flight for this
	// conversation. Re-entrant submissions are rejected, not queued.
	ErrBusy = errors.New("submission already in flight")

	// ErrEmptySubmission indicates the submission had neither text nor a
	// ready attachment. Rejected before any network call.
	ErrEmptySubmission = errors.New("empty submission")

	// ErrAttachmentNotReady indicates the pending attachment has not
	// finished uploading, or failed. A failed attachment blocks submission
	// until cleared or retried.
	ErrAttachmentNotReady = errors.New("attachment not ready")

	// ErrNoConversation indicates the controller has no conversation bound.
	ErrNoConversation = errors.New("no conversation bound")

	// ErrNotErrored indicates Dismiss was called outside the errored state.
	ErrNotErrored = errors.New("session is not errored")
)
