// Package stream consumes the generation service's incremental token stream
// and folds it into monotonically growing answer snapshots.
//
// The consumption surface is a lazy iter.Seq2: the consumer pulls one
// snapshot at a time, stopping early aborts the stream, and normal
// end-of-stream is distinct from transport failure (a failure arrives as a
// non-nil error element, after which the sequence ends).
package stream

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"google.golang.org/genai"

	"github.com/gencraft/gencraft/internal/conversation"
	"github.com/gencraft/gencraft/internal/log"
)

// ErrStream indicates the generation stream failed in transit.
// Check with errors.Is(). Stream failures are turn-fatal.
var ErrStream = errors.New("generation stream failed")

// ErrEmptyRequest indicates the request had neither text nor attachment.
var ErrEmptyRequest = errors.New("empty generation request")

// Snapshot is the accumulated answer text observed so far. Within one
// Ingest call every snapshot's Text is a prefix-extension of the previous
// one; text already emitted is never altered or truncated.
type Snapshot struct {
	Text string
}

// Request describes one generation call: the prior role-tagged history plus
// the new user content. Payload is the ready attachment's AI representation,
// nil when the turn has no attachment.
type Request struct {
	History []conversation.Turn
	Text    string
	Payload *genai.Part
}

// Empty reports whether the request carries no new content.
func (r Request) Empty() bool {
	return strings.TrimSpace(r.Text) == "" && r.Payload == nil
}

// Generator produces raw text increments for one generation request.
// The sequence is finite and non-restartable; an error element terminates
// it abnormally.
type Generator interface {
	Generate(ctx context.Context, req Request) iter.Seq2[string, error]
}

// Ingestor folds a generator's increments into snapshots.
type Ingestor struct {
	gen    Generator
	logger log.Logger
}

// NewIngestor creates an Ingestor.
func NewIngestor(gen Generator, logger log.Logger) (*Ingestor, error) {
	if gen == nil {
		return nil, errors.New("generator is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Ingestor{gen: gen, logger: logger}, nil
}

// Ingest starts one generation call and returns the lazy snapshot sequence.
//
// Each element strictly extends the previous element's text. The sequence
// ends normally when the generator signals completion, or abnormally with a
// single error element (wrapping ErrStream) on transport failure. The
// text accumulated before the failure is carried on that final element so
// the caller can keep it visible. At most one Ingest sequence may be
// consumed per in-flight turn.
func (in *Ingestor) Ingest(ctx context.Context, req Request) iter.Seq2[Snapshot, error] {
	return func(yield func(Snapshot, error) bool) {
		if req.Empty() {
			yield(Snapshot{}, ErrEmptyRequest)
			return
		}

		var acc strings.Builder
		increments := 0
		for chunk, err := range in.gen.Generate(ctx, req) {
			if err != nil {
				in.logger.Warn("generation stream error",
					"increments", increments,
					"accumulated_len", acc.Len(),
					"error", err)
				yield(Snapshot{Text: acc.String()}, fmt.Errorf("%w: %w", ErrStream, err))
				return
			}
			if chunk == "" {
				continue
			}
			acc.WriteString(chunk)
			increments++
			if !yield(Snapshot{Text: acc.String()}, nil) {
				return
			}
		}

		in.logger.Debug("generation stream complete",
			"increments", increments,
			"answer_len", acc.Len())
	}
}
