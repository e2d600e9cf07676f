// Package pipeline runs render requests for the CLI and the render service.
//
// A [Runner] adds content-addressed caching around [viz.Render]: the cache key
// is the hash of the source plus the options that change the output. A [Pool]
// runs requests on a fixed number of worker goroutines and answers each one on
// its own channel, tagged with the request ID.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	pool := pipeline.NewPool(runner, 4)
//	defer pool.Close()
//
//	ch, err := pool.Submit(ctx, pipeline.NewRequest(src, viz.Options{Format: "svg"}))
//	if err != nil {
//	    return err
//	}
//	resp := <-ch
//	if resp.Error != nil {
//	    return resp.Error
//	}
package pipeline

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/vizgo/pkg/errors"
	"github.com/matzehuels/vizgo/pkg/viz"
)

// Request is one render job.
type Request struct {
	// ID correlates the request with its Response. Submit assigns a UUID
	// when it is empty.
	ID string `json:"id,omitempty"`

	// Source is the DOT text.
	Source string `json:"src"`

	Options viz.Options `json:"options"`

	// Refresh skips the cache lookup. The fresh result is still stored.
	Refresh bool `json:"refresh,omitempty"`
}

// NewRequest returns a Request with a generated ID.
func NewRequest(src string, opts viz.Options) Request {
	return Request{ID: uuid.NewString(), Source: src, Options: opts}
}

// Response answers a Request. Exactly one of Result and Error is set.
type Response struct {
	ID     string           `json:"id"`
	Result []byte           `json:"result,omitempty"`
	Error  *SerializedError `json:"error,omitempty"`
}

// SerializedError is the wire form of a render error.
type SerializedError struct {
	Code    errors.Code `json:"code,omitempty"`
	Message string      `json:"message"`
}

// Error implements the error interface.
func (e *SerializedError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return string(e.Code) + ": " + e.Message
}

// SerializeError converts err for transport. It returns nil for a nil error.
func SerializeError(err error) *SerializedError {
	if err == nil {
		return nil
	}
	code := errors.GetCode(err)
	switch {
	case code != "":
	case stderrors.Is(err, context.DeadlineExceeded), stderrors.Is(err, context.Canceled):
		code = errors.ErrCodeTimeout
	default:
		code = errors.ErrCodeInternal
	}
	return &SerializedError{Code: code, Message: errors.UserMessage(err)}
}

// Result is the outcome of Runner.Render.
type Result struct {
	Output    []byte
	Format    string
	Engine    string
	Graphs    int
	Discarded int

	// CacheHit is true when Output came from the cache.
	CacheHit bool

	Duration time.Duration
}
