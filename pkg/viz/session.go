package viz

import (
	"context"
	"sync"

	"github.com/matzehuels/vizgo/pkg/errors"
)

// Session renders with flags set through setters and remembers the message
// of the last failed render. It is safe for concurrent use.
type Session struct {
	mu      sync.Mutex
	yInvert bool
	nop     int
	lastErr string
}

// NewSession returns a Session with both flags off.
func NewSession() *Session {
	return &Session{}
}

// SetYInvert enables y inversion for non-zero flag and disables it for zero.
func (s *Session) SetYInvert(flag int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.yInvert = flag != 0
}

// SetNop sets the nop value. Zero is ignored and leaves the current value in
// place, so once set, nop cannot be turned off through this setter.
func (s *Session) SetNop(value int) {
	if value == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nop = value
}

// Options returns the session flags as render options.
func (s *Session) Options() Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Options{YInvert: s.yInvert, Nop: s.nop}
}

// RenderFromString renders src with the session flags. On failure it returns
// nil and records the error for LastErrorMessage.
func (s *Session) RenderFromString(ctx context.Context, src, format, engine string) []byte {
	s.mu.Lock()
	s.lastErr = ""
	opts := Options{Format: format, Engine: engine, YInvert: s.yInvert, Nop: s.nop}
	s.mu.Unlock()

	res, err := Render(ctx, src, opts)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastErr = errors.UserMessage(err)
		return nil
	}
	s.lastErr = ""
	return res.Output
}

// LastErrorMessage returns the message of the most recent failed render, or
// "" if the most recent render succeeded.
func (s *Session) LastErrorMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}
