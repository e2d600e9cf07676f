package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/vizgo/pkg/cache"
	"github.com/matzehuels/vizgo/pkg/errors"
	"github.com/matzehuels/vizgo/pkg/viz"
)

const testSource = "digraph G { a -> b; }"

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	return NewRunner(c, nil, log.New(io.Discard))
}

func TestNewRunnerDefaults(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	if _, ok := r.Cache.(*cache.NullCache); !ok {
		t.Errorf("Cache = %T, want *cache.NullCache", r.Cache)
	}
	if r.Keyer == nil || r.Logger == nil {
		t.Error("Keyer and Logger should default")
	}
}

func TestRunner_CacheHit(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()
	req := NewRequest(testSource, viz.Options{Format: viz.FormatSVG})

	first, err := r.Render(ctx, req)
	if err != nil {
		t.Fatalf("first Render: %v", err)
	}
	if first.CacheHit {
		t.Error("first render should miss the cache")
	}

	second, err := r.Render(ctx, req)
	if err != nil {
		t.Fatalf("second Render: %v", err)
	}
	if !second.CacheHit {
		t.Error("second render should hit the cache")
	}
	if string(first.Output) != string(second.Output) {
		t.Error("cached output differs from rendered output")
	}
	if second.Format != viz.FormatSVG || second.Engine != viz.EngineDot || second.Graphs != 1 {
		t.Errorf("cached result metadata = %+v", second)
	}

	req.Refresh = true
	third, err := r.Render(ctx, req)
	if err != nil {
		t.Fatalf("refresh Render: %v", err)
	}
	if third.CacheHit {
		t.Error("refresh should bypass the cache")
	}
}

func TestRunner_OptionsChangeKey(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()

	if _, err := r.Render(ctx, NewRequest(testSource, viz.Options{Format: viz.FormatSVG})); err != nil {
		t.Fatalf("Render: %v", err)
	}
	res, err := r.Render(ctx, NewRequest(testSource, viz.Options{Format: viz.FormatPlain}))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if res.CacheHit {
		t.Error("a different format must not hit the svg entry")
	}
}

func TestRunner_Errors(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  Request
		code errors.Code
	}{
		{"bad format", NewRequest(testSource, viz.Options{Format: "gif"}), errors.ErrCodeInvalidFormat},
		{"syntax", NewRequest("digraph { a -> }", viz.Options{}), errors.ErrCodeParse},
		{"empty", NewRequest("", viz.Options{}), errors.ErrCodeNoGraph},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Render(ctx, tt.req)
			if !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestRunner_NopIgnoredByDot(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()

	if _, err := r.Render(ctx, NewRequest(testSource, viz.Options{Format: viz.FormatPlain})); err != nil {
		t.Fatalf("Render: %v", err)
	}
	res, err := r.Render(ctx, NewRequest(testSource, viz.Options{Format: viz.FormatPlain, Nop: 1}))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !res.CacheHit || res.Engine != viz.EngineDot {
		t.Errorf("Nop with dot should reuse the dot entry, got hit=%v engine=%s", res.CacheHit, res.Engine)
	}
}

func TestRunner_FailureLogLevel(t *testing.T) {
	tests := []struct {
		name    string
		ctx     func() context.Context
		src     string
		wantLog string
	}{
		{
			name:    "engine error",
			ctx:     context.Background,
			src:     "digraph { a -> }",
			wantLog: "source rejected by engine",
		},
		{
			name: "canceled",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			src:     testSource,
			wantLog: "render failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf syncBuffer
			r := NewRunner(nil, nil, log.New(&buf))
			r.Logger.SetLevel(log.DebugLevel)

			if _, err := r.Render(tt.ctx(), NewRequest(tt.src, viz.Options{})); err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(buf.String(), tt.wantLog) {
				t.Errorf("log = %q, want %q", buf.String(), tt.wantLog)
			}
		})
	}
}

type syncBuffer struct {
	mu sync.Mutex
	b  strings.Builder
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

type failingCache struct{ cache.NullCache }

func (failingCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, stderrors.New("backend down")
}

func (failingCache) Set(context.Context, string, []byte, time.Duration) error {
	return stderrors.New("backend down")
}

func TestRunner_CacheFailureIgnored(t *testing.T) {
	r := NewRunner(&failingCache{}, nil, log.New(io.Discard))
	res, err := r.Render(context.Background(), NewRequest(testSource, viz.Options{}))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(res.Output) == 0 || res.CacheHit {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestSerializeError(t *testing.T) {
	if SerializeError(nil) != nil {
		t.Error("SerializeError(nil) should be nil")
	}

	se := SerializeError(errors.New(errors.ErrCodeInvalidEngine, "unknown engine %q", "x"))
	if se.Code != errors.ErrCodeInvalidEngine || se.Message != `unknown engine "x"` {
		t.Errorf("SerializeError = %+v", se)
	}

	se = SerializeError(context.DeadlineExceeded)
	if se.Code != errors.ErrCodeTimeout {
		t.Errorf("SerializeError(deadline) code = %s, want TIMEOUT", se.Code)
	}

	se = SerializeError(stderrors.New("boom"))
	if se.Code != errors.ErrCodeInternal || se.Error() != "INTERNAL_ERROR: boom" {
		t.Errorf("SerializeError(plain) = %+v", se)
	}
}

func TestPool_AnswersByID(t *testing.T) {
	pool := NewPool(newTestRunner(t), 3)
	defer pool.Close()
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := NewRequest(fmt.Sprintf("digraph { n%d }", i), viz.Options{Format: viz.FormatPlain})
			resp, err := pool.Do(ctx, req)
			if err != nil {
				errs <- err
				return
			}
			if resp.ID != req.ID {
				errs <- fmt.Errorf("response id %s, want %s", resp.ID, req.ID)
				return
			}
			if resp.Error != nil || len(resp.Result) == 0 {
				errs <- fmt.Errorf("request %d: %+v", i, resp.Error)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestPool_AssignsID(t *testing.T) {
	pool := NewPool(newTestRunner(t), 1)
	defer pool.Close()

	resp, err := pool.Do(context.Background(), Request{Source: testSource})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.ID == "" {
		t.Error("Submit should assign an ID")
	}
}

func TestPool_ErrorResponse(t *testing.T) {
	pool := NewPool(newTestRunner(t), 1)
	defer pool.Close()

	resp, err := pool.Do(context.Background(), NewRequest("graph { a -- }", viz.Options{}))
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != errors.ErrCodeParse {
		t.Errorf("Error = %+v, want PARSE_ERROR", resp.Error)
	}
	if resp.Result != nil {
		t.Error("Result should be empty on error")
	}
}

func TestPool_Closed(t *testing.T) {
	pool := NewPool(newTestRunner(t), 1)
	pool.Close()
	pool.Close()

	if _, err := pool.Submit(context.Background(), NewRequest(testSource, viz.Options{})); !stderrors.Is(err, ErrPoolClosed) {
		t.Errorf("Submit after Close = %v, want ErrPoolClosed", err)
	}
}

func TestPool_CanceledContext(t *testing.T) {
	pool := NewPool(newTestRunner(t), 1)
	defer pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := pool.Do(ctx, NewRequest(testSource, viz.Options{}))
	if err == nil && resp.Error == nil {
		t.Error("canceled request should fail")
	}
}
