package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/vizgo/pkg/cache"
	"github.com/matzehuels/vizgo/pkg/errors"
	"github.com/matzehuels/vizgo/pkg/pipeline"
	"github.com/matzehuels/vizgo/pkg/viz"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	pool := pipeline.NewPool(pipeline.NewRunner(nil, nil, log.New(io.Discard)), 2)
	ts := httptest.NewServer(New(pool, Config{Timeout: 10 * time.Second}))
	t.Cleanup(func() {
		ts.Close()
		pool.Close()
	})
	return ts
}

func postJSON(t *testing.T, url string, body any) (*http.Response, RenderResponse) {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()

	var out RenderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, out
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get(HeaderRequestID) == "" {
		t.Error("response missing request id")
	}
	if resp.Header.Get(HeaderVersion) == "" {
		t.Error("response missing version")
	}
}

func TestRequestIDPropagation(t *testing.T) {
	ts := newTestServer(t)
	const id = "7b1f6f2e-9f6d-4a7e-8d43-0d1c8c2b5e11"

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	req.Header.Set(HeaderRequestID, id)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(HeaderRequestID); got != id {
		t.Errorf("request id = %q, want %q", got, id)
	}

	req.Header.Set(HeaderRequestID, "not-a-uuid")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(HeaderRequestID); got == "not-a-uuid" || got == "" {
		t.Errorf("invalid incoming id should be replaced, got %q", got)
	}
}

func TestEnginesAndFormats(t *testing.T) {
	ts := newTestServer(t)

	for path, key := range map[string]string{"/api/v1/engines": "engines", "/api/v1/formats": "formats"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		var body map[string]any
		err = json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		list, ok := body[key].([]any)
		if !ok || len(list) == 0 {
			t.Errorf("%s: missing %s list: %v", path, key, body)
		}
	}
}

func TestRender_JSON(t *testing.T) {
	ts := newTestServer(t)

	resp, out := postJSON(t, ts.URL+"/api/v1/render", RenderRequest{
		Src:     "digraph { a -> b }",
		Options: viz.Options{Format: viz.FormatSVG},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, error = %+v", resp.StatusCode, out.Error)
	}
	if out.ID == "" {
		t.Error("response should carry an id")
	}
	if out.Encoding != EncodingUTF8 || !strings.Contains(out.Result, "<svg") {
		t.Errorf("unexpected result: encoding %q, %.40q", out.Encoding, out.Result)
	}
}

func TestRender_JSONKeepsID(t *testing.T) {
	ts := newTestServer(t)
	const id = "0f8fad5b-d9cb-469f-a165-70867728950e"

	_, out := postJSON(t, ts.URL+"/api/v1/render", RenderRequest{ID: id, Src: "graph { a }"})
	if out.ID != id {
		t.Errorf("id = %q, want %q", out.ID, id)
	}
}

func TestRender_JSONBinary(t *testing.T) {
	ts := newTestServer(t)

	resp, out := postJSON(t, ts.URL+"/api/v1/render", RenderRequest{
		Src:     "digraph { a -> b }",
		Options: viz.Options{Format: viz.FormatPNG},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, error = %+v", resp.StatusCode, out.Error)
	}
	if out.Encoding != EncodingBase64 {
		t.Fatalf("encoding = %q, want base64", out.Encoding)
	}
	data, err := base64.StdEncoding.DecodeString(out.Result)
	if err != nil {
		t.Fatalf("decode base64: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("result is not a PNG")
	}
}

func TestRender_JSONErrors(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		req    RenderRequest
		status int
		code   errors.Code
	}{
		{"syntax", RenderRequest{Src: "digraph { a -> }"}, http.StatusBadRequest, errors.ErrCodeParse},
		{"no graph", RenderRequest{Src: "  "}, http.StatusBadRequest, errors.ErrCodeNoGraph},
		{"bad format", RenderRequest{Src: "graph{}", Options: viz.Options{Format: "gif"}}, http.StatusBadRequest, errors.ErrCodeInvalidFormat},
		{"bad id", RenderRequest{ID: "123", Src: "graph{}"}, http.StatusBadRequest, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, out := postJSON(t, ts.URL+"/api/v1/render", tt.req)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if out.Error == nil || out.Error.Code != tt.code {
				t.Errorf("error = %+v, want code %s", out.Error, tt.code)
			}
			if out.Result != "" {
				t.Error("result should be empty on error")
			}
		})
	}
}

func TestRender_MalformedBody(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/v1/render", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestRenderRaw(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/v1/render/plain?engine=neato&yInvert=true", "text/vnd.graphviz", strings.NewReader("graph { a -- b }"))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != ContentType(viz.FormatPlain) {
		t.Errorf("Content-Type = %q", ct)
	}
	if !bytes.HasPrefix(body, []byte("graph ")) {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestRenderRaw_Errors(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		path   string
		body   string
		status int
	}{
		{"/api/v1/render/gif", "graph { a }", http.StatusBadRequest},
		{"/api/v1/render/svg?engine=spring", "graph { a }", http.StatusBadRequest},
		{"/api/v1/render/svg?nop=x", "graph { a }", http.StatusBadRequest},
		{"/api/v1/render/svg?yInvert=maybe", "graph { a }", http.StatusBadRequest},
		{"/api/v1/render/svg", "graph { a -- }", http.StatusBadRequest},
	}
	for _, tt := range tests {
		resp, err := http.Post(ts.URL+tt.path, "text/plain", strings.NewReader(tt.body))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != tt.status {
			t.Errorf("%s: status = %d, want %d", tt.path, resp.StatusCode, tt.status)
		}
	}
}

func TestRenderRaw_ErrorsStayWithTheirRequest(t *testing.T) {
	ts := newTestServer(t)

	post := func(body string) (int, string) {
		t.Helper()
		resp, err := http.Post(ts.URL+"/api/v1/render/plain", "text/vnd.graphviz", strings.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		data, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(data)
	}

	if status, _ := post("graph { a -- }"); status != http.StatusBadRequest {
		t.Fatalf("invalid source: status = %d, want 400", status)
	}
	if status, body := post("digraph { a -> b } # trailing note"); status != http.StatusOK {
		t.Errorf("valid source after a failed one: status = %d: %s", status, body)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code errors.Code
		want int
	}{
		{errors.ErrCodeParse, http.StatusBadRequest},
		{errors.ErrCodeRender, http.StatusUnprocessableEntity},
		{errors.ErrCodeLayout, http.StatusUnprocessableEntity},
		{errors.ErrCodeTimeout, http.StatusGatewayTimeout},
		{errors.ErrCodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.code); got != tt.want {
			t.Errorf("statusFor(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestRecoverPanics(t *testing.T) {
	s := New(nil, Config{})
	h := s.recoverPanics(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestServe_Shutdown(t *testing.T) {
	pool := pipeline.NewPool(pipeline.NewRunner(nil, nil, log.New(io.Discard)), 1)
	defer pool.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(pool, Config{Timeout: time.Second}).Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

// blockingCache holds every lookup until release is closed, keeping a render
// in flight for as long as a test needs.
type blockingCache struct {
	cache.NullCache
	entered chan struct{}
	release chan struct{}
}

func (c *blockingCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.entered <- struct{}{}
	select {
	case <-c.release:
		return nil, false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

func TestServe_ShutdownDrainsInFlight(t *testing.T) {
	bc := &blockingCache{entered: make(chan struct{}, 1), release: make(chan struct{})}
	pool := pipeline.NewPool(pipeline.NewRunner(bc, nil, log.New(io.Discard)), 1)
	defer pool.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(pool, Config{Timeout: 5 * time.Second}).Serve(ctx, ln) }()

	type result struct {
		status int
		err    error
	}
	resc := make(chan result, 1)
	go func() {
		resp, err := http.Post("http://"+ln.Addr().String()+"/api/v1/render/plain", "text/vnd.graphviz", strings.NewReader("digraph { a -> b }"))
		if err != nil {
			resc <- result{err: err}
			return
		}
		resp.Body.Close()
		resc <- result{status: resp.StatusCode}
	}()

	select {
	case <-bc.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("render never started")
	}
	cancel()
	time.Sleep(50 * time.Millisecond)
	close(bc.release)

	select {
	case r := <-resc:
		if r.err != nil {
			t.Fatalf("POST: %v", r.err)
		}
		if r.status != http.StatusOK {
			t.Errorf("status = %d, want 200 for a request in flight at shutdown", r.status)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no response")
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
