package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/vizgo/pkg/buildinfo"
	"github.com/matzehuels/vizgo/pkg/errors"
	"github.com/matzehuels/vizgo/pkg/pipeline"
	"github.com/matzehuels/vizgo/pkg/viz"
)

// Result encodings in RenderResponse.
const (
	EncodingUTF8   = "utf-8"
	EncodingBase64 = "base64"
)

// RenderRequest is the body of POST /api/v1/render.
type RenderRequest struct {
	ID      string      `json:"id,omitempty"`
	Src     string      `json:"src"`
	Options viz.Options `json:"options"`
	Refresh bool        `json:"refresh,omitempty"`
}

// RenderResponse is the body returned by POST /api/v1/render. Binary
// formats are base64 encoded and flagged by Encoding.
type RenderResponse struct {
	ID       string                    `json:"id"`
	Result   string                    `json:"result,omitempty"`
	Encoding string                    `json:"encoding,omitempty"`
	Error    *pipeline.SerializedError `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set(HeaderVersion, buildinfo.Version)
	_, _ = io.WriteString(w, "ok\n")
}

func (s *Server) handleEngines(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"engines": viz.ValidEngines,
		"default": viz.DefaultEngine,
	})
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"formats": viz.ValidFormats,
		"default": viz.DefaultFormat,
	})
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var body RenderRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 2*errors.MaxSourceSize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request"))
		return
	}
	if err := errors.ValidateRequestID(body.ID); err != nil {
		writeError(w, err)
		return
	}
	if body.ID == "" {
		body.ID = RequestIDFromContext(r.Context())
	}

	req := pipeline.Request{ID: body.ID, Source: body.Src, Options: body.Options, Refresh: body.Refresh}
	resp, err := s.do(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	out := RenderResponse{ID: resp.ID, Error: resp.Error}
	if resp.Error != nil {
		writeJSON(w, statusFor(resp.Error.Code), out)
		return
	}
	format := body.Options.WithDefaults().Format
	if viz.IsBinary(format) {
		out.Result = base64.StdEncoding.EncodeToString(resp.Result)
		out.Encoding = EncodingBase64
	} else {
		out.Result = string(resp.Result)
		out.Encoding = EncodingUTF8
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRenderRaw(w http.ResponseWriter, r *http.Request) {
	opts, err := rawOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}

	src, err := io.ReadAll(http.MaxBytesReader(w, r.Body, errors.MaxSourceSize))
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "read body"))
		return
	}

	req := pipeline.Request{
		ID:      RequestIDFromContext(r.Context()),
		Source:  string(src),
		Options: opts,
		Refresh: r.URL.Query().Has("refresh"),
	}
	resp, err := s.do(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	if resp.Error != nil {
		writeJSON(w, statusFor(resp.Error.Code), map[string]any{"id": resp.ID, "error": resp.Error})
		return
	}

	w.Header().Set("Content-Type", ContentType(opts.Format))
	w.Header().Set("Content-Length", strconv.Itoa(len(resp.Result)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(resp.Result)
}

// rawOptions reads the format path parameter and the engine, yInvert and
// nop query parameters.
func rawOptions(r *http.Request) (viz.Options, error) {
	q := r.URL.Query()
	opts := viz.Options{
		Format: chi.URLParam(r, "format"),
		Engine: q.Get("engine"),
	}
	if v := q.Get("yInvert"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid yInvert %q", v)
		}
		opts.YInvert = b
	}
	if v := q.Get("nop"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid nop %q", v)
		}
		opts.Nop = n
	}
	return opts.WithDefaults(), opts.Validate()
}

// do runs req on the pool. The returned error is set only when the request
// never reached a worker.
func (s *Server) do(ctx context.Context, req pipeline.Request) (pipeline.Response, error) {
	resp, err := s.pool.Do(ctx, req)
	switch {
	case err == nil:
		return resp, nil
	case stderrors.Is(err, pipeline.ErrPoolClosed):
		return resp, errors.Wrap(errors.ErrCodeUnsupported, err, "server is shutting down")
	case stderrors.Is(err, context.DeadlineExceeded), stderrors.Is(err, context.Canceled):
		return resp, errors.Wrap(errors.ErrCodeTimeout, err, "request timed out")
	}
	return resp, err
}

// ContentType returns the MIME type of a rendered format.
func ContentType(format string) string {
	switch format {
	case viz.FormatSVG:
		return "image/svg+xml"
	case viz.FormatPNG:
		return "image/png"
	case viz.FormatJPG:
		return "image/jpeg"
	case viz.FormatJSON, viz.FormatJSON0:
		return "application/json"
	case viz.FormatPS, viz.FormatPS2:
		return "application/postscript"
	case viz.FormatDOT, viz.FormatXDOT, viz.FormatCanon:
		return "text/vnd.graphviz; charset=utf-8"
	}
	return "text/plain; charset=utf-8"
}

// statusFor maps an error code to an HTTP status.
func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidFormat, errors.ErrCodeInvalidEngine,
		errors.ErrCodeNoGraph, errors.ErrCodeParse:
		return http.StatusBadRequest
	case errors.ErrCodeLayout, errors.ErrCodeRender:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrCodeUnsupported:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	se := pipeline.SerializeError(err)
	writeJSON(w, statusFor(se.Code), map[string]any{"error": se})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
