package yinvert

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var errTruncated = errors.New("truncated drawing operation")

// flipOps mirrors the coordinates in an xdot drawing operation string such as
//
//	c 7 -#000000 e 27 18 27 18 F 14 11 -Times-Roman T 27 14.3 0 7 1 -a
//
// Text fields are byte counted ("n -bytes") and copied verbatim.
func (f flipper) flipOps(ops string) (string, error) {
	r := &opRewriter{src: ops, flip: f.y}
	if err := r.run(); err != nil {
		return "", fmt.Errorf("xdot %q: %w", ops, err)
	}
	return r.out.String(), nil
}

type opRewriter struct {
	src  string
	pos  int
	out  strings.Builder
	flip func(float64) float64
}

func (r *opRewriter) run() error {
	for {
		r.space()
		if r.pos >= len(r.src) {
			return nil
		}
		op := r.src[r.pos]
		r.out.WriteByte(op)
		r.pos++

		var err error
		switch op {
		case 'E', 'e': // ellipse: x y w h
			err = r.seq(r.keep, r.flipY, r.keep, r.keep)
		case 'P', 'p', 'L', 'B', 'b': // polygon, polyline, b-spline: n x1 y1 ...
			err = r.points()
		case 'T': // text: x y align width n -text
			err = r.seq(r.keep, r.flipY, r.keep, r.keep, r.bytes)
		case 't': // font characteristics
			err = r.keep()
		case 'C', 'c', 'S': // colors, style: n -text
			err = r.bytes()
		case 'F': // font: size n -name
			err = r.seq(r.keep, r.bytes)
		case 'I': // image: x y w h n -name
			err = r.seq(r.keep, r.flipY, r.keep, r.keep, r.bytes)
		default:
			return fmt.Errorf("unknown operation %q at %d", op, r.pos-1)
		}
		if err != nil {
			return err
		}
	}
}

func (r *opRewriter) seq(steps ...func() error) error {
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (r *opRewriter) space() {
	start := r.pos
	for r.pos < len(r.src) && isSpace(r.src[r.pos]) {
		r.pos++
	}
	r.out.WriteString(r.src[start:r.pos])
}

func (r *opRewriter) word() (string, error) {
	r.space()
	start := r.pos
	for r.pos < len(r.src) && !isSpace(r.src[r.pos]) {
		r.pos++
	}
	if start == r.pos {
		return "", errTruncated
	}
	return r.src[start:r.pos], nil
}

// keep copies the next field unchanged.
func (r *opRewriter) keep() error {
	w, err := r.word()
	if err != nil {
		return err
	}
	r.out.WriteString(w)
	return nil
}

func (r *opRewriter) flipY() error {
	w, err := r.word()
	if err != nil {
		return err
	}
	v, err := strconv.ParseFloat(w, 64)
	if err != nil {
		return fmt.Errorf("bad coordinate %q: %w", w, err)
	}
	r.out.WriteString(formatCoord(r.flip(v)))
	return nil
}

func (r *opRewriter) count() (int, error) {
	w, err := r.word()
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(w)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("bad count %q", w)
	}
	r.out.WriteString(w)
	return n, nil
}

func (r *opRewriter) points() error {
	n, err := r.count()
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := r.seq(r.keep, r.flipY); err != nil {
			return err
		}
	}
	return nil
}

// bytes copies a byte counted field: "n -text".
func (r *opRewriter) bytes() error {
	n, err := r.count()
	if err != nil {
		return err
	}
	r.space()
	if r.pos >= len(r.src) || r.src[r.pos] != '-' {
		return fmt.Errorf("expected '-' before %d byte field at %d", n, r.pos)
	}
	end := r.pos + 1 + n
	if end > len(r.src) {
		return errTruncated
	}
	r.out.WriteString(r.src[r.pos:end])
	r.pos = end
	return nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
