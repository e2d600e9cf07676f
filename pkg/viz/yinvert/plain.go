package yinvert

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// flipPlain rewrites -Tplain and -Tplain-ext output:
//
//	graph scale width height
//	node name x y width height label style shape color fillcolor
//	edge tail head n x1 y1 .. xn yn [label xl yl] style color
//	stop
//
// All values are in inches with the lower left corner at the origin, so the
// mirror offset is the graph height.
func flipPlain(data []byte) ([]byte, error) {
	lines := bytes.SplitAfter(data, []byte("\n"))

	var f flipper
	var out bytes.Buffer
	out.Grow(len(data))

	for n, raw := range lines {
		line := string(raw)
		body := strings.TrimRight(line, "\r\n")
		eol := line[len(body):]

		toks := tokenize(body)
		if len(toks) == 0 {
			out.WriteString(line)
			continue
		}

		var err error
		switch toks[0].text {
		case "graph":
			if len(toks) < 4 {
				return nil, fmt.Errorf("plain line %d: malformed graph line", n+1)
			}
			height, perr := strconv.ParseFloat(toks[3].text, 64)
			if perr != nil {
				return nil, fmt.Errorf("plain line %d: bad height: %w", n+1, perr)
			}
			f = flipper{offset: height}
		case "node":
			err = flipTokens(f, toks, 3)
		case "edge":
			err = flipEdgeTokens(f, toks)
		}
		if err != nil {
			return nil, fmt.Errorf("plain line %d: %w", n+1, err)
		}

		out.WriteString(render(body, toks))
		out.WriteString(eol)
	}
	return out.Bytes(), nil
}

// flipEdgeTokens flips the control points and the optional label position of
// an edge line.
func flipEdgeTokens(f flipper, toks []token) error {
	if len(toks) < 4 {
		return fmt.Errorf("malformed edge line")
	}
	n, err := strconv.Atoi(toks[3].text)
	if err != nil {
		return fmt.Errorf("bad point count: %w", err)
	}
	end := 4 + 2*n
	if end > len(toks) {
		return fmt.Errorf("edge declares %d points but has %d values", n, len(toks)-4)
	}
	idx := make([]int, 0, n+1)
	for i := 0; i < n; i++ {
		idx = append(idx, 4+2*i+1)
	}
	// label xl yl style color
	if len(toks)-end >= 5 {
		idx = append(idx, end+2)
	}
	return flipTokens(f, toks, idx...)
}

func flipTokens(f flipper, toks []token, idx ...int) error {
	for _, i := range idx {
		if i >= len(toks) {
			return fmt.Errorf("missing coordinate at field %d", i+1)
		}
		v, err := strconv.ParseFloat(toks[i].text, 64)
		if err != nil {
			return fmt.Errorf("bad coordinate %q: %w", toks[i].text, err)
		}
		toks[i].repl = formatCoord(f.y(v))
		toks[i].replaced = true
	}
	return nil
}

// token is a field of a plain line. Quoted and HTML-like fields keep their
// delimiters.
type token struct {
	text     string
	start    int
	end      int
	repl     string
	replaced bool
}

func tokenize(line string) []token {
	var toks []token
	i := 0
	for i < len(line) {
		if line[i] == ' ' || line[i] == '\t' {
			i++
			continue
		}
		start := i
		switch line[i] {
		case '"':
			i++
			for i < len(line) && line[i] != '"' {
				if line[i] == '\\' {
					i++
				}
				i++
			}
			i = min(i+1, len(line))
		case '<':
			depth := 0
			for i < len(line) {
				if line[i] == '<' {
					depth++
				} else if line[i] == '>' {
					depth--
					if depth == 0 {
						i++
						break
					}
				}
				i++
			}
		default:
			for i < len(line) && line[i] != ' ' && line[i] != '\t' {
				i++
			}
		}
		toks = append(toks, token{text: line[start:i], start: start, end: i})
	}
	return toks
}

// render rebuilds line with replaced tokens, keeping the original spacing.
func render(line string, toks []token) string {
	var b strings.Builder
	b.Grow(len(line))
	last := 0
	for _, t := range toks {
		if !t.replaced {
			continue
		}
		b.WriteString(line[last:t.start])
		b.WriteString(t.repl)
		last = t.end
	}
	b.WriteString(line[last:])
	return b.String()
}
