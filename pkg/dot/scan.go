package dot

import "strings"

// Chunk is the source text of one top-level graph.
type Chunk struct {
	// Index is the position of the graph in the source, starting at 0.
	Index int

	// Text is the exact source text, from the end of the previous graph up
	// to and including this graph's closing brace.
	Text string

	// Offset is the byte offset of Text in the source.
	Offset int

	// Line is the 1-based line number at which Text starts.
	Line int

	// Closed is false when the source ended before the graph body was closed.
	Closed bool
}

// Padded returns Text prefixed with enough newlines that line numbers in
// engine diagnostics match the full input.
func (c Chunk) Padded() string {
	if c.Line <= 1 {
		return c.Text
	}
	return strings.Repeat("\n", c.Line-1) + c.Text
}

// Scanner iterates over the graphs in a DOT source.
// A Scanner is not safe for concurrent use.
type Scanner struct {
	src   string
	pos   int
	line  int
	index int
	chunk Chunk
	done  bool
}

// NewScanner returns a Scanner reading from src.
func NewScanner(src string) *Scanner {
	return &Scanner{src: src, line: 1}
}

// Next advances to the next graph. It returns false when the source holds
// nothing but whitespace and comments past the current position.
func (s *Scanner) Next() bool {
	if s.done {
		return false
	}

	start, startLine := s.pos, s.line
	if !s.skipTrivia() {
		s.done = true
		return false
	}

	depth := 0
	opened := false
	for s.pos < len(s.src) {
		switch ch := s.src[s.pos]; ch {
		case '"':
			s.skipQuoted()
		case '<':
			s.skipHTML()
		case '/':
			if !s.skipComment() {
				s.advance()
			}
		case '#':
			s.skipLine()
		case '{':
			depth++
			opened = true
			s.advance()
		case '}':
			depth--
			s.advance()
			if depth < 0 {
				return s.emitRest(start, startLine)
			}
			if depth == 0 && opened {
				s.emit(start, startLine, s.pos, true)
				return true
			}
		default:
			s.advance()
		}
	}
	return s.emitRest(start, startLine)
}

// Chunk returns the graph found by the most recent call to Next.
func (s *Scanner) Chunk() Chunk {
	return s.chunk
}

// Split returns every graph in src.
func Split(src string) []Chunk {
	var chunks []Chunk
	s := NewScanner(src)
	for s.Next() {
		chunks = append(chunks, s.Chunk())
	}
	return chunks
}

// Count returns the number of graphs in src.
func Count(src string) int {
	return len(Split(src))
}

func (s *Scanner) emit(start, startLine, end int, closed bool) {
	s.chunk = Chunk{
		Index:  s.index,
		Text:   s.src[start:end],
		Offset: start,
		Line:   startLine,
		Closed: closed,
	}
	s.index++
}

// emitRest returns everything from start to the end of the source as a final,
// unclosed chunk.
func (s *Scanner) emitRest(start, startLine int) bool {
	for s.pos < len(s.src) {
		s.advance()
	}
	s.emit(start, startLine, len(s.src), false)
	s.done = true
	return true
}

func (s *Scanner) advance() {
	if s.src[s.pos] == '\n' {
		s.line++
	}
	s.pos++
}

// skipTrivia skips whitespace and comments. Graphviz reads '#' as a line
// comment wherever it appears outside a string.
// It reports whether anything else remains.
func (s *Scanner) skipTrivia() bool {
	for s.pos < len(s.src) {
		switch ch := s.src[s.pos]; {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f' || ch == '\v':
			s.advance()
		case ch == '/':
			if !s.skipComment() {
				return true
			}
		case ch == '#':
			s.skipLine()
		default:
			return true
		}
	}
	return false
}

// skipComment skips a // or /* */ comment at the current position.
// It reports false, without moving, when no comment starts here.
func (s *Scanner) skipComment() bool {
	if s.pos+1 >= len(s.src) {
		return false
	}
	switch s.src[s.pos+1] {
	case '/':
		s.skipLine()
		return true
	case '*':
		s.advance()
		s.advance()
		for s.pos < len(s.src) {
			if s.src[s.pos] == '*' && s.pos+1 < len(s.src) && s.src[s.pos+1] == '/' {
				s.advance()
				s.advance()
				return true
			}
			s.advance()
		}
		return true
	}
	return false
}

// skipLine skips to the start of the next line.
func (s *Scanner) skipLine() {
	for s.pos < len(s.src) && s.src[s.pos] != '\n' {
		s.advance()
	}
	if s.pos < len(s.src) {
		s.advance()
	}
}

// skipQuoted skips a double-quoted string, honoring backslash escapes.
func (s *Scanner) skipQuoted() {
	s.advance()
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case '\\':
			s.advance()
			if s.pos < len(s.src) {
				s.advance()
			}
		case '"':
			s.advance()
			return
		default:
			s.advance()
		}
	}
}

// skipHTML skips an HTML string, which nests angle brackets.
func (s *Scanner) skipHTML() {
	depth := 0
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case '<':
			depth++
		case '>':
			depth--
			if depth == 0 {
				s.advance()
				return
			}
		}
		s.advance()
	}
}
