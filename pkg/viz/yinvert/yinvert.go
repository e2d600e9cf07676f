// Package yinvert flips the vertical axis of rendered Graphviz output.
//
// Graphviz places the origin at the lower left corner. With its -y flag the
// coordinates written to text formats are mirrored as
//
//	y' = (bb.lly + bb.ury) - y
//
// where bb is the bounding box of the root graph. This package applies the same
// rule after rendering, to the formats that carry layout coordinates: plain,
// plain-ext, json, json0, dot and xdot. Device formats such as svg and png use
// their own coordinate system and are returned unchanged.
package yinvert

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Supports reports whether format carries layout coordinates that Apply
// rewrites.
func Supports(format string) bool {
	switch format {
	case "plain", "plain-ext", "json", "json0", "dot", "xdot":
		return true
	}
	return false
}

// Apply returns data with its y coordinates mirrored. Formats without layout
// coordinates are returned unchanged.
func Apply(format string, data []byte) ([]byte, error) {
	switch format {
	case "plain", "plain-ext":
		return flipPlain(data)
	case "json", "json0":
		return flipJSON(data)
	case "dot", "xdot":
		return flipDOT(data)
	default:
		return data, nil
	}
}

// flipper mirrors y values around the bounding box of the root graph.
type flipper struct {
	offset float64 // bb.lly + bb.ury
}

func (f flipper) y(v float64) float64 {
	return f.offset - v
}

// newFlipperFromBB builds a flipper from a "llx,lly,urx,ury" attribute.
func newFlipperFromBB(bb string) (flipper, error) {
	parts := strings.Split(bb, ",")
	if len(parts) != 4 {
		return flipper{}, fmt.Errorf("malformed bb %q", bb)
	}
	lly, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return flipper{}, fmt.Errorf("malformed bb %q: %w", bb, err)
	}
	ury, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
	if err != nil {
		return flipper{}, fmt.Errorf("malformed bb %q: %w", bb, err)
	}
	return flipper{offset: lly + ury}, nil
}

// pointAttrs are the attributes whose values are point lists.
var pointAttrs = map[string]bool{
	"pos":     true,
	"lp":      true,
	"xlp":     true,
	"head_lp": true,
	"tail_lp": true,
}

// drawAttrs are the xdot drawing operation attributes.
var drawAttrs = map[string]bool{
	"_draw_":   true,
	"_ldraw_":  true,
	"_hdraw_":  true,
	"_tdraw_":  true,
	"_hldraw_": true,
	"_tldraw_": true,
}

// flipAttr rewrites the value of a coordinate-bearing attribute. ok is false
// when key is not one of them.
func (f flipper) flipAttr(key, val string) (out string, ok bool, err error) {
	switch {
	case key == "bb":
		out, err = f.flipBB(val)
		return out, true, err
	case pointAttrs[key]:
		out, err = f.flipPoints(val)
		return out, true, err
	case drawAttrs[key]:
		out, err = f.flipOps(val)
		return out, true, err
	}
	return val, false, nil
}

// flipBB mirrors both corners of a bounding box. The result lists the
// original lower corner first, as Graphviz does.
func (f flipper) flipBB(val string) (string, error) {
	parts := strings.Split(val, ",")
	if len(parts) != 4 {
		return "", fmt.Errorf("malformed bb %q", val)
	}
	for _, i := range []int{1, 3} {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			return "", fmt.Errorf("malformed bb %q: %w", val, err)
		}
		parts[i] = formatCoord(f.y(v))
	}
	return strings.Join(parts, ","), nil
}

// flipPoints mirrors a space separated list of "x,y" points. Edge endpoints
// carry an "e," or "s," prefix and pinned node positions a trailing "!".
func (f flipper) flipPoints(val string) (string, error) {
	fields := strings.Fields(val)
	for i, field := range fields {
		prefix := ""
		if strings.HasPrefix(field, "e,") || strings.HasPrefix(field, "s,") {
			prefix, field = field[:2], field[2:]
		}
		suffix := ""
		if strings.HasSuffix(field, "!") {
			suffix, field = "!", strings.TrimSuffix(field, "!")
		}

		coords := strings.Split(field, ",")
		if len(coords) < 2 {
			return "", fmt.Errorf("malformed point %q in %q", fields[i], val)
		}
		y, err := strconv.ParseFloat(coords[1], 64)
		if err != nil {
			return "", fmt.Errorf("malformed point %q in %q: %w", fields[i], val, err)
		}
		coords[1] = formatCoord(f.y(y))
		fields[i] = prefix + strings.Join(coords, ",") + suffix
	}
	return strings.Join(fields, " "), nil
}

// formatCoord prints a coordinate with at most five decimals and no
// trailing zeros.
func formatCoord(v float64) string {
	v = math.Round(v*1e5) / 1e5
	if v == 0 {
		v = 0 // drop the sign of negative zero
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
