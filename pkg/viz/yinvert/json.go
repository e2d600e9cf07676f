package yinvert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// flipJSON rewrites -Tjson and -Tjson0 output. Attribute strings (bb, pos,
// lp, ...) and the coordinates of parsed drawing operations (pt, points,
// rect) are mirrored. Numbers that are not touched keep their original text.
func flipJSON(data []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode json output: %w", err)
	}

	bb, _ := doc["bb"].(string)
	if bb == "" {
		// Nothing was laid out.
		return data, nil
	}
	f, err := newFlipperFromBB(bb)
	if err != nil {
		return nil, err
	}

	if err := f.walkJSON(doc); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	enc := json.NewEncoder(&out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode json output: %w", err)
	}
	return out.Bytes(), nil
}

func (f flipper) walkJSON(v any) error {
	switch v := v.(type) {
	case map[string]any:
		for k, val := range v {
			if s, ok := val.(string); ok {
				out, handled, err := f.flipAttr(k, s)
				if err != nil {
					return fmt.Errorf("attribute %s: %w", k, err)
				}
				if handled {
					v[k] = out
				}
				continue
			}
			switch k {
			case "pt":
				if err := f.flipPair(val); err != nil {
					return fmt.Errorf("pt: %w", err)
				}
				continue
			case "points":
				pts, ok := val.([]any)
				if !ok {
					return fmt.Errorf("points: expected array")
				}
				for _, p := range pts {
					if err := f.flipPair(p); err != nil {
						return fmt.Errorf("points: %w", err)
					}
				}
				continue
			case "rect":
				if err := f.flipPair(val); err != nil {
					return fmt.Errorf("rect: %w", err)
				}
				continue
			}
			if err := f.walkJSON(val); err != nil {
				return err
			}
		}
	case []any:
		for _, item := range v {
			if err := f.walkJSON(item); err != nil {
				return err
			}
		}
	}
	return nil
}

// flipPair mirrors the second element of an [x, y, ...] array in place.
func (f flipper) flipPair(v any) error {
	arr, ok := v.([]any)
	if !ok || len(arr) < 2 {
		return fmt.Errorf("expected coordinate array, got %v", v)
	}
	y, err := jsonFloat(arr[1])
	if err != nil {
		return err
	}
	arr[1] = json.Number(formatCoord(f.y(y)))
	return nil
}

func jsonFloat(v any) (float64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Float64()
	case float64:
		return n, nil
	case string:
		return strconv.ParseFloat(n, 64)
	}
	return 0, fmt.Errorf("expected number, got %T", v)
}
