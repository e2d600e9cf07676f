package viz

import (
	"context"
	"encoding/json"

	"github.com/matzehuels/vizgo/pkg/errors"
)

// RenderJSON renders src as Graphviz JSON and decodes it. The format is
// forced to json unless json0 was requested.
func RenderJSON(ctx context.Context, src string, opts Options) (map[string]any, error) {
	if opts.Format != FormatJSON0 {
		opts.Format = FormatJSON
	}
	res, err := Render(ctx, src, opts)
	if err != nil {
		return nil, err
	}

	var obj map[string]any
	if err := json.Unmarshal(res.Output, &obj); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "decode %s output", opts.Format)
	}
	return obj, nil
}
