package viz

import (
	"slices"

	"github.com/matzehuels/vizgo/pkg/errors"
)

// Output formats.
const (
	FormatSVG      = "svg"
	FormatDOT      = "dot"
	FormatXDOT     = "xdot"
	FormatPlain    = "plain"
	FormatPlainExt = "plain-ext"
	FormatJSON     = "json"
	FormatJSON0    = "json0"
	FormatCanon    = "canon"
	FormatPS       = "ps"
	FormatPS2      = "ps2"
	FormatPNG      = "png"
	FormatJPG      = "jpg"
)

// Layout engines.
const (
	EngineDot       = "dot"
	EngineNeato     = "neato"
	EngineFDP       = "fdp"
	EngineSFDP      = "sfdp"
	EngineCirco     = "circo"
	EngineTwopi     = "twopi"
	EngineOsage     = "osage"
	EnginePatchwork = "patchwork"
	EngineNop       = "nop"
	EngineNop1      = "nop1"
	EngineNop2      = "nop2"
)

// Defaults applied to empty option fields.
const (
	DefaultFormat = FormatSVG
	DefaultEngine = EngineDot
)

var (
	// ValidFormats lists the supported output formats.
	ValidFormats = []string{
		FormatSVG, FormatDOT, FormatXDOT, FormatPlain, FormatPlainExt,
		FormatJSON, FormatJSON0, FormatCanon, FormatPS, FormatPS2,
		FormatPNG, FormatJPG,
	}

	// ValidEngines lists the supported layout engines.
	ValidEngines = []string{
		EngineDot, EngineNeato, EngineFDP, EngineSFDP, EngineCirco,
		EngineTwopi, EngineOsage, EnginePatchwork,
		EngineNop, EngineNop1, EngineNop2,
	}

	binaryFormats = []string{FormatPNG, FormatJPG}
)

// IsBinary reports whether format produces non-text output.
func IsBinary(format string) bool {
	return slices.Contains(binaryFormats, format)
}

// Options configures a render.
type Options struct {
	// Format is the output format. Defaults to svg.
	Format string `json:"format,omitempty"`

	// Engine is the layout engine. Defaults to dot.
	Engine string `json:"engine,omitempty"`

	// YInvert mirrors the y coordinates of text output.
	YInvert bool `json:"yInvert,omitempty"`

	// Nop is neato's -n flag: when positive, neato keeps the node positions
	// given in the source (1) and also the edge splines (2 or more). Other
	// engines ignore it.
	Nop int `json:"nop,omitempty"`
}

// WithDefaults returns a copy of o with empty fields set to their defaults.
func (o Options) WithDefaults() Options {
	if o.Format == "" {
		o.Format = DefaultFormat
	}
	if o.Engine == "" {
		o.Engine = DefaultEngine
	}
	return o
}

// Validate checks the format and engine names. Empty names are valid and
// resolve to the defaults.
func (o Options) Validate() error {
	if o.Format != "" && !slices.Contains(ValidFormats, o.Format) {
		return errors.New(errors.ErrCodeInvalidFormat, "unknown format %q", o.Format)
	}
	if o.Engine != "" && !slices.Contains(ValidEngines, o.Engine) {
		return errors.New(errors.ErrCodeInvalidEngine, "unknown engine %q", o.Engine)
	}
	return nil
}

// Layout returns the layout the engine actually runs. With a positive Nop,
// neato is replaced by the nop layouts the way its -n flag does.
func (o Options) Layout() string {
	engine := o.Engine
	if engine == "" {
		engine = DefaultEngine
	}
	if engine != EngineNeato {
		return engine
	}
	switch {
	case o.Nop == 1:
		return EngineNop
	case o.Nop >= 2:
		return EngineNop2
	}
	return engine
}
