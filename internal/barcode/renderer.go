package barcode

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"math"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code39"

	"github.com/bitloom/mobile-barcode-pass/internal/domain/pass"
)

// Scale is a pixel density multiplier.
type Scale int

// Supported densities.
const (
	Scale1x Scale = 1
	Scale2x Scale = 2
	Scale3x Scale = 3
)

const (
	// barHeight is the bar height in pixels at 1x (36.7 mm at 72 dpi).
	barHeight = 104
	// paddingY is the top and bottom padding in pixels per vertical unit.
	paddingY = 20
	// paddingX is the left and right padding per horizontal unit.
	paddingX = 28.5
)

var (
	// errEmptyValue is returned for an empty credential value.
	errEmptyValue = errors.New("value is empty")
	// errUnsupportedScale is returned for a scale outside Scales.
	errUnsupportedScale = errors.New("unsupported scale")
)

// Scales returns the densities every package carries, smallest first.
func Scales() []Scale {
	return []Scale{Scale1x, Scale2x, Scale3x}
}

// Filename returns the archive entry name of the strip at this density.
func (s Scale) Filename() string {
	if s == Scale1x {
		return "strip.png"
	}

	return fmt.Sprintf("strip@%dx.png", int(s))
}

// valid reports whether s is one of Scales.
func (s Scale) valid() bool {
	return s >= Scale1x && s <= Scale3x
}

// Render encodes value as Code 39 and returns the PNG strip for scale.
// Horizontal scaling is twice the vertical one.
func Render(value string, scale Scale) ([]byte, error) {
	if !scale.valid() {
		return nil, &pass.RenderError{Scale: int(scale), Err: errUnsupportedScale}
	}

	if value == "" {
		return nil, &pass.RenderError{Scale: int(scale), Err: errEmptyValue}
	}

	code, err := code39.EncodeWithColor(value, false, false, barcode.ColorScheme8)
	if err != nil {
		return nil, &pass.RenderError{Scale: int(scale), Err: fmt.Errorf("encode %q: %w", value, err)}
	}

	var (
		scaleX = 2 * int(scale)
		scaleY = int(scale)
		width  = code.Bounds().Dx() * scaleX
		height = barHeight * scaleY
		padX   = int(math.Round(paddingX * float64(scaleX)))
		padY   = paddingY * scaleY
	)

	bars, err := barcode.Scale(code, width, height)
	if err != nil {
		return nil, &pass.RenderError{Scale: int(scale), Err: fmt.Errorf("scale bars: %w", err)}
	}

	canvas := image.NewGray(image.Rect(0, 0, width+2*padX, height+2*padY))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(barcode.ColorScheme8.Background), image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(padX, padY, padX+width, padY+height), bars, image.Point{}, draw.Src)

	var buf bytes.Buffer
	if err = png.Encode(&buf, canvas); err != nil {
		return nil, &pass.RenderError{Scale: int(scale), Err: fmt.Errorf("encode png: %w", err)}
	}

	return buf.Bytes(), nil
}
