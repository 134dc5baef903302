package trafficgen

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"math/rand"

	"github.com/fogleman/gg"
)

// Canonical effect names. The effect distribution in the configuration is
// validated against this set at startup.
const (
	EffectClear  = "clear"
	EffectBlurry = "blurry"
	EffectDirty  = "dirty"
	EffectRainy  = "rainy"
	EffectSnowy  = "snowy"
)

const (
	blurRadius      = 3 // 7-tap kernel
	blurSigma       = 2.0
	dirtNoiseMax    = 50
	rainStreakCount = 50
	snowThreshold   = 250
	snowWeight      = 0.1
)

var knownEffects = map[string]bool{
	EffectClear:  true,
	EffectBlurry: true,
	EffectDirty:  true,
	EffectRainy:  true,
	EffectSnowy:  true,
}

// KnownEffect reports whether the engine recognizes name.
func KnownEffect(name string) bool {
	return knownEffects[name]
}

// EffectEngine applies one named visual degradation to a raster image.
// Input is always normalized to single-channel intensity first, mimicking
// an infrared toll camera.
type EffectEngine struct {
	rng *rand.Rand
}

func NewEffectEngine(rng *rand.Rand) *EffectEngine {
	return &EffectEngine{rng: rng}
}

// Apply returns a new single-channel image with the named effect applied.
// The input image is never modified.
func (e *EffectEngine) Apply(im image.Image, effect string) (*image.Gray, error) {

	gray := Grayscale(im)

	switch effect {
	case EffectClear:
		return gray, nil
	case EffectBlurry:
		return gaussianBlur(gray, blurRadius, blurSigma), nil
	case EffectDirty:
		return e.addNoise(gray), nil
	case EffectRainy:
		return e.drawRain(gray), nil
	case EffectSnowy:
		return e.blendSnow(gray), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidEffect, effect)
	}
}

// addNoise brightens each pixel by a bounded uniform amount, saturating at
// white.
func (e *EffectEngine) addNoise(src *image.Gray) *image.Gray {

	bounds := src.Bounds()
	dst := image.NewGray(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			v := int(src.GrayAt(x, y).Y) + e.rng.Intn(dirtNoiseMax)
			dst.SetGray(x, y, color.Gray{Y: clampByte(v)})
		}
	}

	return dst
}

// drawRain strokes short white diagonal streaks over the image.
func (e *EffectEngine) drawRain(src *image.Gray) *image.Gray {

	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	dc := gg.NewContextForImage(src)
	dc.SetColor(color.White)
	dc.SetLineWidth(1)

	for i := 0; i < rainStreakCount; i++ {
		x1 := e.rng.Intn(w + 1)
		y1 := e.rng.Intn(h + 1)
		x2 := x1 + e.rng.Intn(21) - 10
		y2 := y1 + 20 + e.rng.Intn(31)
		dc.DrawLine(float64(x1), float64(y1), float64(x2), float64(y2))
	}

	dc.Stroke()

	return Grayscale(dc.Image())
}

// blendSnow alpha-blends sparse near-binary speckle noise onto the image.
func (e *EffectEngine) blendSnow(src *image.Gray) *image.Gray {

	bounds := src.Bounds()
	dst := image.NewGray(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {

			speckle := 0.0

			if e.rng.Intn(256) > snowThreshold {
				speckle = 255.0
			}

			v := (1.0-snowWeight)*float64(src.GrayAt(x, y).Y) + snowWeight*speckle
			dst.SetGray(x, y, color.Gray{Y: clampByte(int(math.Round(v)))})
		}
	}

	return dst
}

// Grayscale copies im into a new single-channel intensity image.
func Grayscale(im image.Image) *image.Gray {

	bounds := im.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, im, bounds.Min, draw.Src)

	return gray
}

func gaussianBlur(src *image.Gray, radius int, sigma float64) *image.Gray {

	kernel := make([]float64, 2*radius+1)
	sum := 0.0

	for i := range kernel {
		d := float64(i - radius)
		kernel[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		sum += kernel[i]
	}

	for i := range kernel {
		kernel[i] /= sum
	}

	bounds := src.Bounds()
	tmp := image.NewGray(bounds)
	dst := image.NewGray(bounds)

	// Separable passes, clamping at the edges.

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			acc := 0.0
			for k := -radius; k <= radius; k++ {
				sx := clampInt(x+k, bounds.Min.X, bounds.Max.X-1)
				acc += kernel[k+radius] * float64(src.GrayAt(sx, y).Y)
			}
			tmp.SetGray(x, y, color.Gray{Y: clampByte(int(math.Round(acc)))})
		}
	}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			acc := 0.0
			for k := -radius; k <= radius; k++ {
				sy := clampInt(y+k, bounds.Min.Y, bounds.Max.Y-1)
				acc += kernel[k+radius] * float64(tmp.GrayAt(x, sy).Y)
			}
			dst.SetGray(x, y, color.Gray{Y: clampByte(int(math.Round(acc)))})
		}
	}

	return dst
}

func clampByte(v int) uint8 {

	if v < 0 {
		return 0
	}

	if v > 255 {
		return 255
	}

	return uint8(v)
}

func clampInt(v int, lo int, hi int) int {

	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}
