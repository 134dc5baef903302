package trafficgen

import (
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func flatGray(w int, h int, v uint8) *image.Gray {

	im := image.NewGray(image.Rect(0, 0, w, h))

	for i := range im.Pix {
		im.Pix[i] = v
	}

	return im
}

func TestEffectEngine_UnknownEffect(t *testing.T) {
	engine := NewEffectEngine(rand.New(rand.NewSource(1)))

	_, err := engine.Apply(flatGray(10, 10, 0), "foggy")
	assert.ErrorIs(t, err, ErrInvalidEffect)

	// The selection vocabulary is canonical; legacy short names are not
	// accepted by the engine.
	_, err = engine.Apply(flatGray(10, 10, 0), "snow")
	assert.ErrorIs(t, err, ErrInvalidEffect)
}

func TestEffectEngine_ClearIsIdentity(t *testing.T) {
	engine := NewEffectEngine(rand.New(rand.NewSource(1)))

	src := flatGray(20, 20, 90)
	src.SetGray(3, 7, color.Gray{Y: 200})

	out, err := engine.Apply(src, EffectClear)
	assert.NoError(t, err)
	assert.Equal(t, src.Pix, out.Pix)

	// A fresh copy comes back, not the input.
	out.SetGray(0, 0, color.Gray{Y: 1})
	assert.Equal(t, uint8(90), src.GrayAt(0, 0).Y)
}

func TestEffectEngine_BoundsPreserved(t *testing.T) {
	engine := NewEffectEngine(rand.New(rand.NewSource(2)))

	src := flatGray(64, 128, 100)

	for _, effect := range []string{EffectClear, EffectBlurry, EffectDirty, EffectRainy, EffectSnowy} {
		out, err := engine.Apply(src, effect)
		assert.NoError(t, err, effect)
		assert.Equal(t, src.Bounds(), out.Bounds(), effect)
	}
}

func TestEffectEngine_DirtyOnlyBrightens(t *testing.T) {
	engine := NewEffectEngine(rand.New(rand.NewSource(3)))

	src := flatGray(32, 32, 120)

	out, err := engine.Apply(src, EffectDirty)
	assert.NoError(t, err)

	changed := false

	for i := range out.Pix {
		assert.GreaterOrEqual(t, out.Pix[i], src.Pix[i])
		if out.Pix[i] != src.Pix[i] {
			changed = true
		}
	}

	assert.True(t, changed, "noise should alter at least one pixel")
}

func TestEffectEngine_BlurPreservesFlatRegions(t *testing.T) {
	engine := NewEffectEngine(rand.New(rand.NewSource(4)))

	// Blurring a constant image must return the same constant.
	src := flatGray(40, 40, 77)

	out, err := engine.Apply(src, EffectBlurry)
	assert.NoError(t, err)
	assert.Equal(t, src.Pix, out.Pix)
}

func TestEffectEngine_RainAddsBrightStreaks(t *testing.T) {
	engine := NewEffectEngine(rand.New(rand.NewSource(5)))

	src := flatGray(100, 200, 0)

	out, err := engine.Apply(src, EffectRainy)
	assert.NoError(t, err)

	lit := 0

	for i := range out.Pix {
		if out.Pix[i] > 0 {
			lit++
		}
	}

	assert.Greater(t, lit, 0, "streaks should light up pixels")
}

func TestEffectEngine_SnowBlendsSparseSpeckle(t *testing.T) {
	engine := NewEffectEngine(rand.New(rand.NewSource(6)))

	src := flatGray(100, 100, 100)

	out, err := engine.Apply(src, EffectSnowy)
	assert.NoError(t, err)

	speckled := 0

	for i := range out.Pix {
		switch out.Pix[i] {
		case 90:
			// 0.9 * 100, no speckle here
		case 116:
			// 0.9 * 100 + 0.1 * 255
			speckled++
		default:
			t.Fatalf("unexpected intensity %d at %d", out.Pix[i], i)
		}
	}

	// Speckle is thresholded to ~2% density.
	assert.Greater(t, speckled, 0)
	assert.Less(t, speckled, len(out.Pix)/10)
}

func TestGrayscale_NormalizesColor(t *testing.T) {

	src := image.NewRGBA(image.Rect(0, 0, 4, 4))

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			src.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}

	gray := Grayscale(src)
	assert.Equal(t, src.Bounds(), gray.Bounds())

	// Pure red maps to a mid-dark intensity, identical everywhere.
	first := gray.Pix[0]
	assert.NotZero(t, first)

	for i := range gray.Pix {
		assert.Equal(t, first, gray.Pix[i])
	}
}
