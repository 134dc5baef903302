package trafficgen

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"math/rand"
	"os"

	"github.com/fogleman/gg"
	"github.com/nfnt/resize"
	"github.com/rs/zerolog"
	"gocloud.dev/blob"
	"golang.org/x/image/font"
)

// DefaultPlateArea is the plate rectangle within the stock vehicle template.
var DefaultPlateArea = image.Rect(250, 450, 450, 500)

const (
	roiWidth  = 400
	roiHeight = 100

	plateFontSize = 24.0
	stateFontSize = 9.0
	platePadding  = 5.0
)

// OverlaySpec describes the plate-area overlay drawn onto a vehicle image:
// a background rectangle with the state name, plate number and optional
// plate-type label centered horizontally inside it.
type OverlaySpec struct {
	Area        image.Rectangle
	StateName   string
	PlateNumber string
	PlateType   *string
	StateFace   font.Face
	PlateFace   font.Face
}

// DrawPlateOverlay renders spec onto a copy of base and returns the result.
// base is never modified, so identical inputs yield identical pixels.
func DrawPlateOverlay(base image.Image, spec OverlaySpec) image.Image {

	dc := gg.NewContextForImage(base)

	x0 := float64(spec.Area.Min.X)
	y0 := float64(spec.Area.Min.Y)
	y1 := float64(spec.Area.Max.Y)
	cx := (x0 + float64(spec.Area.Max.X)) / 2

	dc.DrawRectangle(x0, y0, float64(spec.Area.Dx()), float64(spec.Area.Dy()))
	dc.SetRGB255(200, 200, 200)
	dc.FillPreserve()
	dc.SetRGB255(128, 128, 128)
	dc.Stroke()

	dc.SetRGB(0, 0, 0)

	dc.SetFontFace(spec.StateFace)
	dc.DrawStringAnchored(spec.StateName, cx, y0+platePadding, 0.5, 1)

	dc.SetFontFace(spec.PlateFace)
	dc.DrawStringAnchored(spec.PlateNumber, cx, y0+platePadding+10, 0.5, 1)

	if spec.PlateType != nil {
		dc.SetFontFace(spec.StateFace)
		dc.DrawStringAnchored(*spec.PlateType, cx, y1-12, 0.5, 1)
	}

	return dc.Image()
}

type ComposerOptions struct {
	// TemplatePath points at the base vehicle image. Missing or
	// undecodable files are fatal at first compose.
	TemplatePath string
	// FontPath points at the bold TTF used for all overlay text. Ignored
	// when explicit faces are supplied.
	FontPath string
	// Bucket receives the composed JPEGs.
	Bucket *blob.Bucket
	// PlateArea overrides DefaultPlateArea.
	PlateArea image.Rectangle
	// EffectWeights is the effect-selection distribution; one effect is
	// sampled per composition.
	EffectWeights map[string]float64

	// StateFace and PlateFace bypass font loading when both are set.
	StateFace font.Face
	PlateFace font.Face

	Logger zerolog.Logger
}

// Composer overlays plate details on a vehicle template, degrades the
// result with a sampled effect and emits overview plus region-of-interest
// images.
type Composer struct {
	opts   ComposerOptions
	area   image.Rectangle
	engine *EffectEngine
	rng    *rand.Rand
	log    zerolog.Logger

	template  image.Image
	stateFace font.Face
	plateFace font.Face
}

func NewComposer(opts ComposerOptions, engine *EffectEngine, rng *rand.Rand) (*Composer, error) {

	if opts.Bucket == nil {
		return nil, fmt.Errorf("%w: composer requires an image bucket", ErrConfiguration)
	}

	area := opts.PlateArea

	if area.Empty() {
		area = DefaultPlateArea
	}

	c := &Composer{
		opts:      opts,
		area:      area,
		engine:    engine,
		rng:       rng,
		log:       opts.Logger,
		stateFace: opts.StateFace,
		plateFace: opts.PlateFace,
	}

	return c, nil
}

// Compose generates overviewCount Overview images plus exactly one
// region-of-interest crop of the plate area, resized to 400x100. Overview
// descriptors come first, the ROI last.
func (c *Composer) Compose(ctx context.Context, transactionID string, plateNumber string, state PlateStateProfile, plateType *string, overviewCount int) ([]VehicleImage, error) {

	if overviewCount < 1 {
		return nil, fmt.Errorf("%w: overview count %d, need at least 1", ErrConfiguration, overviewCount)
	}

	err := c.loadAssets()

	if err != nil {
		return nil, err
	}

	spec := OverlaySpec{
		Area:        c.area,
		StateName:   state.FullName,
		PlateNumber: plateNumber,
		PlateType:   plateType,
		StateFace:   c.stateFace,
		PlateFace:   c.plateFace,
	}

	composed := DrawPlateOverlay(c.template, spec)

	effect, err := ChooseWeighted(c.rng, c.opts.EffectWeights)

	if err != nil {
		return nil, err
	}

	effected, err := c.engine.Apply(composed, effect)

	if err != nil {
		return nil, err
	}

	images := make([]VehicleImage, 0, overviewCount+1)

	for i := 1; i <= overviewCount; i++ {

		key := fmt.Sprintf("%s_vehicle_%d.jpg", transactionID, i)

		err = c.writeJPEG(ctx, key, effected)

		if err != nil {
			return nil, err
		}

		images = append(images, VehicleImage{ImageFile: key, ImageType: ImageTypeOverview})
	}

	roi := resize.Resize(roiWidth, roiHeight, effected.SubImage(c.area), resize.Lanczos3)

	roiKey := fmt.Sprintf("%s_plateroi.jpg", transactionID)

	err = c.writeJPEG(ctx, roiKey, roi)

	if err != nil {
		return nil, err
	}

	images = append(images, VehicleImage{ImageFile: roiKey, ImageType: ImageTypeRegionOfInterest})

	c.log.Debug().
		Str("transaction_id", transactionID).
		Str("effect", effect).
		Int("overview_images", overviewCount).
		Msg("composed vehicle images")

	return images, nil
}

func (c *Composer) loadAssets() error {

	if c.template == nil {

		r, err := os.Open(c.opts.TemplatePath)

		if err != nil {
			return fmt.Errorf("%w: open template %s: %v", ErrAssetLoad, c.opts.TemplatePath, err)
		}

		defer r.Close()

		im, _, err := image.Decode(r)

		if err != nil {
			return fmt.Errorf("%w: decode template %s: %v", ErrAssetLoad, c.opts.TemplatePath, err)
		}

		if !c.area.In(im.Bounds()) {
			return fmt.Errorf("%w: plate area %v outside template bounds %v", ErrConfiguration, c.area, im.Bounds())
		}

		c.template = im
	}

	if c.stateFace == nil || c.plateFace == nil {

		if c.opts.FontPath == "" {
			return fmt.Errorf("%w: no font configured", ErrAssetLoad)
		}

		stateFace, err := gg.LoadFontFace(c.opts.FontPath, stateFontSize)

		if err != nil {
			return fmt.Errorf("%w: load font %s: %v", ErrAssetLoad, c.opts.FontPath, err)
		}

		plateFace, err := gg.LoadFontFace(c.opts.FontPath, plateFontSize)

		if err != nil {
			return fmt.Errorf("%w: load font %s: %v", ErrAssetLoad, c.opts.FontPath, err)
		}

		c.stateFace = stateFace
		c.plateFace = plateFace
	}

	return nil
}

func (c *Composer) writeJPEG(ctx context.Context, key string, im image.Image) error {

	w, err := c.opts.Bucket.NewWriter(ctx, key, nil)

	if err != nil {
		return fmt.Errorf("failed to create writer for %s, %w", key, err)
	}

	err = jpeg.Encode(w, im, nil)

	if err != nil {
		w.Close()
		return fmt.Errorf("failed to encode %s, %w", key, err)
	}

	err = w.Close()

	if err != nil {
		return fmt.Errorf("failed to close %s, %w", key, err)
	}

	return nil
}
