package trafficgen

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ImageType distinguishes overview shots from the cropped plate image.
// Values follow the downstream ALPR ingest convention: "1" is a rear
// overview, "2" is the region of interest.
type ImageType string

const (
	ImageTypeOverview         ImageType = "1"
	ImageTypeRegionOfInterest ImageType = "2"
)

// VehicleImage points at one emitted image file.
type VehicleImage struct {
	ImageFile string    `json:"image_file"`
	ImageType ImageType `json:"image_type"`
}

// TransactionRecord is one synthetic toll transaction. Optional fields are
// pointers and serialize as explicit nulls when absent.
type TransactionRecord struct {
	LaneTransID       string         `json:"LaneTransId"`
	TransactionDt     time.Time      `json:"TransactionDt"`
	LocationID        int            `json:"LocationId"`
	LocationTypeID    int            `json:"LocationTypeId"`
	LaneID            int            `json:"LaneId"`
	PlateNumber       string         `json:"PlateNumber"`
	PlateState        string         `json:"PlateState"`
	TagAgencyID       *string        `json:"TagAgencyId"`
	TagNumber         *string        `json:"TagNumber"`
	VehicleClassID    int            `json:"VehicleClassId"`
	AxleCount         int            `json:"AxleCount"`
	CameraID          int            `json:"CameraId"`
	CameraOrientation string         `json:"CameraOrientation"`
	DirectionID       int            `json:"DirectionId"`
	Latitude          float64        `json:"Latitude"`
	Longitude         float64        `json:"Longitude"`
	VehicleImages     []VehicleImage `json:"vehicle_images"`
	PlateType         *string        `json:"plate_types"`
}

// TimeWindow bounds the timestamps of generated transactions.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Metadata ranges for synthesized identifiers.
const (
	locationIDMin  = 1001
	locationIDMax  = 1008
	locationTypes  = 5
	laneCount      = 5
	cameraIDMin    = 1001
	cameraIDMax    = 1006
	vehicleClasses = 5
	maxAxles       = 6
	tagAgencyMax   = 25

	latitudeMin  = 40.0
	latitudeMax  = 42.0
	longitudeMin = -88.0
	longitudeMax = -86.0
)

var cameraOrientations = []string{"F", "R"}

// Assembler combines sampled plate details, composed vehicle images and
// randomized metadata into full transaction records.
type Assembler struct {
	sampler      *PlateSampler
	composer     *Composer
	vehicleTypes map[string]float64
	rng          *rand.Rand
	log          zerolog.Logger
}

func NewAssembler(sampler *PlateSampler, composer *Composer, vehicleTypes map[string]float64, rng *rand.Rand, log zerolog.Logger) *Assembler {
	return &Assembler{
		sampler:      sampler,
		composer:     composer,
		vehicleTypes: vehicleTypes,
		rng:          rng,
		log:          log,
	}
}

// Assemble produces one fully-populated record with an overview-image count
// drawn uniformly from [minOverview, maxOverview]. Composition failures
// propagate; no partial record is returned.
func (a *Assembler) Assemble(ctx context.Context, window TimeWindow, minOverview int, maxOverview int) (*TransactionRecord, error) {

	if minOverview < 1 || maxOverview < minOverview {
		return nil, fmt.Errorf("%w: overview image range [%d, %d]", ErrConfiguration, minOverview, maxOverview)
	}

	transactionID := uuid.NewString()

	state, err := a.sampler.SampleState()

	if err != nil {
		return nil, err
	}

	plateNumber := a.sampler.SamplePlateNumber(state.Format)
	plateType := a.sampler.SamplePlateType(state)

	vehicleType, err := ChooseWeighted(a.rng, a.vehicleTypes)

	if err != nil {
		return nil, err
	}

	a.log.Debug().
		Str("transaction_id", transactionID).
		Str("vehicle_type", vehicleType).
		Str("plate", plateNumber).
		Str("state", state.Abbreviation).
		Msg("assembling transaction")

	overviewCount := minOverview + a.rng.Intn(maxOverview-minOverview+1)

	images, err := a.composer.Compose(ctx, transactionID, plateNumber, state, plateType, overviewCount)

	if err != nil {
		return nil, fmt.Errorf("failed to compose images for %s, %w", transactionID, err)
	}

	record := &TransactionRecord{
		LaneTransID:       transactionID,
		TransactionDt:     a.randomTime(window),
		LocationID:        a.intBetween(locationIDMin, locationIDMax),
		LocationTypeID:    a.intBetween(1, locationTypes),
		LaneID:            a.intBetween(1, laneCount),
		PlateNumber:       plateNumber,
		PlateState:        state.Abbreviation,
		TagAgencyID:       a.maybeTagAgency(),
		TagNumber:         a.maybeTagNumber(),
		VehicleClassID:    a.intBetween(1, vehicleClasses),
		AxleCount:         a.intBetween(1, maxAxles),
		CameraID:          a.intBetween(cameraIDMin, cameraIDMax),
		CameraOrientation: cameraOrientations[a.rng.Intn(len(cameraOrientations))],
		DirectionID:       a.intBetween(1, 2),
		Latitude:          roundCoordinate(a.floatBetween(latitudeMin, latitudeMax)),
		Longitude:         roundCoordinate(a.floatBetween(longitudeMin, longitudeMax)),
		VehicleImages:     images,
		PlateType:         plateType,
	}

	return record, nil
}

func (a *Assembler) randomTime(window TimeWindow) time.Time {

	delta := window.End.Sub(window.Start)

	if delta <= 0 {
		return window.Start
	}

	seconds := a.rng.Int63n(int64(delta/time.Second) + 1)

	return window.Start.Add(time.Duration(seconds) * time.Second)
}

func (a *Assembler) intBetween(lo int, hi int) int {
	return lo + a.rng.Intn(hi-lo+1)
}

func (a *Assembler) floatBetween(lo float64, hi float64) float64 {
	return lo + a.rng.Float64()*(hi-lo)
}

// maybeTagAgency returns a zero-padded agency id with 50% probability.
func (a *Assembler) maybeTagAgency() *string {

	if a.rng.Float64() <= 0.5 {
		return nil
	}

	id := fmt.Sprintf("%04d", a.intBetween(1, tagAgencyMax))
	return &id
}

// maybeTagNumber returns a 10-digit tag number with 50% probability.
func (a *Assembler) maybeTagNumber() *string {

	if a.rng.Float64() <= 0.5 {
		return nil
	}

	n := fmt.Sprintf("%d", 1000000000+a.rng.Int63n(9000000000))
	return &n
}

func roundCoordinate(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
