package trafficgen

import (
	"errors"
)

var (
	// ErrConfiguration signals an empty or malformed distribution table.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrAssetLoad signals a missing template image or font file.
	ErrAssetLoad = errors.New("failed to load asset")
	// ErrInvalidEffect signals an effect name the engine does not recognize.
	ErrInvalidEffect = errors.New("unknown image effect")
	// ErrSinkWrite signals a failed batch file write or queue publish.
	ErrSinkWrite = errors.New("sink write failed")
)
