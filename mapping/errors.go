package mapping

import "errors"

var (
	ErrShapeMismatch       = errors.New("shape mismatch")
	ErrBackgroundNotLoaded = errors.New("background not loaded")
	ErrNoRawData           = errors.New("no raw data loaded")
	ErrEmptyWindow         = errors.New("no wavenumber samples inside window")
	ErrIndexOutOfRange     = errors.New("pixel index out of range")
	ErrResetRequired       = errors.New("reset required before loading new data")
	ErrInvalidGeometry     = errors.New("invalid map geometry")
)
