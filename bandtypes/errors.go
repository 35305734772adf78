package bandtypes

import "errors"

// Sentinel errors shared by every package that validates grid/band geometry.
// Callers wrap these with fmt.Errorf("%w: ...") to add context; use
// errors.Is against these sentinels to classify a failure.
var (
	// ErrInputShape signals a malformed array shape (wrong rank, mismatched
	// Nx*Ny vs Nk, ragged neighbor tables).
	ErrInputShape = errors.New("bandtypes: invalid input shape")

	// ErrInputRange signals an out-of-range parameter (band window outside
	// [0,Nbnd) or with MinBand > MaxBand). An empty grid is reported as
	// ErrInputShape.
	ErrInputRange = errors.New("bandtypes: invalid input range")
)
