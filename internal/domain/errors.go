package domain

import "errors"

// Error taxonomy for the gapfilling pipeline.
//
// Coverage and lookup errors are recoverable inside the interpolation step
// (a failing reference is skipped, an out-of-span lookup counts as "no
// data"); configuration and shape-contract errors abort the run.
var (
	// ErrOutOfDomain indicates a coordinate query outside a grid's axis span.
	ErrOutOfDomain = errors.New("coordinate query outside grid domain")

	// ErrInsufficientCoverage indicates a reference grid whose coordinate
	// span does not fully enclose the target's span.
	ErrInsufficientCoverage = errors.New("reference does not cover target domain")

	// ErrIncompatibleMaskShape indicates a smoothing mask whose lat/lon
	// resolution does not match the target's exactly.
	ErrIncompatibleMaskShape = errors.New("mask resolution does not match target")

	// ErrUnsupportedReferenceType indicates a reference value that is neither
	// an in-memory grid nor a locator string.
	ErrUnsupportedReferenceType = errors.New("unsupported reference type")

	// ErrUnknownStepKind indicates a step name missing from the registry.
	ErrUnknownStepKind = errors.New("unknown gapfill step kind")

	// ErrEngineFailure indicates the external smoothing engine failed or
	// returned malformed data.
	ErrEngineFailure = errors.New("smoothing engine failure")
)
