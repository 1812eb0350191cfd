package types

import "errors"

// Sentinel errors for ensuregen operations.
//
// Problems found in user manifests are reported as Diagnostic values; these
// errors cover malformed input the compiler cannot even start on and
// infrastructure failures.
var (
	// ErrPathTooDeep indicates a target path exceeds MaxPathDepth.
	ErrPathTooDeep = errors.New("target path exceeds maximum depth")

	// ErrTooManyCollections indicates a target path nests more than MaxNestedCollections collections.
	ErrTooManyCollections = errors.New("target path nests too many collections")

	// ErrEmptyPath indicates a target path with no segments.
	ErrEmptyPath = errors.New("target path is empty")

	// ErrInvalidPath indicates a target path that cannot be parsed.
	ErrInvalidPath = errors.New("invalid target path")

	// ErrUnknownOnFailure indicates an on-failure mode other than continue or halt.
	ErrUnknownOnFailure = errors.New("unknown on-failure mode")

	// ErrUnknownSeverity indicates a severity other than error, warning or info.
	ErrUnknownSeverity = errors.New("unknown severity")

	// ErrUnsupportedFormat indicates a manifest that is neither YAML nor JSON.
	ErrUnsupportedFormat = errors.New("unsupported manifest format")

	// ErrManifestTooLarge indicates a manifest exceeds MaxManifestSize.
	ErrManifestTooLarge = errors.New("manifest exceeds maximum size")

	// ErrCompileFailed indicates compilation produced error diagnostics.
	ErrCompileFailed = errors.New("compilation failed")

	// ErrUnknownRule indicates a rule name with no catalog entry.
	ErrUnknownRule = errors.New("unknown rule")

	// ErrNoGeneration indicates no generation run is recorded for a manifest.
	ErrNoGeneration = errors.New("no recorded generation")

	// ErrNotCollection indicates a type that cannot be iterated element-wise.
	ErrNotCollection = errors.New("type is not a slice or array")
)
