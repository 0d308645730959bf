// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Image handling constants
const (
	// MaxImageSize is the default maximum dimension (width or height) of a frame sent to the detector
	MaxImageSize = 1280

	// MaxUploadSize is the maximum accepted size of a multipart upload in bytes
	MaxUploadSize = 20 << 20
)

// Processing constants
const (
	// WorkerPoolSize is the default number of parallel workers for bulk enrolment
	WorkerPoolSize = 4

	// SweepBatchSize bounds the number of rows per multi-row absent insert
	SweepBatchSize = 500
)

// Nearest-identity search constants
const (
	// DefaultNearestK is the default number of identities returned by a nearest query
	DefaultNearestK = 5

	// MaxNearestK caps the number of identities a nearest query may request
	MaxNearestK = 50
)

// HNSW index parameters for the per-snapshot identity index
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	// Higher values improve recall but increase memory and build time.
	HNSWMaxNeighbors = 16

	// HNSWEfSearch is the search candidate pool size.
	// Higher values improve recall but slow down search.
	HNSWEfSearch = 64
)
