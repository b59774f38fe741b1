package core

import "errors"

// Pipeline error taxonomy. Recoverable/optimization-layer errors (cache,
// duplicate checks) never propagate past their component; these sentinels
// cover the failures that do.
var (
	// ErrUnsupportedFormat indicates no converter matched the uploaded file.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrCacheMiss indicates the requested key is absent from the cache.
	ErrCacheMiss = errors.New("cache miss")

	// ErrRateLimited indicates the embedding provider rejected a call for
	// quota reasons; the caller should back off and retry.
	ErrRateLimited = errors.New("embedding provider rate limited")

	// ErrMissingCredential indicates no usable embedding API key could be
	// resolved. Retrying will not help.
	ErrMissingCredential = errors.New("no embedding API key configured")

	// ErrEmbeddingFailed indicates embedding generation failed after
	// exhausting retries.
	ErrEmbeddingFailed = errors.New("embedding generation failed")

	// ErrStorageFailed indicates a fatal storage-collaborator error.
	ErrStorageFailed = errors.New("storage operation failed")

	// ErrJobNotFound indicates no job record exists for the document.
	ErrJobNotFound = errors.New("processing job not found")
)
