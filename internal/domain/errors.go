package domain

import "errors"

// ErrConfiguration covers problems the operator must fix before the service
// can run: missing or empty corpus, invalid chunk parameters, missing
// credentials. Fatal at startup or index build, never retried.
var ErrConfiguration = errors.New("configuration error")

// ErrUpstreamService covers failures of the external embedding or reasoning
// services, including malformed tool-call payloads. Scoped to a single
// question; index state is never affected.
var ErrUpstreamService = errors.New("upstream service error")

// ErrUnknownTool is returned by the tool dispatcher for any tool name
// outside the declared set.
var ErrUnknownTool = errors.New("unknown tool")

// ErrIndexNotReady means no index generation has been built yet. Retrieval
// is impossible until the first successful rebuild.
var ErrIndexNotReady = errors.New("index not ready")

func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func IsUpstreamService(err error) bool {
	return errors.Is(err, ErrUpstreamService)
}

func IsIndexNotReady(err error) bool {
	return errors.Is(err, ErrIndexNotReady)
}
