package crawler

import "errors"

var (
	// ErrProviderUnavailable is returned when no RPC endpoint of the network can serve the worker.
	ErrProviderUnavailable = errors.New("rpc provider unavailable")

	// ErrDecodeFailureThreshold is returned when too many consecutive logs could not be decoded.
	ErrDecodeFailureThreshold = errors.New("consecutive decode failures exceeded threshold")

	// ErrInboxFull is returned when a new reindex item does not fit in the inbox.
	ErrInboxFull = errors.New("reindex inbox full")
)
