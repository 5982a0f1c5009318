package monitor

import "errors"

var (
	// ErrWalletRequired is returned by Start without a wallet address.
	ErrWalletRequired = errors.New("monitor: wallet required")
	// ErrAlreadyActive is returned by Start while a session is running.
	ErrAlreadyActive = errors.New("monitor: already active")
	// ErrNotActive is returned by Stop when no session is running.
	ErrNotActive = errors.New("monitor: not active")
	// ErrFetchFailure wraps transient chain data errors. The loops retry them with backoff.
	ErrFetchFailure = errors.New("monitor: fetch failure")

	// errNotAvailable marks a signature whose transaction the node cannot serve yet.
	errNotAvailable = errors.New("transaction not available yet")
)
