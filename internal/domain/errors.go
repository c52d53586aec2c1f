package domain

import "errors"

var (
	ErrTenantRequired = errors.New("tenant id is required")
	ErrTenantInvalid  = errors.New("tenant id contains invalid characters")
	ErrPhoneRequired  = errors.New("destination phone is required")
	ErrTextRequired   = errors.New("message text is required")
	ErrPhoneInvalid   = errors.New("phone number has no usable digits")

	ErrStatusNotFound = errors.New("connection status not found")

	// ErrAcquireTimeout means no terminal connection event arrived in time.
	ErrAcquireTimeout = errors.New("timed out waiting for connection to open")
	// ErrLoggedOut means the remote network invalidated the stored session.
	// Protocol adapters wrap their logged-out disconnect reason with it.
	ErrLoggedOut = errors.New("session logged out by remote network")
	// ErrConnectionClosed covers a close event that carried no reason.
	ErrConnectionClosed = errors.New("connection closed before opening")
)
