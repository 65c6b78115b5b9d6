package core

import "errors"

var (
	// ErrUserRejected is returned when the user declines an account-access
	// or signing prompt. Terminal, never retried.
	ErrUserRejected = errors.New("user rejected the request")

	// ErrProviderBusy is returned when the provider already has a request
	// of the same kind pending.
	ErrProviderBusy = errors.New("provider request already pending")

	// ErrProviderUnavailable is returned when no wallet provider or OAuth
	// issuer is reachable. Surfaced immediately, not retried.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrAlreadyConnecting is returned when a second connect attempt is
	// made while one is still in flight.
	ErrAlreadyConnecting = errors.New("connect attempt already in flight")

	// ErrSigner is returned for any signer fault other than a user decline.
	ErrSigner = errors.New("signer failure")

	// ErrInvalidSignature is returned when signature recovery does not bind
	// to the claimed address.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrExpiredSession is returned when a session is past its expiry.
	ErrExpiredSession = errors.New("session has expired")

	// ErrInvalidCredentials is returned when an email/password pair does
	// not match a stored credential.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrIdentityConflict is returned when two concurrent resolutions raced
	// on the same identity key. The loser retries once.
	ErrIdentityConflict = errors.New("identity resolution conflict")

	// ErrNoIdentityKey is returned when a login event carries neither an
	// address nor an email.
	ErrNoIdentityKey = errors.New("login event has no identity key")

	// ErrInvalidToken is returned when a bearer token fails to parse or
	// verify.
	ErrInvalidToken = errors.New("invalid token")
)
