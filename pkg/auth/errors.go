package auth

import (
	"errors"
	"fmt"
)

// RegistrationRequiredError indicates the presented key fingerprint has no
// registered key record. The client must register its public key before it
// can authenticate.
type RegistrationRequiredError struct {
	KeyID string
}

func (e *RegistrationRequiredError) Error() string {
	return fmt.Sprintf("key %s is not registered", e.KeyID)
}

// AuthenticationRequiredError indicates the request carried no usable proof:
// either no signed token at all, or a signature for a challenge that has
// expired or was already consumed. The transport layer issues a fresh
// challenge alongside this error.
type AuthenticationRequiredError struct {
	KeyID string
}

func (e *AuthenticationRequiredError) Error() string {
	return fmt.Sprintf("authentication required for key %s", e.KeyID)
}

// AuthenticationFailedError indicates a signature was presented but did not
// verify against the registered public key and the issued challenge.
type AuthenticationFailedError struct {
	KeyID  string
	Reason string
}

func (e *AuthenticationFailedError) Error() string {
	return fmt.Sprintf("authentication failed for key %s: %s", e.KeyID, e.Reason)
}

// ErrKeyMismatch is returned by Register when the presented public key hashes
// to a fingerprint that is already registered with different key material.
var ErrKeyMismatch = errors.New("public key does not match the registered key")

// IsRegistrationRequired reports whether err is a RegistrationRequiredError.
func IsRegistrationRequired(err error) bool {
	var target *RegistrationRequiredError
	return errors.As(err, &target)
}

// IsAuthenticationRequired reports whether err is an AuthenticationRequiredError.
func IsAuthenticationRequired(err error) bool {
	var target *AuthenticationRequiredError
	return errors.As(err, &target)
}

// IsAuthenticationFailed reports whether err is an AuthenticationFailedError.
func IsAuthenticationFailed(err error) bool {
	var target *AuthenticationFailedError
	return errors.As(err, &target)
}
