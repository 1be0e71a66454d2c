// Package auth implements the challenge-response authentication protocol.
//
// Clients are identified by the SHA-256 fingerprint of their RSA public key.
// The server issues a random single-use challenge token per client; the
// client proves key possession by returning an RSA-PSS signature over the
// challenge. Challenges live in the session registry and are consumed
// atomically on the first verification attempt, so a captured signature can
// never be replayed.
package auth

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/driftfs/driftfs/internal/logger"
	"github.com/driftfs/driftfs/pkg/metadata"
	"github.com/driftfs/driftfs/pkg/session"
)

// Authenticator verifies client identity against registered keys and live
// challenges.
type Authenticator struct {
	store    metadata.Store
	sessions *session.Registry

	// defaultStorageLimit is the byte quota assigned to newly registered keys.
	defaultStorageLimit int64

	// autoActivate controls whether new keys may upload immediately. When
	// false an operator has to flip the key's activated flag out of band.
	autoActivate bool
}

// Config holds authenticator construction parameters.
type Config struct {
	// DefaultStorageLimit is the byte quota for newly registered keys.
	DefaultStorageLimit int64

	// AutoActivate marks newly registered keys as activated.
	AutoActivate bool
}

// NewAuthenticator creates an authenticator bound to a metadata store and a
// challenge registry.
func NewAuthenticator(store metadata.Store, sessions *session.Registry, config Config) *Authenticator {
	return &Authenticator{
		store:               store,
		sessions:            sessions,
		defaultStorageLimit: config.DefaultStorageLimit,
		autoActivate:        config.AutoActivate,
	}
}

// Fingerprint computes the canonical key id for a public key: the lowercase
// hex SHA-256 digest of its PKIX DER encoding.
func Fingerprint(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("failed to encode public key: %w", err)
	}
	digest := sha256.Sum256(der)
	return hex.EncodeToString(digest[:]), nil
}

// ParsePublicKey decodes a PEM-encoded RSA public key.
func ParsePublicKey(pemData string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("no PEM block found in public key")
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not an RSA key")
	}
	return pub, nil
}

// Register stores a new key record and creates the owner's root folder.
//
// The caller claims keyID as the fingerprint of publicKeyPEM; a mismatch
// fails with ErrKeyMismatch. Possession of the private key is proven with the
// same challenge check used for authentication: without a valid signature
// over a live challenge, registration fails with RegistrationRequiredError
// and the caller retries after signing a fresh challenge. Registering the
// same key again is idempotent and returns the existing record.
func (a *Authenticator) Register(ctx context.Context, keyID, publicKeyPEM, signedToken string) (*metadata.Key, error) {
	pub, err := ParsePublicKey(publicKeyPEM)
	if err != nil {
		return nil, err
	}
	fingerprint, err := Fingerprint(pub)
	if err != nil {
		return nil, err
	}
	if fingerprint != keyID {
		// The pending challenge was issued against the claimed id. Key
		// material that does not match the claim can never redeem it, so the
		// slot is released instead of lingering until the TTL.
		a.sessions.Consume(keyID)
		return nil, ErrKeyMismatch
	}

	if err := a.verifyChallenge(keyID, pub, signedToken); err != nil {
		var required *AuthenticationRequiredError
		if errors.As(err, &required) {
			// No live challenge yet: the caller has to sign one first.
			return nil, &RegistrationRequiredError{KeyID: keyID}
		}
		return nil, err
	}

	if existing, err := a.store.GetKey(ctx, keyID); err == nil {
		if existing.PublicKey != publicKeyPEM {
			return nil, ErrKeyMismatch
		}
		return existing, nil
	} else if !metadata.IsCode(err, metadata.ErrNotFound) {
		return nil, err
	}

	key, err := a.store.AddKey(ctx, &metadata.Key{
		ID:           keyID,
		PublicKey:    publicKeyPEM,
		StorageLimit: a.defaultStorageLimit,
		Activated:    a.autoActivate,
	})
	if err != nil {
		return nil, err
	}
	if _, err := a.store.EnsureRootFolder(ctx, keyID); err != nil {
		return nil, err
	}

	logger.Info("registered key %s (activated=%v)", keyID, key.Activated)
	return key, nil
}

// Challenge issues a fresh single-use challenge token for keyID, replacing
// any previous one.
func (a *Authenticator) Challenge(keyID string) string {
	return a.sessions.Add(keyID)
}

// Authenticate verifies a signed challenge for keyID and returns the key
// record on success.
//
// The challenge is consumed before the signature is checked, which makes
// every token strictly single-use: a second request presenting the same
// signature fails with AuthenticationRequiredError regardless of validity.
func (a *Authenticator) Authenticate(ctx context.Context, keyID, signedToken string) (*metadata.Key, error) {
	key, err := a.store.GetKey(ctx, keyID)
	if err != nil {
		if metadata.IsCode(err, metadata.ErrNotFound) {
			return nil, &RegistrationRequiredError{KeyID: keyID}
		}
		return nil, err
	}

	pub, err := ParsePublicKey(key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("registered key %s is corrupt: %w", keyID, err)
	}

	if err := a.verifyChallenge(keyID, pub, signedToken); err != nil {
		return nil, err
	}

	logger.Debug("authenticated key %s", keyID)
	return key, nil
}

// verifyChallenge consumes the live challenge for keyID and checks the
// signature against it. The challenge is taken before verification, so every
// token is strictly single-use no matter the outcome.
func (a *Authenticator) verifyChallenge(keyID string, pub *rsa.PublicKey, signedToken string) error {
	if signedToken == "" {
		return &AuthenticationRequiredError{KeyID: keyID}
	}

	token, ok := a.sessions.Take(keyID)
	if !ok {
		// No live challenge: either never issued, expired, or already used.
		return &AuthenticationRequiredError{KeyID: keyID}
	}

	signature, err := base64.StdEncoding.DecodeString(signedToken)
	if err != nil {
		return &AuthenticationFailedError{KeyID: keyID, Reason: "signature is not valid base64"}
	}

	digest := sha256.Sum256([]byte(token))
	if err := rsa.VerifyPSS(pub, crypto.SHA256, digest[:], signature, nil); err != nil {
		logger.Warn("signature verification failed for key %s", keyID)
		return &AuthenticationFailedError{KeyID: keyID, Reason: "signature verification failed"}
	}
	return nil
}
