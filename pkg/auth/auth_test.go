package auth

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftfs/driftfs/pkg/metadata"
	"github.com/driftfs/driftfs/pkg/metadata/memory"
	"github.com/driftfs/driftfs/pkg/session"
)

type testClient struct {
	private *rsa.PrivateKey
	pemKey  string
	keyID   string
}

func newTestClient(t *testing.T) *testClient {
	t.Helper()

	private, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&private.PublicKey)
	require.NoError(t, err)
	pemKey := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))

	keyID, err := Fingerprint(&private.PublicKey)
	require.NoError(t, err)

	return &testClient{private: private, pemKey: pemKey, keyID: keyID}
}

// sign produces the base64 RSA-PSS signature a real client would send.
func (c *testClient) sign(t *testing.T, token string) string {
	t.Helper()
	digest := sha256.Sum256([]byte(token))
	signature, err := rsa.SignPSS(rand.Reader, c.private, crypto.SHA256, digest[:], nil)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(signature)
}

// register performs the full registration handshake: request a challenge,
// sign it, present it with the claimed fingerprint.
func register(t *testing.T, authenticator *Authenticator, client *testClient) (*metadata.Key, error) {
	t.Helper()
	token := authenticator.Challenge(client.keyID)
	return authenticator.Register(context.Background(), client.keyID, client.pemKey, client.sign(t, token))
}

func newTestAuthenticator() (*Authenticator, *memory.MemoryMetadataStore, *session.Registry) {
	store := memory.NewMemoryMetadataStore()
	sessions := session.New(session.DefaultTTL, session.DefaultMaxEntries)
	authenticator := NewAuthenticator(store, sessions, Config{
		DefaultStorageLimit: 1 << 20,
		AutoActivate:        true,
	})
	return authenticator, store, sessions
}

func TestRegisterCreatesKeyAndRoot(t *testing.T) {
	authenticator, store, _ := newTestAuthenticator()
	client := newTestClient(t)

	key, err := register(t, authenticator, client)
	require.NoError(t, err)
	assert.Equal(t, client.keyID, key.ID)
	assert.Equal(t, int64(1<<20), key.StorageLimit)
	assert.True(t, key.Activated)

	root, err := store.FindFolder(context.Background(), client.keyID, "/")
	require.NoError(t, err)
	assert.True(t, root.IsRoot())
}

func TestRegisterIsIdempotent(t *testing.T) {
	authenticator, _, _ := newTestAuthenticator()
	client := newTestClient(t)

	first, err := register(t, authenticator, client)
	require.NoError(t, err)
	second, err := register(t, authenticator, client)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestRegisterRejectsGarbage(t *testing.T) {
	authenticator, _, _ := newTestAuthenticator()

	_, err := authenticator.Register(context.Background(), "some-id", "not a pem key", "")
	require.Error(t, err)
}

func TestRegisterWithoutSignature(t *testing.T) {
	authenticator, _, _ := newTestAuthenticator()
	client := newTestClient(t)

	// Possession is unproven until a challenge is signed.
	_, err := authenticator.Register(context.Background(), client.keyID, client.pemKey, "")
	assert.True(t, IsRegistrationRequired(err), "got: %v", err)
}

func TestRegisterWrongClaimedFingerprint(t *testing.T) {
	authenticator, _, sessions := newTestAuthenticator()
	client := newTestClient(t)

	token := authenticator.Challenge("claimed-id")
	_, err := authenticator.Register(context.Background(), "claimed-id", client.pemKey, client.sign(t, token))
	assert.ErrorIs(t, err, ErrKeyMismatch)

	// The challenge for the bogus claim is dropped, not left to expire.
	_, ok := sessions.Get("claimed-id")
	assert.False(t, ok)
}

func TestAuthenticateHappyPath(t *testing.T) {
	authenticator, _, _ := newTestAuthenticator()
	client := newTestClient(t)

	_, err := register(t, authenticator, client)
	require.NoError(t, err)

	token := authenticator.Challenge(client.keyID)
	key, err := authenticator.Authenticate(context.Background(), client.keyID, client.sign(t, token))
	require.NoError(t, err)
	assert.Equal(t, client.keyID, key.ID)
}

func TestAuthenticateUnregisteredKey(t *testing.T) {
	authenticator, _, _ := newTestAuthenticator()

	_, err := authenticator.Authenticate(context.Background(), "unknown-fingerprint", "")
	assert.True(t, IsRegistrationRequired(err), "got: %v", err)
}

func TestAuthenticateWithoutSignature(t *testing.T) {
	authenticator, _, _ := newTestAuthenticator()
	client := newTestClient(t)

	_, err := register(t, authenticator, client)
	require.NoError(t, err)

	_, err = authenticator.Authenticate(context.Background(), client.keyID, "")
	assert.True(t, IsAuthenticationRequired(err), "got: %v", err)
}

func TestAuthenticateWithoutChallenge(t *testing.T) {
	authenticator, _, _ := newTestAuthenticator()
	client := newTestClient(t)

	_, err := register(t, authenticator, client)
	require.NoError(t, err)

	// A signature over a token the server never issued cannot succeed.
	_, err = authenticator.Authenticate(context.Background(), client.keyID, client.sign(t, "made-up-token"))
	assert.True(t, IsAuthenticationRequired(err), "got: %v", err)
}

func TestAuthenticateBadSignature(t *testing.T) {
	authenticator, _, _ := newTestAuthenticator()
	client := newTestClient(t)
	impostor := newTestClient(t)

	_, err := register(t, authenticator, client)
	require.NoError(t, err)

	token := authenticator.Challenge(client.keyID)
	_, err = authenticator.Authenticate(context.Background(), client.keyID, impostor.sign(t, token))
	assert.True(t, IsAuthenticationFailed(err), "got: %v", err)
}

func TestChallengeIsSingleUse(t *testing.T) {
	authenticator, _, _ := newTestAuthenticator()
	client := newTestClient(t)

	_, err := register(t, authenticator, client)
	require.NoError(t, err)

	token := authenticator.Challenge(client.keyID)
	signature := client.sign(t, token)

	_, err = authenticator.Authenticate(context.Background(), client.keyID, signature)
	require.NoError(t, err)

	// Replaying the identical signature must fail: the challenge was consumed.
	_, err = authenticator.Authenticate(context.Background(), client.keyID, signature)
	assert.True(t, IsAuthenticationRequired(err), "got: %v", err)
}

func TestRegisterKeyMismatch(t *testing.T) {
	authenticator, store, _ := newTestAuthenticator()
	client := newTestClient(t)

	_, err := register(t, authenticator, client)
	require.NoError(t, err)

	stored, err := store.GetKey(context.Background(), client.keyID)
	require.NoError(t, err)
	require.NotEmpty(t, stored.PublicKey)

	// Same key material, different PEM text: the fingerprint matches the
	// stored record but the stored bytes do not.
	fakePEM := stored.PublicKey + "\n"
	token := authenticator.Challenge(client.keyID)
	_, err = authenticator.Register(context.Background(), client.keyID, fakePEM, client.sign(t, token))
	assert.ErrorIs(t, err, ErrKeyMismatch)
}
