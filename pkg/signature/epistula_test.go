package signature

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/ChainSafe/gossamer/lib/crypto/sr25519"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const recipient = "5Eq1FDc9oz1tTm4MqGLdH4ajgz9eMgQ5To812axojN121DiQ"

type epistulaFixture struct {
	verifier *EpistulaVerifier
	provider *Provider
	body     []byte
	headers  EpistulaHeaders
	now      time.Time
}

func newEpistulaFixture(t *testing.T) *epistulaFixture {
	t.Helper()

	keypair, err := sr25519.GenerateKeypair()
	require.NoError(t, err)
	provider, err := NewProvider(keypair)
	require.NoError(t, err)

	verifier, err := NewEpistulaVerifier(provider.Address(), 8*time.Second)
	require.NoError(t, err)

	now := time.UnixMilli(1_700_000_000_000)
	verifier.now = func() time.Time { return now }

	body := []byte(`{"body":{"task":"InferenceTask"},"uid":[1,2],"chunks":{"1":["a"]}}`)
	timestamp := strconv.FormatInt(now.Add(-time.Second).UnixMilli(), 10)
	nonce := "6b1f7a8c-4f6c-4d8e-9d0e-2f3a4b5c6d7e"
	sig, err := provider.Sign(CanonicalMessage(body, nonce, timestamp, recipient))
	require.NoError(t, err)

	return &epistulaFixture{
		verifier: verifier,
		provider: provider,
		body:     body,
		now:      now,
		headers: EpistulaHeaders{
			Signature: sig,
			SignedBy:  provider.Address(),
			SignedFor: recipient,
			Nonce:     nonce,
			Timestamp: timestamp,
		},
	}
}

func TestNewEpistulaVerifier(t *testing.T) {
	_, err := NewEpistulaVerifier("", time.Second)
	assert.Error(t, err, "empty signer")

	_, err = NewEpistulaVerifier("not-an-address", time.Second)
	assert.Error(t, err, "invalid ss58")

	_, err = NewEpistulaVerifier(recipient, 0)
	assert.Error(t, err, "missing freshness window")

	v, err := NewEpistulaVerifier(recipient, time.Second)
	require.NoError(t, err)
	assert.Equal(t, recipient, v.TrustedSigner())
}

func TestEpistulaVerifier_BindsRecipient(t *testing.T) {
	f := newEpistulaFixture(t)

	_, err := NewEpistulaVerifier(f.provider.Address(), 8*time.Second, WithRecipient("not-an-address"))
	assert.Error(t, err)

	bound, err := NewEpistulaVerifier(f.provider.Address(), 8*time.Second, WithRecipient(recipient))
	require.NoError(t, err)
	bound.now = f.verifier.now
	assert.NoError(t, bound.Verify(f.body, f.headers))

	// a valid signature for another validator is not replayable here
	other, err := NewEpistulaVerifier(f.provider.Address(), 8*time.Second, WithRecipient(f.provider.Address()))
	require.NoError(t, err)
	other.now = f.verifier.now
	assert.ErrorIs(t, other.Verify(f.body, f.headers), ErrSignatureMismatch)

	h := f.headers
	h.SignedFor = ""
	sig, err := f.provider.Sign(CanonicalMessage(f.body, h.Nonce, h.Timestamp, ""))
	require.NoError(t, err)
	h.Signature = sig
	assert.NoError(t, f.verifier.Verify(f.body, h), "unbound verifier accepts an empty recipient")
	assert.ErrorIs(t, bound.Verify(f.body, h), ErrMalformedInput)
}

func TestEpistulaVerifier_Accepts(t *testing.T) {
	f := newEpistulaFixture(t)
	assert.NoError(t, f.verifier.Verify(f.body, f.headers))
}

func TestEpistulaVerifier_RejectsPerturbations(t *testing.T) {
	other, err := sr25519.GenerateKeypair()
	require.NoError(t, err)
	otherProvider, err := NewProvider(other)
	require.NoError(t, err)

	tests := []struct {
		name    string
		mutate  func(f *epistulaFixture) ([]byte, EpistulaHeaders)
		wantErr error
	}{
		{
			name: "wrong signer",
			mutate: func(f *epistulaFixture) ([]byte, EpistulaHeaders) {
				h := f.headers
				h.SignedBy = otherProvider.Address()
				return f.body, h
			},
			wantErr: ErrUntrustedSigner,
		},
		{
			name: "tampered body",
			mutate: func(f *epistulaFixture) ([]byte, EpistulaHeaders) {
				return []byte(`{"body":{"task":"WebRetrievalTask"}}`), f.headers
			},
			wantErr: ErrSignatureMismatch,
		},
		{
			name: "expired timestamp",
			mutate: func(f *epistulaFixture) ([]byte, EpistulaHeaders) {
				h := f.headers
				h.Timestamp = strconv.FormatInt(f.now.Add(-time.Minute).UnixMilli(), 10)
				return f.body, h
			},
			wantErr: ErrStaleTimestamp,
		},
		{
			name: "timestamp from the future",
			mutate: func(f *epistulaFixture) ([]byte, EpistulaHeaders) {
				h := f.headers
				h.Timestamp = strconv.FormatInt(f.now.Add(time.Minute).UnixMilli(), 10)
				return f.body, h
			},
			wantErr: ErrStaleTimestamp,
		},
		{
			name: "forged signature",
			mutate: func(f *epistulaFixture) ([]byte, EpistulaHeaders) {
				h := f.headers
				sig, err := otherProvider.Sign(CanonicalMessage(f.body, h.Nonce, h.Timestamp, h.SignedFor))
				require.NoError(t, err)
				h.Signature = sig
				return f.body, h
			},
			wantErr: ErrSignatureMismatch,
		},
		{
			name: "different recipient",
			mutate: func(f *epistulaFixture) ([]byte, EpistulaHeaders) {
				h := f.headers
				h.SignedFor = otherProvider.Address()
				return f.body, h
			},
			wantErr: ErrSignatureMismatch,
		},
		{
			name: "different nonce",
			mutate: func(f *epistulaFixture) ([]byte, EpistulaHeaders) {
				h := f.headers
				h.Nonce = "replayed"
				return f.body, h
			},
			wantErr: ErrSignatureMismatch,
		},
		{
			name: "signature without prefix",
			mutate: func(f *epistulaFixture) ([]byte, EpistulaHeaders) {
				h := f.headers
				h.Signature = h.Signature[2:]
				return f.body, h
			},
			wantErr: ErrMalformedInput,
		},
		{
			name: "missing signer",
			mutate: func(f *epistulaFixture) ([]byte, EpistulaHeaders) {
				h := f.headers
				h.SignedBy = ""
				return f.body, h
			},
			wantErr: ErrMalformedInput,
		},
		{
			name: "nil body",
			mutate: func(f *epistulaFixture) ([]byte, EpistulaHeaders) {
				return nil, f.headers
			},
			wantErr: ErrMalformedInput,
		},
		{
			name: "non numeric timestamp",
			mutate: func(f *epistulaFixture) ([]byte, EpistulaHeaders) {
				h := f.headers
				h.Timestamp = "yesterday"
				return f.body, h
			},
			wantErr: ErrMalformedInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEpistulaFixture(t)
			body, headers := tt.mutate(f)

			err := f.verifier.Verify(body, headers)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)

			var verr *VerificationError
			assert.True(t, errors.As(err, &verr))
		})
	}
}

func TestCanonicalMessage(t *testing.T) {
	msg := CanonicalMessage([]byte("abc"), "n", "1", "r")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad.n.1.r", msg)
}
