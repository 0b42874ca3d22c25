package signature

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vedhavyas/go-subkey"
)

var (
	ErrMalformedInput    = errors.New("malformed input")
	ErrUntrustedSigner   = errors.New("message not from the expected SS58 address")
	ErrSignatureMismatch = errors.New("signature mismatch")
	ErrStaleTimestamp    = errors.New("timestamp outside of allowed window")
)

// VerificationError reports why a signed request was rejected. It unwraps to
// one of the Err* sentinels above.
type VerificationError struct {
	Kind   error
	Reason string
}

func (e *VerificationError) Error() string {
	if e.Reason == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Reason)
}

func (e *VerificationError) Unwrap() error {
	return e.Kind
}

func rejected(kind error, format string, args ...any) error {
	return &VerificationError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// EpistulaVerifier admits requests signed by a single trusted hotkey over the
// canonical message of the body, within a freshness window.
type EpistulaVerifier struct {
	trustedSigner string
	recipient     string
	maxAge        time.Duration
	verifier      SignatureVerifier
	now           func() time.Time
}

// VerifierOption configures an EpistulaVerifier.
type VerifierOption func(*EpistulaVerifier)

// WithRecipient only admits requests signed for hotkey.
func WithRecipient(hotkey string) VerifierOption {
	return func(v *EpistulaVerifier) {
		v.recipient = hotkey
	}
}

// NewEpistulaVerifier builds a verifier for trustedSigner. A non-positive
// maxAge is refused since it would disable replay protection.
func NewEpistulaVerifier(trustedSigner string, maxAge time.Duration, opts ...VerifierOption) (*EpistulaVerifier, error) {
	if trustedSigner == "" {
		return nil, fmt.Errorf("trusted signer cannot be empty")
	}
	if _, _, err := subkey.SS58Decode(trustedSigner); err != nil {
		return nil, fmt.Errorf("trusted signer is not a valid SS58 address: %w", err)
	}
	if maxAge <= 0 {
		return nil, fmt.Errorf("signature max age must be positive, got %s", maxAge)
	}

	v := &EpistulaVerifier{
		trustedSigner: trustedSigner,
		maxAge:        maxAge,
		verifier:      NewVerifier(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.recipient != "" {
		if _, _, err := subkey.SS58Decode(v.recipient); err != nil {
			return nil, fmt.Errorf("recipient is not a valid SS58 address: %w", err)
		}
	}
	return v, nil
}

// TrustedSigner returns the hotkey allowed to submit requests.
func (v *EpistulaVerifier) TrustedSigner() string {
	return v.trustedSigner
}

// Verify checks body against the Epistula header values. It has no side
// effects; the result depends only on its arguments and the clock.
func (v *EpistulaVerifier) Verify(body []byte, h EpistulaHeaders) error {
	if body == nil {
		return rejected(ErrMalformedInput, "body is missing")
	}
	if h.Signature == "" {
		return rejected(ErrMalformedInput, "signature is missing")
	}
	if _, err := decodeSignature(h.Signature); err != nil {
		return rejected(ErrMalformedInput, "%v", err)
	}
	if h.SignedBy == "" {
		return rejected(ErrMalformedInput, "signed-by address is missing")
	}
	if h.Nonce == "" {
		return rejected(ErrMalformedInput, "nonce is missing")
	}
	timestampMs, err := strconv.ParseInt(h.Timestamp, 10, 64)
	if err != nil {
		return rejected(ErrMalformedInput, "invalid timestamp %q", h.Timestamp)
	}

	if h.SignedBy != v.trustedSigner {
		return rejected(ErrUntrustedSigner, "got %s", h.SignedBy)
	}
	if v.recipient != "" {
		switch h.SignedFor {
		case "":
			return rejected(ErrMalformedInput, "signed-for address is missing")
		case v.recipient:
		default:
			return rejected(ErrSignatureMismatch, "signed for %s", h.SignedFor)
		}
	}

	age := v.now().Sub(time.UnixMilli(timestampMs))
	if age > v.maxAge || age < -v.maxAge {
		return rejected(ErrStaleTimestamp, "request age %s exceeds %s", age, v.maxAge)
	}

	message := CanonicalMessage(body, h.Nonce, h.Timestamp, h.SignedFor)
	ok, err := v.verifier.Verify(message, h.Signature, h.SignedBy)
	if err != nil {
		log.Warn().Err(err).Str("signed_by", h.SignedBy).Msg("signature verification errored")
		return rejected(ErrSignatureMismatch, "%v", err)
	}
	if !ok {
		return rejected(ErrSignatureMismatch, "")
	}
	return nil
}
