package signature

import (
	"time"

	"github.com/ChainSafe/gossamer/lib/crypto/sr25519"
)

const (
	SubstrateNetworkId = 42

	// Default paths
	DefaultBittensorDir  = "~/.bittensor"
	DefaultWalletColdkey = "default"

	// Epistula headers carried by every signed request
	HeaderSignature = "Epistula-Request-Signature"
	HeaderSignedBy  = "Epistula-Signed-By"
	HeaderSignedFor = "Epistula-Signed-For"
	HeaderNonce     = "Epistula-Uuid"
	HeaderTimestamp = "Epistula-Timestamp"
	HeaderVersion   = "Epistula-Version"

	EpistulaVersion = "2"

	DefaultMaxSignatureAge = 8 * time.Second
)

type SignatureVerifier interface {
	// Verify checks if the provided signature is valid for the given message and SS58 address.
	Verify(message, signature, ss58Address string) (bool, error)
}

// Verifier is a concrete implementation of SignatureVerifier
type Verifier struct{}

type SignatureProvider interface {
	// Sign generates a signature for the given message using the hotkey
	Sign(message string) (string, error)
	// Address returns the SS58 address of the signing hotkey
	Address() string
}

// Provider is a concrete implementation of SignatureProvider
type Provider struct {
	keypair *sr25519.Keypair
}

// EpistulaHeaders is the set of out-of-band values that accompany a signed body.
type EpistulaHeaders struct {
	Signature string
	SignedBy  string
	SignedFor string
	Nonce     string
	Timestamp string
}
