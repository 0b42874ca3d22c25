package signature

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ChainSafe/gossamer/lib/crypto/sr25519"
	"github.com/rs/zerolog/log"
	"github.com/vedhavyas/go-subkey"
)

const (
	bytesWrapPrefix = "<Bytes>"
	bytesWrapSuffix = "</Bytes>"
)

// NewVerifier creates a new signature verifier
func NewVerifier() *Verifier {
	return &Verifier{}
}

// Verify implements the SignatureVerifier interface
func (v *Verifier) Verify(message, signature, ss58Address string) (bool, error) {
	return Verify(message, signature, ss58Address)
}

// Verify checks an sr25519 signature over message. Signatures produced by
// polkadot-js style signers cover "<Bytes>message</Bytes>", so both the raw
// and the wrapped form are accepted.
func Verify(message, signature, ss58Address string) (bool, error) {
	sigBytes, err := decodeSignature(signature)
	if err != nil {
		return false, err
	}

	publicKey, err := publicKeyFromSS58(ss58Address)
	if err != nil {
		return false, err
	}

	ok, err := publicKey.Verify([]byte(message), sigBytes)
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}

	if strings.HasPrefix(message, bytesWrapPrefix) {
		return false, nil
	}
	return publicKey.Verify([]byte(bytesWrapPrefix+message+bytesWrapSuffix), sigBytes)
}

func decodeSignature(signature string) ([]byte, error) {
	// Validate signature format
	if !strings.HasPrefix(signature, "0x") {
		log.Error().Msg("Signature does not start with '0x'")
		return nil, fmt.Errorf("signature does not start with '0x'")
	}

	// Remove 0x prefix and decode hex
	sigBytes, err := hex.DecodeString(signature[2:])
	if err != nil {
		log.Error().Err(err).Msg("Failed to decode signature hex")
		return nil, fmt.Errorf("failed to decode signature hex: %w", err)
	}

	if len(sigBytes) != 64 {
		log.Error().Int("got", len(sigBytes)).Msg("Invalid signature length: expected 64 bytes")
		return nil, fmt.Errorf(
			"invalid signature length: expected 64 bytes, got %d",
			len(sigBytes),
		)
	}
	return sigBytes, nil
}

func publicKeyFromSS58(ss58Address string) (*sr25519.PublicKey, error) {
	// Use go-subkey to decode SS58 address
	_, pubKeyBytes, err := subkey.SS58Decode(ss58Address)
	if err != nil {
		log.Error().Err(err).Msg("Failed to decode SS58 address to derive public key")
		return nil, fmt.Errorf("failed to decode SS58 address to derive public key: %w", err)
	}

	// Create public key using Gossamer
	publicKey, err := sr25519.NewPublicKey(pubKeyBytes)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create public key")
		return nil, fmt.Errorf("failed to create public key: %w", err)
	}
	return publicKey, nil
}
