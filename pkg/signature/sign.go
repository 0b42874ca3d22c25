package signature

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/ChainSafe/gossamer/lib/crypto/sr25519"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// NewProvider creates a new signature provider from a hotkey (private key seed)
func NewProvider(keypair *sr25519.Keypair) (*Provider, error) {
	if keypair == nil {
		return nil, fmt.Errorf("keypair cannot be nil")
	}
	return &Provider{
		keypair: keypair,
	}, nil
}

// Sign implements the SignatureProvider interface
func (p *Provider) Sign(message string) (string, error) {
	if p.keypair == nil {
		return "", fmt.Errorf("private key not initialized")
	}

	// Sign the message
	signature, err := p.keypair.Sign([]byte(message))
	if err != nil {
		log.Error().Err(err).Msg("Failed to sign message")
		return "", fmt.Errorf("failed to sign message: %w", err)
	}

	// Return signature as hex string with 0x prefix
	return "0x" + hex.EncodeToString(signature), nil
}

// Address implements the SignatureProvider interface
func (p *Provider) Address() string {
	if p.keypair == nil {
		return ""
	}
	return ToSs58Address(p.keypair)
}

// SignBody produces the Epistula headers for body addressed to signedFor.
// A fresh nonce and a millisecond timestamp are generated for every call.
func SignBody(p SignatureProvider, body []byte, signedFor string) (EpistulaHeaders, error) {
	nonce := uuid.NewString()
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)

	sig, err := p.Sign(CanonicalMessage(body, nonce, timestamp, signedFor))
	if err != nil {
		return EpistulaHeaders{}, err
	}

	return EpistulaHeaders{
		Signature: sig,
		SignedBy:  p.Address(),
		SignedFor: signedFor,
		Nonce:     nonce,
		Timestamp: timestamp,
	}, nil
}

// Map renders the headers for an HTTP client.
func (h EpistulaHeaders) Map() map[string]string {
	return map[string]string{
		HeaderSignature: h.Signature,
		HeaderSignedBy:  h.SignedBy,
		HeaderSignedFor: h.SignedFor,
		HeaderNonce:     h.Nonce,
		HeaderTimestamp: h.Timestamp,
		HeaderVersion:   EpistulaVersion,
	}
}
