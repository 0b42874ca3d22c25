package signature

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/ChainSafe/gossamer/lib/crypto/sr25519"
	"github.com/vedhavyas/go-subkey"
)

func ToSs58Address(keypair *sr25519.Keypair) string {
	ss58Address := subkey.SS58Encode(
		keypair.Public().Encode(),
		SubstrateNetworkId,
	)
	return ss58Address
}

// BodyDigest returns the hex encoded sha256 of body.
func BodyDigest(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// CanonicalMessage is the string both sides sign and verify:
// digest.nonce.timestamp.signedFor
func CanonicalMessage(body []byte, nonce, timestamp, signedFor string) string {
	return BodyDigest(body) + "." + nonce + "." + timestamp + "." + signedFor
}
