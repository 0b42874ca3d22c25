package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/0xxfu/prompting/pkg/signature"
)

// createResponse creates a StdResponse with the given body and error
func createResponse[T any](body T, err error) StdResponse[T] {
	if err != nil {
		errMsg := err.Error()
		return StdResponse[T]{
			Body:  body,
			Error: &errMsg,
		}
	}
	return StdResponse[T]{
		Body:  body,
		Error: nil,
	}
}

// epistulaHeaders extracts the signature headers from the request.
func epistulaHeaders(c *fiber.Ctx) signature.EpistulaHeaders {
	return signature.EpistulaHeaders{
		Signature: c.Get(signature.HeaderSignature),
		SignedBy:  c.Get(signature.HeaderSignedBy),
		SignedFor: c.Get(signature.HeaderSignedFor),
		Nonce:     c.Get(signature.HeaderNonce),
		Timestamp: c.Get(signature.HeaderTimestamp),
	}
}

func isWhitelisted(path string, whitelistedRoutes []string) bool {
	for _, route := range whitelistedRoutes {
		if path == route {
			return true
		}
	}
	return false
}
