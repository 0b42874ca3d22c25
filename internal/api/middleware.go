package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/0xxfu/prompting/pkg/signature"
)

var errBodyTooLarge = errors.New("decompressed body exceeds limit")

// ZstdMiddleware decompresses zstd request bodies and compresses responses
// for clients that accept zstd. Decompressed bodies larger than maxBodySize
// are rejected with 413.
func ZstdMiddleware(whitelistedRoutes []string, maxBodySize int) fiber.Handler {
	if maxBodySize <= 0 {
		maxBodySize = fiber.DefaultBodyLimit
	}
	return func(c *fiber.Ctx) error {
		if isWhitelisted(c.Path(), whitelistedRoutes) {
			return c.Next()
		}

		if strings.ToLower(c.Get(fiber.HeaderContentEncoding)) == "zstd" {
			body := c.Body()
			if len(body) > 0 {
				decoder, err := zstd.NewReader(bytes.NewReader(body), zstd.WithDecoderMaxMemory(uint64(maxBodySize)))
				if err != nil {
					log.Err(err).Msg("Failed to create zstd decoder")
					return c.Status(fiber.StatusBadRequest).JSON(
						createResponse(map[string]any{}, fmt.Errorf("failed to decompress zstd data: %w", err)))
				}
				defer decoder.Close()

				decompressed, err := io.ReadAll(io.LimitReader(decoder, int64(maxBodySize)+1))
				if err == nil && len(decompressed) > maxBodySize {
					err = errBodyTooLarge
				}
				if errors.Is(err, errBodyTooLarge) || errors.Is(err, zstd.ErrDecoderSizeExceeded) || errors.Is(err, zstd.ErrWindowSizeExceeded) {
					log.Warn().Int("limit", maxBodySize).Msg("Decompressed request body too large")
					return c.Status(fiber.StatusRequestEntityTooLarge).JSON(
						createResponse(map[string]any{}, errBodyTooLarge))
				}
				if err != nil {
					log.Err(err).Msg("Failed to decompress request")
					return c.Status(fiber.StatusBadRequest).JSON(
						createResponse(map[string]any{}, fmt.Errorf("failed to decompress zstd data: %w", err)))
				}

				c.Request().SetBody(decompressed)
				c.Request().Header.Del(fiber.HeaderContentEncoding)
				log.Debug().Msg("Request body decompressed")
			}
		}

		if err := c.Next(); err != nil {
			return err
		}

		if strings.Contains(strings.ToLower(c.Get(fiber.HeaderAcceptEncoding)), "zstd") {
			responseBody := c.Response().Body()
			if len(responseBody) > 0 {
				encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
				if err != nil {
					log.Err(err).Msg("Failed to create zstd encoder")
					return nil
				}
				defer encoder.Close()

				compressed := encoder.EncodeAll(responseBody, nil)
				c.Response().SetBody(compressed)
				c.Set(fiber.HeaderContentEncoding, "zstd")

				log.Debug().
					Int("original_size", len(responseBody)).
					Int("compressed_size", len(compressed)).
					Msg("Response body compressed")
			}
		}
		return nil
	}
}

// EpistulaMiddleware admits only requests whose body is signed by the
// trusted hotkey. It must run after ZstdMiddleware so the signature covers
// the decompressed body.
func EpistulaMiddleware(verifier Verifier, whitelistedRoutes []string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if isWhitelisted(c.Path(), whitelistedRoutes) {
			return c.Next()
		}

		headers := epistulaHeaders(c)
		if err := verifier.Verify(c.Body(), headers); err != nil {
			status := verificationStatus(err)
			log.Warn().
				Err(err).
				Str("path", c.Path()).
				Str("signed_by", headers.SignedBy).
				Int("status_code", status).
				Msg("Rejected request with invalid signature")
			return c.Status(status).JSON(createResponse(map[string]any{}, err))
		}

		log.Debug().
			Str("signed_by", headers.SignedBy).
			Str("nonce", headers.Nonce).
			Msg("Verified signature successfully")
		return c.Next()
	}
}

func verificationStatus(err error) int {
	switch {
	case errors.Is(err, signature.ErrMalformedInput):
		return fiber.StatusBadRequest
	case errors.Is(err, signature.ErrUntrustedSigner):
		return fiber.StatusForbidden
	default:
		return fiber.StatusUnauthorized
	}
}
