package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/0xxfu/prompting/internal/dendrite"
	"github.com/0xxfu/prompting/internal/organic"
	"github.com/0xxfu/prompting/internal/scoring"
)

// handleScoring accepts an organic response set for scoring. Normalization
// failures and duplicate task ids are logged no-ops; the client cannot fix
// them by retrying.
func (s *Server) handleScoring(c *fiber.Ctx) error {
	payload, err := organic.DecodePayload(c.Body())
	if err != nil {
		log.Error().Err(err).Msg("Failed to parse scoring payload")
		return c.Status(fiber.StatusBadRequest).JSON(createResponse(ScoringAck{}, err))
	}

	if err := payload.CheckPeers(); err != nil {
		log.Error().Err(err).Msg("Scoring payload has invalid peers, skipping scoring")
		return c.Status(fiber.StatusBadRequest).JSON(createResponse(ScoringAck{}, err))
	}

	res, err := s.normalizer.Normalize(&payload.Body)
	if err != nil {
		log.Error().Err(err).Str("task", payload.Body.Task).Msg("Failed to normalize organic task, skipping scoring")
		return c.Status(fiber.StatusOK).JSON(createResponse(ScoringAck{}, err))
	}

	bundle := dendrite.Build(payload.UIDs(), payload.ChunksByUID(), payload.ResolveTimeout(s.config.NeuronTimeout))
	entry := scoring.NewEntry(res.Task, bundle, res.Dataset)

	if err := s.queue.Enqueue(entry); err != nil {
		switch {
		case errors.Is(err, scoring.ErrDuplicateTaskID):
			log.Warn().Err(err).Str("task_id", entry.TaskID).Msg("Duplicate organic task, ignoring")
			return c.Status(fiber.StatusOK).JSON(createResponse(ScoringAck{TaskID: entry.TaskID}, err))
		case errors.Is(err, scoring.ErrQueueFull):
			log.Warn().Err(err).Str("task_id", entry.TaskID).Msg("Scoring queue full, rejecting organic task")
			return c.Status(fiber.StatusServiceUnavailable).JSON(createResponse(ScoringAck{TaskID: entry.TaskID}, err))
		default:
			log.Error().Err(err).Str("task_id", entry.TaskID).Msg("Failed to enqueue organic task")
			return c.Status(fiber.StatusInternalServerError).JSON(createResponse(ScoringAck{TaskID: entry.TaskID}, err))
		}
	}

	log.Info().
		Str("task_id", entry.TaskID).
		Str("task_kind", res.Task.Kind().String()).
		Int("block", entry.Block).
		Int("peers", bundle.Len()).
		Msg("Organic task appended to scoring queue")
	return c.JSON(createResponse(ScoringAck{Accepted: true, TaskID: entry.TaskID}, nil))
}
