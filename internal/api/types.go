package api

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/0xxfu/prompting/internal/organic"
	"github.com/0xxfu/prompting/internal/scoring"
	"github.com/0xxfu/prompting/pkg/signature"
)

const (
	DefaultServerHost = "0.0.0.0"
	DefaultServerPort = 8091
	DefaultBodyLimit  = 4 * 1024 * 1024 // 4MB

	DefaultNeuronTimeout = 20 * time.Second

	ScoringRoute = "/scoring"
	HealthRoute  = "/health"
	MetricsRoute = "/metrics"
)

// Server is the organic scoring ingestion server.
type Server struct {
	App    *fiber.App
	config *ServerConfig

	verifier   Verifier
	normalizer Normalizer
	queue      Enqueuer
}

type ServerConfig struct {
	Host          string
	Port          int
	BodyLimit     int
	NeuronTimeout time.Duration
}

// StdResponse represents the standardized response structure
type StdResponse[T any] struct {
	Body  T       `json:"body"`
	Error *string `json:"error,omitempty"`
}

// ScoringAck is returned by the scoring route.
type ScoringAck struct {
	Accepted bool   `json:"accepted"`
	TaskID   string `json:"task_id,omitempty"`
}

type Verifier interface {
	Verify(body []byte, h signature.EpistulaHeaders) error
}

type Normalizer interface {
	Normalize(body *organic.Body) (organic.Result, error)
}

type Enqueuer interface {
	Enqueue(e scoring.Entry) error
}
