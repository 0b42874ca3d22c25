// Package syntheticapi fetches prompts for synthetic validation tasks.
package syntheticapi

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/0xxfu/prompting/internal/config"
)

type SyntheticAPIInterface interface {
	GetQuestion(ctx context.Context) (GenerateQuestionResponse, error)
}

type SyntheticAPI struct {
	cfg    *config.SyntheticAPIEnvConfig
	client *resty.Client
}

func NewSyntheticAPI(cfg *config.SyntheticAPIEnvConfig) (*SyntheticAPI, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	client := resty.New().
		SetBaseURL(cfg.SyntheticAPIUrl).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetTimeout(30 * time.Second)

	return &SyntheticAPI{
		cfg:    cfg,
		client: client,
	}, nil
}

func (s *SyntheticAPI) GetQuestion(ctx context.Context) (GenerateQuestionResponse, error) {
	var out GenerateQuestionResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/api/generate-question")
	if err != nil {
		log.Error().Err(err).Msg("get-question request failed")
		return GenerateQuestionResponse{}, fmt.Errorf("get question: %w", err)
	}
	if resp.IsError() {
		log.Error().Int("status", resp.StatusCode()).Str("body", resp.String()).Msg("get-question non-2xx")
		return GenerateQuestionResponse{}, fmt.Errorf("get-question status %d: %s", resp.StatusCode(), resp.String())
	}
	if !out.Success {
		return GenerateQuestionResponse{}, fmt.Errorf("get-question api returned success=false")
	}
	if out.Prompt == "" {
		return GenerateQuestionResponse{}, fmt.Errorf("get-question api returned an empty prompt")
	}
	return out, nil
}
