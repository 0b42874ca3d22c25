package main

import (
	"context"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/0xxfu/prompting/internal/api"
	"github.com/0xxfu/prompting/internal/config"
	"github.com/0xxfu/prompting/internal/dendrite"
	"github.com/0xxfu/prompting/internal/kami"
	"github.com/0xxfu/prompting/internal/organic"
	"github.com/0xxfu/prompting/internal/rewards"
	"github.com/0xxfu/prompting/internal/scoring"
	"github.com/0xxfu/prompting/internal/syntheticapi"
	"github.com/0xxfu/prompting/internal/task"
	"github.com/0xxfu/prompting/internal/utils/logger"
	"github.com/0xxfu/prompting/internal/utils/redis"
	"github.com/0xxfu/prompting/internal/validator"
	"github.com/0xxfu/prompting/internal/chain"
	"github.com/0xxfu/prompting/pkg/signature"
)

const scoreBoardSize = 256

func main() {
	logger.Init()
	log.Info().Msg("Starting validator...")

	cfg, err := config.LoadConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load environment configuration")
	}

	// task probabilities are checked before anything touches the network
	selector, err := validator.NewTaskSelector(cfg.Tasks, cfg.TaskP)
	if err != nil {
		log.Fatal().Err(err).Strs("tasks", cfg.Tasks).Floats64("task_p", cfg.TaskP).Msg("invalid task configuration")
	}

	keypair, err := signature.LoadKeypairFromHotkey(cfg.BittensorDir, cfg.WalletColdkey, cfg.WalletHotkey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load validator hotkey")
	}
	signer, err := signature.NewProvider(keypair)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create signature provider")
	}

	k, err := kami.NewKami(&cfg.KamiEnvConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init kami client")
	}

	var r redis.RedisInterface
	if cfg.RedisHost != "" {
		rc, err := redis.NewRedis(&cfg.RedisEnvConfig)
		if err != nil {
			log.Error().Err(err).Msg("failed to init redis client, continuing without redis")
		} else {
			r = rc
			defer rc.Close()
		}
	}

	s, err := syntheticapi.NewSyntheticAPI(&cfg.SyntheticAPIEnvConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load synthetic api env")
	}

	verifier, err := signature.NewEpistulaVerifier(cfg.APIHotkey, cfg.SignatureMaxAge, signature.WithRecipient(signer.Address()))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init request verifier")
	}

	board, err := rewards.LoadScoreBoard(cfg.ScoresFile, cfg.MovingAverageAlpha, scoreBoardSize)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.ScoresFile).Msg("failed to load scores")
	}

	state := chain.NewChainState(cfg.Netuid)
	models := task.NewStaticRegistry(cfg.Models...)
	queue := scoring.NewQueue(cfg.ScoringQueueSize)

	kinds := selector.ActiveKinds()
	for _, kind := range organic.Kinds() {
		if !slices.Contains(kinds, kind) {
			kinds = append(kinds, kind)
		}
	}
	pipeline := rewards.NewPipeline(kinds, board)

	worker := scoring.NewWorker(queue, pipeline, cfg.ScoringTimeout)

	server := api.NewServer(
		&api.ServerConfig{
			Host:          cfg.Address,
			Port:          cfg.Port,
			BodyLimit:     cfg.BodySizeLimit,
			NeuronTimeout: cfg.NeuronTimeout,
		},
		verifier,
		organic.NewNormalizer(models, state, task.DefaultSamplingParams),
		queue,
	)

	v, err := validator.NewValidator(&cfg.ValidatorEnvConfig, validator.Dependencies{
		Kami:          k,
		Redis:         r,
		SyntheticAPI:  s,
		Transport:     dendrite.NewClient(signer),
		Queue:         queue,
		Chain:         state,
		Selector:      selector,
		Models:        models,
		Board:         board,
		Hotkey:        signer.Address(),
		NeuronTimeout: cfg.NeuronTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init validator")
	}

	// setup signal handling for graceful shutdown before starting validator
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	v.Wg.Add(1)
	go func() {
		defer v.Wg.Done()
		worker.Run(v.Ctx)
	}()

	v.Start()

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received, stopping validator")
	case err := <-serverErr:
		log.Error().Err(err).Msg("api server stopped unexpectedly, stopping validator")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("failed to shut down api server")
	}
	// waits for the forward loop and scoring worker, then saves scores
	v.Stop()
	log.Info().Msg("validator stopped")
}
