// Package config defines environment configuration structs and loaders.
package config

import (
	"strings"
	"time"
)

type AppConfig struct {
	ChainEnvConfig
	WalletEnvConfig
	KamiEnvConfig
	ServerEnvConfig
	RedisEnvConfig
	SyntheticAPIEnvConfig
	ScoringEnvConfig
	ValidatorEnvConfig
}

// ChainEnvConfig holds chain-specific environment values.
type ChainEnvConfig struct {
	Netuid int `env:"NETUID, default=1"`
}

// WalletEnvConfig holds wallet key configuration.
type WalletEnvConfig struct {
	WalletHotkey  string `env:"WALLET_HOTKEY, default=default"`
	WalletColdkey string `env:"WALLET_COLDKEY, default=default"`
	BittensorDir  string `env:"BITTENSOR_DIR, default=~/.bittensor"`
}

// KamiEnvConfig contains Kami service target.
type KamiEnvConfig struct {
	KamiHost string `env:"KAMI_HOST, default=127.0.0.1"`
	KamiPort string `env:"KAMI_PORT, default=3000"`
}

// ServerEnvConfig configures the scoring ingestion server.
type ServerEnvConfig struct {
	Address       string `env:"AXON_IP, default=0.0.0.0"`
	Port          int    `env:"AXON_PORT, default=8091"`
	BodySizeLimit int    `env:"SERVER_BODY_LIMIT, default=4194304"`
}

// RedisEnvConfig configures Redis connection. An empty host disables Redis.
type RedisEnvConfig struct {
	RedisHost     string `env:"REDIS_HOST"`
	RedisPort     int    `env:"REDIS_PORT, default=6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB, default=0"`
}

// SyntheticAPIEnvConfig configures synthetic API access.
type SyntheticAPIEnvConfig struct {
	SyntheticAPIUrl string `env:"SYNTHETIC_API_URL, default=http://localhost:5003"`
}

// ScoringEnvConfig configures organic ingestion and the scoring queue.
type ScoringEnvConfig struct {
	// APIHotkey is the only hotkey allowed to submit organic scoring requests.
	APIHotkey          string        `env:"API_HOTKEY"`
	SignatureMaxAge    time.Duration `env:"SIGNATURE_MAX_AGE, default=8s"`
	ScoringQueueSize   int           `env:"SCORING_QUEUE_SIZE, default=1024"`
	ScoringTimeout     time.Duration `env:"SCORING_TIMEOUT, default=2m"`
	NeuronTimeout      time.Duration `env:"NEURON_TIMEOUT, default=20s"`
	ScoresFile         string        `env:"SCORES_FILE, default=scores.json"`
	MovingAverageAlpha float64       `env:"MOVING_AVERAGE_ALPHA, default=0.1"`
}

// ValidatorEnvConfig configures validator runtime.
type ValidatorEnvConfig struct {
	Environment string    `env:"ENVIRONMENT, default=dev"`
	SampleSize  int       `env:"SAMPLE_SIZE, default=50"`
	Tasks       []string  `env:"TASKS, default=InferenceTask,WebRetrievalTask"`
	TaskP       []float64 `env:"TASK_P, default=0.7,0.3"`
	Models      []string  `env:"MODELS, default=hugging-quants/Meta-Llama-3.1-70B-Instruct-AWQ-INT4"`
	// ForwardInterval overrides the environment preset when non-zero.
	ForwardInterval time.Duration `env:"FORWARD_INTERVAL"`
}

type IntervalConfig struct {
	ForwardInterval time.Duration
	BlockInterval   time.Duration
	SaveInterval    time.Duration
	// MetagraphBlocks is the number of new blocks between metagraph syncs.
	MetagraphBlocks int
}

var (
	DevIntervalConfig = &IntervalConfig{
		ForwardInterval: 5 * time.Second,
		BlockInterval:   2 * time.Second,
		SaveInterval:    10 * time.Second,
		MetagraphBlocks: 3,
	}
	TestIntervalConfig = &IntervalConfig{
		ForwardInterval: 15 * time.Second,
		BlockInterval:   12 * time.Second,
		SaveInterval:    time.Minute,
		MetagraphBlocks: 5,
	}

	ProdIntervalConfig = &IntervalConfig{
		ForwardInterval: 10 * time.Second,
		BlockInterval:   12 * time.Second,
		SaveInterval:    5 * time.Minute,
		MetagraphBlocks: 25,
	}
)

func NewIntervalConfig(environment string) *IntervalConfig {
	switch strings.ToLower(environment) {
	case "dev":
		return DevIntervalConfig
	case "test":
		return TestIntervalConfig
	case "prod":
		return ProdIntervalConfig
	}

	return DevIntervalConfig
}
