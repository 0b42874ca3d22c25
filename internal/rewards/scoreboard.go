package rewards

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
)

// ScoresData is the on-disk form of the score board.
type ScoresData struct {
	Step   int       `json:"step"`
	Scores []float64 `json:"scores"`
}

// MaxBoardUIDs caps how far Update grows the board.
const MaxBoardUIDs = 1 << 16

// ScoreBoard keeps an exponential moving average of rewards per uid.
type ScoreBoard struct {
	mu     sync.RWMutex
	alpha  float64
	step   int
	scores []float64
	path   string
}

func NewScoreBoard(alpha float64, size int) *ScoreBoard {
	return &ScoreBoard{alpha: alpha, scores: make([]float64, size)}
}

// LoadScoreBoard reads path, starting from zero scores if it does not exist.
func LoadScoreBoard(path string, alpha float64, size int) (*ScoreBoard, error) {
	b := NewScoreBoard(alpha, size)
	b.path = path

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Info().Str("path", path).Msg("scores file not found, initializing with default scores")
			return b, nil
		}
		return nil, fmt.Errorf("read scores file: %w", err)
	}

	var data ScoresData
	if err := sonic.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("unmarshal scores file: %w", err)
	}
	b.step = data.Step
	if len(data.Scores) > len(b.scores) {
		b.scores = make([]float64, len(data.Scores))
	}
	copy(b.scores, data.Scores)

	log.Info().Msgf("Loaded latest scores from file: step %d, %d uids", data.Step, len(data.Scores))
	return b, nil
}

// Update blends rewards into the moving average for uids.
func (b *ScoreBoard) Update(uids []int, rewards []float64, step int) error {
	if len(uids) != len(rewards) {
		return fmt.Errorf("got %d uids but %d rewards", len(uids), len(rewards))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	maxUID := -1
	for _, uid := range uids {
		if uid < 0 || uid >= MaxBoardUIDs {
			return fmt.Errorf("uid %d out of range", uid)
		}
		if uid > maxUID {
			maxUID = uid
		}
	}
	if maxUID >= len(b.scores) {
		grown := make([]float64, maxUID+1)
		copy(grown, b.scores)
		b.scores = grown
	}

	incoming := make([]float64, len(b.scores))
	mask := make([]float64, len(b.scores))
	for i, uid := range uids {
		incoming[uid] = rewards[i]
		mask[uid] = 1
	}

	// scores = scores - alpha*mask*scores + alpha*incoming
	decay := make([]float64, len(b.scores))
	floats.MulTo(decay, mask, b.scores)
	floats.AddScaled(b.scores, -b.alpha, decay)
	floats.AddScaled(b.scores, b.alpha, incoming)

	if step > b.step {
		b.step = step
	}
	return nil
}

func (b *ScoreBoard) Scores() ScoresData {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return ScoresData{Step: b.step, Scores: append([]float64(nil), b.scores...)}
}

// Save writes the board to its file atomically. Boards without a path are
// kept in memory only.
func (b *ScoreBoard) Save() error {
	if b.path == "" {
		return nil
	}
	data, err := sonic.Marshal(b.Scores())
	if err != nil {
		return fmt.Errorf("marshal scores: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(b.path), ".scores-*.json")
	if err != nil {
		return fmt.Errorf("create temp scores file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write scores: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), b.path)
}
