package organic

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"github.com/0xxfu/prompting/internal/task"
)

// FlexInt decodes integers sent either as JSON numbers or numeric strings.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	if v != math.Trunc(v) || math.Abs(v) > 1<<53 {
		return fmt.Errorf("%s is not an integer", s)
	}
	*f = FlexInt(v)
	return nil
}

// Body holds the task defining fields of a scoring request.
type Body struct {
	Task     string         `json:"task"`
	Messages []task.Message `json:"messages"`
	Model    string         `json:"model"`
	Seed     FlexInt        `json:"seed"`
	// Inference payloads use sampling_parameters, retrieval payloads sampling_params.
	SamplingParameters *task.SamplingParams `json:"sampling_parameters"`
	SamplingParams     *task.SamplingParams `json:"sampling_params"`
	Timeout            *float64             `json:"timeout"`
}

// Payload is the JSON document accepted by the scoring endpoint.
type Payload struct {
	Body    Body                 `json:"body"`
	Timeout *float64             `json:"timeout"`
	UID     []FlexInt            `json:"uid"`
	Chunks  map[string][]*string `json:"chunks"`
}

func DecodePayload(raw []byte) (*Payload, error) {
	var p Payload
	if err := sonic.Unmarshal(raw, &p); err != nil {
		return nil, normErr(ErrMalformedPayload, "%v", err)
	}
	return &p, nil
}

// MaxUID bounds the uids a scoring request may name.
const MaxUID = 65535

// CheckPeers rejects payloads without uids or chunks, and uids outside
// [0, MaxUID].
func (p *Payload) CheckPeers() error {
	if len(p.UID) == 0 || len(p.Chunks) == 0 {
		return normErr(ErrNoPeers, "uid=%d chunks=%d", len(p.UID), len(p.Chunks))
	}
	for _, uid := range p.UID {
		if uid < 0 || uid > MaxUID {
			return normErr(ErrMalformedPayload, "uid %d out of range", uid)
		}
	}
	return nil
}

func (p *Payload) UIDs() []int {
	out := make([]int, len(p.UID))
	for i, u := range p.UID {
		out[i] = int(u)
	}
	return out
}

// ChunksByUID converts string keyed chunks. Keys that are not integers are dropped.
func (p *Payload) ChunksByUID() map[int][]*string {
	out := make(map[int][]*string, len(p.Chunks))
	for k, v := range p.Chunks {
		uid, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			log.Warn().Str("key", k).Msg("ignoring chunks under non integer uid")
			continue
		}
		out[uid] = v
	}
	return out
}

// ResolveTimeout picks the request timeout, then the body timeout, then fallback.
func (p *Payload) ResolveTimeout(fallback time.Duration) time.Duration {
	for _, t := range []*float64{p.Timeout, p.Body.Timeout} {
		if t != nil && *t > 0 {
			return time.Duration(*t * float64(time.Second))
		}
	}
	return fallback
}
