package dendrite

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"

	"github.com/0xxfu/prompting/internal/task"
	"github.com/0xxfu/prompting/pkg/signature"
)

const completionsPath = "/v1/chat/completions"

// Peer is an addressable miner axon.
type Peer struct {
	UID    int
	Hotkey string
	IP     string
	Port   int
}

func (p Peer) URL() string {
	return fmt.Sprintf("http://%s:%d%s", p.IP, p.Port, completionsPath)
}

// Transport sends a task to peers and returns whatever they produced within
// timeout. A peer that errors or times out is not an error for the caller.
type Transport interface {
	Dispatch(ctx context.Context, peers []Peer, t task.Task, timeout time.Duration) *ResponseBundle
}

type chatRequest struct {
	Task       string              `json:"task"`
	Messages   []task.Message      `json:"messages"`
	Model      string              `json:"model,omitempty"`
	Seed       int                 `json:"seed"`
	Sampling   task.SamplingParams `json:"sampling_parameters"`
	TimeoutSec float64             `json:"timeout"`
	Stream     bool                `json:"stream"`
}

type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content *string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

type Client struct {
	http   *retryablehttp.Client
	signer signature.SignatureProvider
}

// NewClient builds a transport whose requests are Epistula-signed by signer.
func NewClient(signer signature.SignatureProvider) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 1
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = 500 * time.Millisecond
	rc.Logger = nil

	return &Client{http: rc, signer: signer}
}

func (c *Client) Dispatch(ctx context.Context, peers []Peer, t task.Task, timeout time.Duration) *ResponseBundle {
	info := t.Info()
	req := chatRequest{
		Task:       t.Kind().String(),
		Messages:   info.Messages,
		Model:      info.ModelID,
		Seed:       info.Seed,
		Sampling:   info.Sampling,
		TimeoutSec: timeout.Seconds(),
		Stream:     true,
	}
	body, err := sonic.Marshal(req)
	if err != nil {
		log.Error().Err(err).Str("task_id", info.TaskID).Msg("failed to encode miner request")
		return Build(uidsOf(peers), nil, timeout)
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		chunks = make(map[int][]*string, len(peers))
	)
	for _, p := range peers {
		wg.Add(1)
		go func(p Peer) {
			defer wg.Done()
			got, err := c.query(waitCtx, p, body)
			if err != nil {
				log.Debug().Err(err).Int("uid", p.UID).Str("task_id", info.TaskID).Msg("miner query ended with error")
			}
			if got == nil {
				return
			}
			mu.Lock()
			chunks[p.UID] = got
			mu.Unlock()
		}(p)
	}
	wg.Wait()

	log.Debug().
		Str("task_id", info.TaskID).
		Int("peers", len(peers)).
		Int("responded", len(chunks)).
		Msg("dispatch finished")
	return Build(uidsOf(peers), chunks, timeout)
}

// query streams one peer's response. The chunks read before an error are
// returned along with it.
func (c *Client) query(ctx context.Context, p Peer, body []byte) ([]*string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, p.URL(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	if c.signer != nil {
		headers, err := signature.SignBody(c.signer, body, p.Hotkey)
		if err != nil {
			return nil, fmt.Errorf("sign request: %w", err)
		}
		for k, v := range headers.Map() {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("miner returned status %d", resp.StatusCode)
	}

	var out []*string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if !bytes.HasPrefix(line, []byte("data:")) {
			continue
		}
		data := strings.TrimSpace(string(line[len("data:"):]))
		if data == "[DONE]" {
			return out, nil
		}
		var chunk chatChunk
		if err := sonic.UnmarshalString(data, &chunk); err != nil {
			return out, fmt.Errorf("decode chunk: %w", err)
		}
		for _, choice := range chunk.Choices {
			out = append(out, choice.Delta.Content)
		}
	}
	if out == nil {
		out = []*string{}
	}
	return out, scanner.Err()
}

func uidsOf(peers []Peer) []int {
	uids := make([]int, len(peers))
	for i, p := range peers {
		uids[i] = p.UID
	}
	return uids
}
