// Package dendrite assembles miner responses into bundles and queries miners.
package dendrite

import (
	"strings"
	"time"
)

// StreamResult holds what one peer produced for a task.
type StreamResult struct {
	UID int
	// Chunks is empty for a peer that did not answer.
	Chunks    []string
	Responded bool
}

// Completion joins the chunks into the full response text.
func (r StreamResult) Completion() string {
	return strings.Join(r.Chunks, "")
}

// ResponseBundle is the per-peer result set for a single task. The uid set
// and order are fixed by Build; accessors return copies.
type ResponseBundle struct {
	uids    []int
	results []StreamResult
	timeout time.Duration
}

// Build creates an entry for every uid in order. Peers missing from chunks
// get an empty placeholder and nil chunks are dropped. A uid listed twice is
// kept at its first position only.
func Build(uids []int, chunks map[int][]*string, timeout time.Duration) *ResponseBundle {
	b := &ResponseBundle{
		uids:    make([]int, 0, len(uids)),
		results: make([]StreamResult, 0, len(uids)),
		timeout: timeout,
	}
	seen := make(map[int]struct{}, len(uids))
	for _, uid := range uids {
		if _, dup := seen[uid]; dup {
			continue
		}
		seen[uid] = struct{}{}

		raw, ok := chunks[uid]
		result := StreamResult{UID: uid, Chunks: []string{}, Responded: ok}
		for _, c := range raw {
			if c != nil {
				result.Chunks = append(result.Chunks, *c)
			}
		}
		b.uids = append(b.uids, uid)
		b.results = append(b.results, result)
	}
	return b
}

func (b *ResponseBundle) UIDs() []int {
	return append([]int(nil), b.uids...)
}

func (b *ResponseBundle) Results() []StreamResult {
	out := make([]StreamResult, len(b.results))
	for i, r := range b.results {
		r.Chunks = append([]string(nil), r.Chunks...)
		out[i] = r
	}
	return out
}

func (b *ResponseBundle) Completions() []string {
	out := make([]string, len(b.results))
	for i, r := range b.results {
		out[i] = r.Completion()
	}
	return out
}

func (b *ResponseBundle) Timeout() time.Duration { return b.timeout }

func (b *ResponseBundle) Len() int { return len(b.uids) }
