package cluster

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/runningwild/surge/pkg/agent"
)

// Client fans one offered-load level out across a set of surge agents.
// Threads and offered rate are split proportionally; the returned raw
// latencies are concatenated so the caller can summarize the merged set.
type Client struct {
	nodes   []string
	timeout time.Duration
}

// Result is the merged outcome of one distributed level.
type Result struct {
	LatenciesUS []float64
	AchievedRPS float64
	CPUUsage    float64
	Generated   int
}

func New(nodes []string, timeout time.Duration) *Client {
	if timeout < 10*time.Second {
		timeout = 10 * time.Second
	}
	return &Client{nodes: nodes, timeout: timeout}
}

// RunLevel splits req across the agents and merges their responses.
// Nodes that end up with zero threads after the split are skipped.
func (c *Client) RunLevel(req agent.RunRequest) (*Result, error) {
	if len(c.nodes) == 0 {
		return nil, fmt.Errorf("no agent nodes configured")
	}

	base := req.Threads / len(c.nodes)
	rem := req.Threads % len(c.nodes)
	perThread := req.OfferedRPS / float64(req.Threads)

	var wg sync.WaitGroup
	responses := make([]*agent.RunResponse, len(c.nodes))
	errs := make([]error, len(c.nodes))

	for i, node := range c.nodes {
		nodeReq := req
		nodeReq.Threads = base
		if i < rem {
			nodeReq.Threads++
		}
		if nodeReq.Threads == 0 {
			continue
		}
		nodeReq.OfferedRPS = perThread * float64(nodeReq.Threads)

		wg.Add(1)
		go func(idx int, host string, r agent.RunRequest) {
			defer wg.Done()
			responses[idx], errs[idx] = c.runRemote(host, r)
		}(i, node, nodeReq)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("node %s failed: %w", c.nodes[i], err)
		}
	}

	merged := &Result{}
	for _, resp := range responses {
		if resp == nil {
			continue
		}
		merged.LatenciesUS = append(merged.LatenciesUS, resp.LatenciesUS...)
		merged.AchievedRPS += resp.AchievedRPS
		merged.Generated += resp.Generated
		if resp.CPUUsage > merged.CPUUsage {
			merged.CPUUsage = resp.CPUUsage
		}
	}
	return merged, nil
}

func (c *Client) runRemote(host string, r agent.RunRequest) (*agent.RunResponse, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("http://%s/run", host)
	httpReq, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: c.timeout}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("agent %s error (%s): %s", host, resp.Status, bytes.TrimSpace(body))
	}

	var out agent.RunResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
