// Package agentclient talks to the remote execution agent that runs
// comparison jobs and serves schema metadata. Responses are loosely typed
// upstream; everything returned from this package is already normalized.
package agentclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"etl-verify/internal/connection"
	"etl-verify/internal/schema"
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func New(baseURL, token string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// JobRequest is the comparison job submitted to the agent.
type JobRequest struct {
	AgentID            string                 `json:"agentId"`
	SourceConnectionID string                 `json:"sourceConnectionId"`
	TargetConnectionID string                 `json:"targetConnectionId"`
	SourceConnection   *connection.Descriptor `json:"sourceConnection"`
	TargetConnection   *connection.Descriptor `json:"targetConnection"`
	SourceQuery        string                 `json:"sourceQuery"`
	TargetQuery        string                 `json:"targetQuery"`
	KeyColumns         []string               `json:"keyColumns"`
	TestCase           TestCasePayload        `json:"testCase"`
}

type TestCasePayload struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	Category       string `json:"category"`
	Severity       string `json:"severity"`
	ExpectedResult string `json:"expectedResult,omitempty"`
}

// Submit creates a job and returns its id.
func (c *Client) Submit(ctx context.Context, req *JobRequest) (string, error) {
	if req.KeyColumns == nil {
		req.KeyColumns = []string{}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", NewErrSubmission(fmt.Errorf("failed to marshal request: %w", err))
	}

	status, data, err := c.do(ctx, http.MethodPost, "/api/v1/jobs", body)
	if err != nil {
		return "", NewErrSubmission(err)
	}
	if status < 200 || status > 299 {
		return "", NewErrSubmission(fmt.Errorf("agent returned status %d: %s", status, strings.TrimSpace(string(data))))
	}

	payload, err := decodeObject(data)
	if err != nil {
		return "", NewErrSubmission(err)
	}
	id := jobID(payload)
	if id == "" {
		return "", NewErrSubmission(fmt.Errorf("agent response did not contain a job id"))
	}

	zap.S().Named("agentclient").Debugf("submitted job %s for test case %q", id, req.TestCase.Name)
	return id, nil
}

// Status polls the current state of a job. A 404 is reported as ErrJobNotFound.
func (c *Client) Status(ctx context.Context, id string) (*JobStatus, error) {
	payload, err := c.getJob(ctx, "/api/v1/jobs/"+url.PathEscape(id), id)
	if err != nil {
		return nil, err
	}
	return normalizeStatus(id, payload), nil
}

// Results fetches the full result payload of a finished job.
func (c *Client) Results(ctx context.Context, id string) (*JobResult, error) {
	payload, err := c.getJob(ctx, "/api/v1/jobs/"+url.PathEscape(id)+"/results", id)
	if err != nil {
		return nil, err
	}
	return normalizeResult(payload), nil
}

// Schema fetches table metadata for a connection as seen by the agent.
func (c *Client) Schema(ctx context.Context, connectionID, agentID string) (*schema.Snapshot, error) {
	path := "/api/v1/connections/" + url.PathEscape(connectionID) + "/schema"
	if agentID != "" {
		path += "?agentId=" + url.QueryEscape(agentID)
	}

	status, data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("agent returned status %d: %s", status, strings.TrimSpace(string(data)))
	}

	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode schema response: %w", err)
	}
	snap := normalizeSchema(payload)
	snap.ConnectionID = connectionID
	return snap, nil
}

func (c *Client) getJob(ctx context.Context, path, id string) (map[string]any, error) {
	status, data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, NewErrJobNotFound(id)
	}
	if status != http.StatusOK {
		return nil, NewErrAgent(status, strings.TrimSpace(string(data)))
	}
	return decodeObject(data)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to call agent: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, data, nil
}

func decodeObject(data []byte) (map[string]any, error) {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return payload, nil
}
