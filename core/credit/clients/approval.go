package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/HonestMajority/lana-bank/core/ids"
)

// ApprovalProcessConfig configures the HTTP client for the governance
// approval-process collaborator.
type ApprovalProcessConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// ApprovalProcessClient implements credit.ApprovalProcess over HTTP. It
// only starts processes; conclusions arrive asynchronously and are
// forwarded into the core by core/credit/jobs.ApprovalConclusionSubscriber.
type ApprovalProcessClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewApprovalProcessClient constructs a client with sane defaults.
func NewApprovalProcessClient(cfg ApprovalProcessConfig) (*ApprovalProcessClient, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("clients: approval process base url required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ApprovalProcessClient{
		baseURL:    strings.TrimRight(base, "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type startApprovalRequest struct {
	ProcessType string `json:"process_type"`
	SubjectID   string `json:"subject_id"`
}

type startApprovalResponse struct {
	ID string `json:"id"`
}

// Start implements credit.ApprovalProcess.
func (c *ApprovalProcessClient) Start(ctx context.Context, processType string, subjectID string) (ids.ApprovalProcessID, error) {
	body, err := json.Marshal(startApprovalRequest{ProcessType: processType, SubjectID: subjectID})
	if err != nil {
		return ids.ApprovalProcessID{}, fmt.Errorf("clients: marshal approval request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/approval-processes", bytes.NewReader(body))
	if err != nil {
		return ids.ApprovalProcessID{}, fmt.Errorf("clients: approval request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ids.ApprovalProcessID{}, fmt.Errorf("clients: approval call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return ids.ApprovalProcessID{}, fmt.Errorf("clients: approval unexpected status %d", resp.StatusCode)
	}
	var payload startApprovalResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return ids.ApprovalProcessID{}, fmt.Errorf("clients: approval decode: %w", err)
	}
	parsed, err := ids.ParseApprovalProcessID(payload.ID)
	if err != nil {
		return ids.ApprovalProcessID{}, fmt.Errorf("clients: approval id: %w", err)
	}
	return parsed, nil
}
