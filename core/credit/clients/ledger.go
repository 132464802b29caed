package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/HonestMajority/lana-bank/core/credit"
	"github.com/HonestMajority/lana-bank/core/ids"
	"github.com/HonestMajority/lana-bank/core/money"
)

// LedgerClientConfig configures the HTTP client for the double-entry
// ledger collaborator.
type LedgerClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// LedgerHTTPClient implements credit.LedgerClient over HTTP, posting one
// transaction-template request per operation keyed by the deterministic
// LedgerTxKey the ledger de-duplicates on (spec.md §6).
type LedgerHTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewLedgerHTTPClient constructs a client with sane defaults.
func NewLedgerHTTPClient(cfg LedgerClientConfig) (*LedgerHTTPClient, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("clients: ledger base url required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &LedgerHTTPClient{
		baseURL:    strings.TrimRight(base, "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (c *LedgerHTTPClient) post(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("clients: marshal ledger request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("clients: ledger request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("clients: ledger call %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("clients: ledger %s unexpected status %d", path, resp.StatusCode)
	}
	return nil
}

type txRequest struct {
	Key         credit.LedgerTxKey `json:"key"`
	FacilityID  string             `json:"facility_id"`
	AmountCents uint64             `json:"amount_cents,omitempty"`
	DisbursalID string             `json:"disbursal_id,omitempty"`
	CycleIndex  uint32             `json:"cycle_index,omitempty"`
}

// ActivateFacility implements credit.LedgerClient.
func (c *LedgerHTTPClient) ActivateFacility(ctx context.Context, key credit.LedgerTxKey, facilityID ids.FacilityID, accounts credit.LedgerAccountIDs, principal money.UsdCents) error {
	return c.post(ctx, "/transactions/activate", struct {
		txRequest
		Accounts credit.LedgerAccountIDs `json:"accounts"`
	}{
		txRequest: txRequest{Key: key, FacilityID: facilityID.String(), AmountCents: uint64(principal)},
		Accounts:  accounts,
	})
}

// RecordStructuringFee implements credit.LedgerClient.
func (c *LedgerHTTPClient) RecordStructuringFee(ctx context.Context, key credit.LedgerTxKey, facilityID ids.FacilityID, amount money.UsdCents) error {
	return c.post(ctx, "/transactions/structuring-fee/record", txRequest{Key: key, FacilityID: facilityID.String(), AmountCents: uint64(amount)})
}

// ChargeStructuringFee implements credit.LedgerClient.
func (c *LedgerHTTPClient) ChargeStructuringFee(ctx context.Context, key credit.LedgerTxKey, facilityID ids.FacilityID, amount money.UsdCents) error {
	return c.post(ctx, "/transactions/structuring-fee/charge", txRequest{Key: key, FacilityID: facilityID.String(), AmountCents: uint64(amount)})
}

// AddStructuringFee implements credit.LedgerClient.
func (c *LedgerHTTPClient) AddStructuringFee(ctx context.Context, key credit.LedgerTxKey, facilityID ids.FacilityID, amount money.UsdCents) error {
	return c.post(ctx, "/transactions/structuring-fee/add", txRequest{Key: key, FacilityID: facilityID.String(), AmountCents: uint64(amount)})
}

// InitiateDisbursal implements credit.LedgerClient.
func (c *LedgerHTTPClient) InitiateDisbursal(ctx context.Context, key credit.LedgerTxKey, facilityID ids.FacilityID, disbursalID ids.DisbursalID, amount money.UsdCents) error {
	return c.post(ctx, "/transactions/disbursal/initiate", txRequest{Key: key, FacilityID: facilityID.String(), DisbursalID: disbursalID.String(), AmountCents: uint64(amount)})
}

// SettleDisbursal implements credit.LedgerClient.
func (c *LedgerHTTPClient) SettleDisbursal(ctx context.Context, key credit.LedgerTxKey, facilityID ids.FacilityID, disbursalID ids.DisbursalID) error {
	return c.post(ctx, "/transactions/disbursal/settle", txRequest{Key: key, FacilityID: facilityID.String(), DisbursalID: disbursalID.String()})
}

// CancelDisbursal implements credit.LedgerClient.
func (c *LedgerHTTPClient) CancelDisbursal(ctx context.Context, key credit.LedgerTxKey, facilityID ids.FacilityID, disbursalID ids.DisbursalID) error {
	return c.post(ctx, "/transactions/disbursal/cancel", txRequest{Key: key, FacilityID: facilityID.String(), DisbursalID: disbursalID.String()})
}

// RecordInterestAccrual implements credit.LedgerClient.
func (c *LedgerHTTPClient) RecordInterestAccrual(ctx context.Context, key credit.LedgerTxKey, facilityID ids.FacilityID, cycleIdx uint32, amount money.UsdCents) error {
	return c.post(ctx, "/transactions/accrual", txRequest{Key: key, FacilityID: facilityID.String(), CycleIndex: cycleIdx, AmountCents: uint64(amount)})
}

type balancesResponse struct {
	DisbursedNotYetDue uint64 `json:"disbursed_not_yet_due_cents"`
	DisbursedDue       uint64 `json:"disbursed_due_cents"`
	DisbursedOverdue   uint64 `json:"disbursed_overdue_cents"`
	DisbursedDefaulted uint64 `json:"disbursed_defaulted_cents"`
	InterestNotYetDue  uint64 `json:"interest_not_yet_due_cents"`
	InterestDue        uint64 `json:"interest_due_cents"`
	InterestOverdue    uint64 `json:"interest_overdue_cents"`
	InterestDefaulted  uint64 `json:"interest_defaulted_cents"`
	CollateralSats     uint64 `json:"collateral_sats"`
}

// Balances implements credit.LedgerClient.
func (c *LedgerHTTPClient) Balances(ctx context.Context, facilityID ids.FacilityID) (credit.FacilityBalances, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/facilities/%s/balances", c.baseURL, facilityID.String()), nil)
	if err != nil {
		return credit.FacilityBalances{}, fmt.Errorf("clients: balances request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return credit.FacilityBalances{}, fmt.Errorf("clients: balances call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return credit.FacilityBalances{}, fmt.Errorf("clients: balances unexpected status %d", resp.StatusCode)
	}
	var payload balancesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return credit.FacilityBalances{}, fmt.Errorf("clients: balances decode: %w", err)
	}
	return credit.FacilityBalances{
		DisbursedNotYetDue: money.UsdCents(payload.DisbursedNotYetDue),
		DisbursedDue:       money.UsdCents(payload.DisbursedDue),
		DisbursedOverdue:   money.UsdCents(payload.DisbursedOverdue),
		DisbursedDefaulted: money.UsdCents(payload.DisbursedDefaulted),
		InterestNotYetDue:  money.UsdCents(payload.InterestNotYetDue),
		InterestDue:        money.UsdCents(payload.InterestDue),
		InterestOverdue:    money.UsdCents(payload.InterestOverdue),
		InterestDefaulted:  money.UsdCents(payload.InterestDefaulted),
		CollateralSats:     money.Satoshis(payload.CollateralSats),
	}, nil
}

// ProposalCollateralBalance implements credit.LedgerClient.
func (c *LedgerHTTPClient) ProposalCollateralBalance(ctx context.Context, facilityID ids.FacilityID) (money.Satoshis, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/facilities/%s/collateral", c.baseURL, facilityID.String()), nil)
	if err != nil {
		return 0, fmt.Errorf("clients: collateral request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("clients: collateral call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("clients: collateral unexpected status %d", resp.StatusCode)
	}
	var payload struct {
		Satoshis uint64 `json:"satoshis"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("clients: collateral decode: %w", err)
	}
	return money.Satoshis(payload.Satoshis), nil
}
