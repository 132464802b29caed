package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HonestMajority/lana-bank/core/credit"
	"github.com/HonestMajority/lana-bank/core/ids"
	"github.com/HonestMajority/lana-bank/core/money"
)

func TestLedgerHTTPClientActivateFacility(t *testing.T) {
	var capturedPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewLedgerHTTPClient(LedgerClientConfig{BaseURL: server.URL})
	require.NoError(t, err)

	err = client.ActivateFacility(context.Background(), credit.LedgerTxKey{Entity: "facility", Action: "activate"}, ids.NewFacilityID(), credit.LedgerAccountIDs{}, money.UsdCents(100_00))
	require.NoError(t, err)
	require.Equal(t, "/transactions/activate", capturedPath)
}

func TestLedgerHTTPClientBalancesMapsAllFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(balancesResponse{
			DisbursedNotYetDue: 1,
			DisbursedDue:       2,
			DisbursedOverdue:   3,
			DisbursedDefaulted: 4,
			InterestNotYetDue:  5,
			InterestDue:        6,
			InterestOverdue:    7,
			InterestDefaulted:  8,
			CollateralSats:     9,
		})
	}))
	defer server.Close()

	client, err := NewLedgerHTTPClient(LedgerClientConfig{BaseURL: server.URL})
	require.NoError(t, err)

	balances, err := client.Balances(context.Background(), ids.NewFacilityID())
	require.NoError(t, err)
	require.Equal(t, credit.FacilityBalances{
		DisbursedNotYetDue: 1,
		DisbursedDue:       2,
		DisbursedOverdue:   3,
		DisbursedDefaulted: 4,
		InterestNotYetDue:  5,
		InterestDue:        6,
		InterestOverdue:    7,
		InterestDefaulted:  8,
		CollateralSats:     9,
	}, balances)
}

func TestLedgerHTTPClientPropagatesErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client, err := NewLedgerHTTPClient(LedgerClientConfig{BaseURL: server.URL})
	require.NoError(t, err)

	err = client.SettleDisbursal(context.Background(), credit.LedgerTxKey{}, ids.NewFacilityID(), ids.NewDisbursalID())
	require.Error(t, err)
}
