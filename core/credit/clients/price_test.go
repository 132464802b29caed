package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/HonestMajority/lana-bank/core/money"
)

func TestPriceFeedClientBTCPriceUSD(t *testing.T) {
	var capturedPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("unexpected authorization header %q", got)
		}
		_, _ = w.Write([]byte(`{"usd_cents":6500000}`))
	}))
	defer server.Close()

	client, err := NewPriceFeedClient(PriceFeedConfig{BaseURL: server.URL, APIKey: "test-key"})
	if err != nil {
		t.Fatalf("new price feed client: %v", err)
	}

	price, err := client.BTCPriceUSD(context.Background())
	if err != nil {
		t.Fatalf("btc price usd: %v", err)
	}
	if price != money.PriceOfOneBTC(6500000) {
		t.Fatalf("unexpected price: %v", price)
	}
	if capturedPath != "/price/btc" {
		t.Fatalf("unexpected path: %q", capturedPath)
	}
}

func TestPriceFeedClientRejectsNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewPriceFeedClient(PriceFeedConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new price feed client: %v", err)
	}
	if _, err := client.BTCPriceUSD(context.Background()); err == nil {
		t.Fatalf("expected an error for a non-200 response")
	}
}

func TestNewPriceFeedClientRequiresBaseURL(t *testing.T) {
	if _, err := NewPriceFeedClient(PriceFeedConfig{}); err == nil {
		t.Fatalf("expected an error when base url is empty")
	}
}
