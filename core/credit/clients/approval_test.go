package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestApprovalProcessClientStart(t *testing.T) {
	wantID := uuid.New().String()
	var captured startApprovalRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(startApprovalResponse{ID: wantID})
	}))
	defer server.Close()

	client, err := NewApprovalProcessClient(ApprovalProcessConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new approval process client: %v", err)
	}

	id, err := client.Start(context.Background(), "credit_facility_proposal", "subject-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if id.String() != wantID {
		t.Fatalf("expected id %q, got %q", wantID, id.String())
	}
	if captured.ProcessType != "credit_facility_proposal" || captured.SubjectID != "subject-1" {
		t.Fatalf("unexpected request payload: %+v", captured)
	}
}

func TestApprovalProcessClientRejectsMalformedID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(startApprovalResponse{ID: "not-a-uuid"})
	}))
	defer server.Close()

	client, err := NewApprovalProcessClient(ApprovalProcessConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new approval process client: %v", err)
	}
	if _, err := client.Start(context.Background(), "t", "s"); err == nil {
		t.Fatalf("expected an error for a malformed id")
	}
}
