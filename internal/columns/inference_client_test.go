package columns

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"remittance-reconciliation-service/internal/models"
	apperrors "remittance-reconciliation-service/pkg/errors"
)

func TestInferenceClient_InferColumns(t *testing.T) {
	var gotRows [][]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/columns/infer" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		var req struct {
			Rows [][]string `json:"rows"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		gotRows = req.Rows

		json.NewEncoder(w).Encode(map[string]int{"date_col": 1, "amount_col": 3, "name_col": 4})
	}))
	defer server.Close()

	client, err := NewInferenceClient(InferenceClientConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewInferenceClient() error = %v", err)
	}

	sample := [][]string{{"x", "2024-04-01", "入金", "10000", "サンプル"}}
	got, err := client.InferColumns(context.Background(), sample)
	if err != nil {
		t.Fatalf("InferColumns() error = %v", err)
	}

	want := models.ColumnMap{DateCol: 1, AmountCol: 3, NameCol: 4}
	if got != want {
		t.Errorf("InferColumns() = %+v, want %+v", got, want)
	}
	if len(gotRows) != 1 || len(gotRows[0]) != 5 {
		t.Errorf("service received unexpected sample: %v", gotRows)
	}
}

func TestInferenceClient_MissingFieldIsInvalidResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// name_col absent: zero values must not be silently assumed.
		json.NewEncoder(w).Encode(map[string]int{"date_col": 0, "amount_col": 2})
	}))
	defer server.Close()

	client, err := NewInferenceClient(InferenceClientConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewInferenceClient() error = %v", err)
	}

	_, err = client.InferColumns(context.Background(), [][]string{{"a", "b", "c"}})
	if err == nil {
		t.Fatal("InferColumns() expected error for missing field")
	}

	reconcilerErr, ok := apperrors.AsReconcilerError(err)
	if !ok {
		t.Fatalf("error is not a ReconcilerError: %v", err)
	}
	if reconcilerErr.Code != apperrors.CodeInvalidResponse {
		t.Errorf("error code = %s, want %s", reconcilerErr.Code, apperrors.CodeInvalidResponse)
	}
}

func TestInferenceClient_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewInferenceClient(InferenceClientConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewInferenceClient() error = %v", err)
	}

	_, err = client.InferColumns(context.Background(), [][]string{{"a", "b", "c"}})
	if err == nil {
		t.Fatal("InferColumns() expected error on 500")
	}

	reconcilerErr, ok := apperrors.AsReconcilerError(err)
	if !ok {
		t.Fatalf("error is not a ReconcilerError: %v", err)
	}
	if reconcilerErr.Code != apperrors.CodeInferenceFailed {
		t.Errorf("error code = %s, want %s", reconcilerErr.Code, apperrors.CodeInferenceFailed)
	}
}

func TestNewInferenceClient_RequiresBaseURL(t *testing.T) {
	if _, err := NewInferenceClient(InferenceClientConfig{}); err == nil {
		t.Error("NewInferenceClient() expected error for empty base URL")
	}
}
