package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"remittance-reconciliation-service/internal/models"
	"remittance-reconciliation-service/internal/reconciler"
	"remittance-reconciliation-service/internal/store"
)

func newTestServer(t *testing.T, config *Config) *Server {
	t.Helper()

	invoices := []*models.UnpaidInvoice{
		{
			ID:          "INV-001",
			TotalAmount: 10000,
			IssueDate:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			ClientName:  "株式会社サンプル",
		},
	}

	service, err := reconciler.NewService(nil, store.NewMemoryStore(invoices), nil, nil)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	srv, err := New(config, service)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv
}

func uploadRequest(t *testing.T, filename string, content []byte, headers map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("writing multipart content: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/reconcile/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t, nil)

	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", w.Code)
	}
}

func TestServer_Upload_Success(t *testing.T) {
	srv := newTestServer(t, nil)

	payload := []byte("2024-04-01,入金,10000,カ）サンプル")
	req := uploadRequest(t, "deposits.csv", payload, nil)

	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		RunID              string                   `json:"run_id"`
		Results            []models.ReconcileResult `json:"results"`
		UnpaidInvoiceCount int                      `json:"unpaid_invoice_count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.RunID == "" {
		t.Error("response missing run_id")
	}
	if resp.UnpaidInvoiceCount != 1 {
		t.Errorf("unpaid_invoice_count = %d, want 1", resp.UnpaidInvoiceCount)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(resp.Results))
	}
	if resp.Results[0].Status != models.StatusCompleted {
		t.Errorf("result status = %s, want %s", resp.Results[0].Status, models.StatusCompleted)
	}
	if resp.Results[0].MatchedInvoiceID != "INV-001" {
		t.Errorf("matched invoice = %s, want INV-001", resp.Results[0].MatchedInvoiceID)
	}
}

func TestServer_Upload_Authentication(t *testing.T) {
	config := DefaultConfig()
	config.APIKey = "secret"
	srv := newTestServer(t, config)

	payload := []byte("2024-04-01,入金,10000,サンプル")

	t.Run("missing key rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		srv.Engine().ServeHTTP(w, uploadRequest(t, "deposits.csv", payload, nil))

		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("wrong key rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		srv.Engine().ServeHTTP(w, uploadRequest(t, "deposits.csv", payload, map[string]string{"X-API-Key": "wrong"}))

		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("correct key accepted", func(t *testing.T) {
		w := httptest.NewRecorder()
		srv.Engine().ServeHTTP(w, uploadRequest(t, "deposits.csv", payload, map[string]string{"X-API-Key": "secret"}))

		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200; body = %s", w.Code, w.Body.String())
		}
	})
}

func TestServer_Upload_MissingFile(t *testing.T) {
	srv := newTestServer(t, nil)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	writer.WriteField("note", "no file here")
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/reconcile/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestServer_Upload_WrongFileType(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		filename string
		wantCode int
	}{
		{"deposits.csv", http.StatusOK},
		{"deposits.txt", http.StatusOK},
		{"deposits.tsv", http.StatusOK},
		{"deposits.CSV", http.StatusOK},
		{"deposits.xlsx", http.StatusBadRequest},
		{"deposits.pdf", http.StatusBadRequest},
		{"deposits", http.StatusBadRequest},
	}

	payload := []byte("2024-04-01,入金,10000,サンプル")

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.Engine().ServeHTTP(w, uploadRequest(t, tt.filename, payload, nil))

			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
		})
	}
}

func TestServer_Upload_FileTooLarge(t *testing.T) {
	srv := newTestServer(t, nil)

	// One byte past the cap.
	payload := bytes.Repeat([]byte("a"), reconciler.MaxPayloadBytes+1)

	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, uploadRequest(t, "deposits.csv", payload, nil))

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}
}

func TestServer_Upload_RateLimit(t *testing.T) {
	config := DefaultConfig()
	config.RequestsPerSecond = 1
	config.Burst = 1
	srv := newTestServer(t, config)

	payload := []byte("2024-04-01,入金,10000,サンプル")

	first := httptest.NewRecorder()
	srv.Engine().ServeHTTP(first, uploadRequest(t, "deposits.csv", payload, nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", first.Code)
	}

	second := httptest.NewRecorder()
	srv.Engine().ServeHTTP(second, uploadRequest(t, "deposits.csv", payload, nil))
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", second.Code)
	}
}

func TestNew_RequiresService(t *testing.T) {
	if _, err := New(nil, nil); err == nil {
		t.Error("New() expected error for nil service")
	}
}
