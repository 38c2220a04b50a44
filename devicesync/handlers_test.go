package devicesync

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/easybuilders/merchantpro_backend/config"
	"github.com/gin-gonic/gin"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	logger := config.NewLogger()
	r.POST("/sync", PushHandler(nil, nil, logger))
	r.GET("/sync", PullHandler(nil, logger))
	return r
}

func TestPushHandlerRejectsMissingDeviceId(t *testing.T) {
	r := newTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sync", strings.NewReader(`{"queue":[]}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}
}

func TestPushHandlerRejectsMalformedBody(t *testing.T) {
	r := newTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sync", strings.NewReader(`{"device_id": 7`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
}

func TestChangeFeedResponseWireShape(t *testing.T) {
	resp := ChangeFeedResponse{
		Success: true,
		Since:   "2026-02-01",
		Data: ChangeFeedData{
			Invoices:  []InvoiceChange{},
			Customers: []CustomerChange{},
			Payments:  []PaymentChange{},
		},
		ServerTime: time.Now().UTC(),
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"success", "since", "data", "server_time"} {
		if _, ok := body[key]; !ok {
			t.Errorf("missing top-level %q key", key)
		}
	}

	var data map[string]json.RawMessage
	if err := json.Unmarshal(body["data"], &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	for _, key := range []string{"invoices", "customers", "payments"} {
		if string(data[key]) != "[]" {
			t.Errorf("data.%s should be an empty list, got %s", key, data[key])
		}
	}
	if string(body["since"]) != `"2026-02-01"` {
		t.Errorf("since not echoed: %s", body["since"])
	}
}

func TestPullHandlerRequiresSince(t *testing.T) {
	r := newTestRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sync", nil))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for missing since, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sync?since=yesterday", nil))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for bad since, got %d", w.Code)
	}
}
