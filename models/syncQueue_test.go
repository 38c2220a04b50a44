package models

import (
	"encoding/json"
	"testing"

	"github.com/easybuilders/merchantpro_backend/utils"
)

func TestValidateEnvelope(t *testing.T) {
	payload := json.RawMessage(`{"name":"Thabo"}`)

	item := QueuedItem{Action: SyncActionCreate, EntityType: SyncEntityCustomer, Payload: payload}
	if err := item.ValidateEnvelope(); err != nil {
		t.Fatalf("valid create rejected: %v", err)
	}

	item = QueuedItem{Action: "upsert", EntityType: SyncEntityCustomer, Payload: payload}
	if err := item.ValidateEnvelope(); !utils.IsValidationErr(err) {
		t.Fatalf("expected validation error for bad action, got %v", err)
	}

	item = QueuedItem{Action: SyncActionCreate, EntityType: "supplier", Payload: payload}
	if err := item.ValidateEnvelope(); !utils.IsValidationErr(err) {
		t.Fatalf("expected validation error for bad entity_type, got %v", err)
	}

	item = QueuedItem{Action: SyncActionUpdate, EntityType: SyncEntityInvoice, Payload: payload}
	if err := item.ValidateEnvelope(); !utils.IsValidationErr(err) {
		t.Fatalf("update without entity_id must be rejected, got %v", err)
	}

	item = QueuedItem{Action: SyncActionCreate, EntityType: SyncEntityInvoice}
	if err := item.ValidateEnvelope(); !utils.IsValidationErr(err) {
		t.Fatalf("missing payload must be rejected, got %v", err)
	}
}
