package utils

import (
	"errors"
	"testing"

	"gorm.io/gorm"
)

func TestNotFoundErrorCapitalizesEntity(t *testing.T) {
	cases := map[string]string{
		"invoice":  "Invoice not found",
		"customer": "Customer not found",
		"payment":  "Payment not found",
		"store":    "Store not found",
	}
	for entity, want := range cases {
		if got := NewNotFoundError(entity).Error(); got != want {
			t.Errorf("NewNotFoundError(%q) = %q, want %q", entity, got, want)
		}
	}
}

func TestClassifyDBErrorMapsRecordNotFound(t *testing.T) {
	err := ClassifyDBError(gorm.ErrRecordNotFound, "invoice")
	if !IsNotFoundErr(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
	if err.Error() != "Invoice not found" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestClassifyDBErrorWrapsUnknownAsInfrastructure(t *testing.T) {
	err := ClassifyDBError(errors.New("conn reset"), "invoice")
	if !IsInfrastructureErr(err) {
		t.Fatalf("expected infrastructure, got %v", err)
	}
}
