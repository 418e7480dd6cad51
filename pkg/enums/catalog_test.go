package enums

import "testing"

func TestParseCatalogEnums(t *testing.T) {
	if got, err := ParseCategory(" Sneaker "); err != nil || got != CategorySneaker {
		t.Fatalf("expected sneaker, got %q err=%v", got, err)
	}
	if _, err := ParseCategory("boots"); err == nil {
		t.Fatalf("expected error for unknown category")
	}
	if got, err := ParseGender("KIDS"); err != nil || got != GenderKids {
		t.Fatalf("expected kids, got %q err=%v", got, err)
	}
	if _, err := ParseGender(""); err == nil {
		t.Fatalf("expected error for empty gender")
	}
	if got, err := ParseCondition("NEW"); err != nil || got != ConditionNew {
		t.Fatalf("expected new, got %q err=%v", got, err)
	}
	if _, err := ParseCondition("mint"); err == nil {
		t.Fatalf("expected error for unknown condition")
	}
	if got, err := ParseSizingSystem("one_size"); err != nil || got != SizingSystemOneSize {
		t.Fatalf("expected one_size, got %q err=%v", got, err)
	}
}

func TestCatalogEnumValidity(t *testing.T) {
	if Condition("refurbished").IsValid() {
		t.Fatalf("refurbished should not be a valid condition")
	}
	if !CategoryOther.IsValid() || !GenderUnisex.IsValid() || !SizingSystemEU.IsValid() {
		t.Fatalf("expected canonical values to be valid")
	}
	if !EventListingReconciled.IsValid() || !AggregateListing.IsValid() {
		t.Fatalf("expected outbox enums to be valid")
	}
	if _, err := ParseRole("admin"); err != nil {
		t.Fatalf("expected admin role to parse: %v", err)
	}
}
