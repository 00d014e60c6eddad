package enums

import "testing"

func TestParseOrderStatus(t *testing.T) {
	status, err := ParseOrderStatus("confirmed")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if status != OrderStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", status)
	}

	if _, err := ParseOrderStatus("Confirmed"); err == nil {
		t.Fatal("expected case-sensitive parse to fail")
	}
	if _, err := ParseOrderStatus("garbage"); err == nil {
		t.Fatal("expected unknown status to fail")
	}
}

func TestOrderStatusIsValid(t *testing.T) {
	for _, status := range []OrderStatus{
		OrderStatusPending,
		OrderStatusConfirmed,
		OrderStatusProcessing,
		OrderStatusShipped,
		OrderStatusDelivered,
		OrderStatusCancelled,
	} {
		if !status.IsValid() {
			t.Fatalf("expected %s to be valid", status)
		}
	}
	if OrderStatus("refunded-maybe").IsValid() {
		t.Fatal("expected unknown status to be invalid")
	}
}

func TestParseUserRole(t *testing.T) {
	role, err := ParseUserRole("admin")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if role != UserRoleAdmin {
		t.Fatalf("expected admin, got %s", role)
	}
	if _, err := ParseUserRole("superuser"); err == nil {
		t.Fatal("expected unknown role to fail")
	}
}
