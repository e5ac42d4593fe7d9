package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("create booking: %w", ErrSlotUnavailable)
	if KindOf(err) != KindSlotUnavailable {
		t.Fatalf("kind: %v", KindOf(err))
	}
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected errors.Is to match slot unavailable")
	}
}

func TestKindOfForeignError(t *testing.T) {
	if KindOf(errors.New("boom")) != KindInternal {
		t.Fatalf("foreign errors should be internal")
	}
	if IsKind(nil, KindInternal) {
		t.Fatalf("nil is not an error of any kind")
	}
}

func TestErrorMessageHidesNothingFromLogs(t *testing.T) {
	err := Upstream("Payment gateway unavailable", errors.New("dial tcp: timeout"))
	if err.Error() != "Payment gateway unavailable: dial tcp: timeout" {
		t.Fatalf("error: %q", err.Error())
	}
	if err.Code != "upstream_failure" {
		t.Fatalf("code: %q", err.Code)
	}
}
