package usecase

import (
	"testing"

	"livescribe/internal/domain"
)

func TestPermissionGate(t *testing.T) {
	t.Parallel()

	t.Run("granted", func(t *testing.T) {
		t.Parallel()

		provider := &fakePermissions{granted: true}
		gate := newPermissionGate(provider, "")
		result := gate.CheckAndRequest(func(domain.PermissionResult) {
			t.Fatalf("granted permission must not call back")
		})
		if result != domain.PermissionGranted {
			t.Fatalf("expected granted, got %s", result)
		}
		if provider.requestCount() != 0 {
			t.Fatalf("granted permission must not be requested")
		}
	})

	t.Run("pending then answered", func(t *testing.T) {
		t.Parallel()

		provider := &fakePermissions{}
		gate := newPermissionGate(provider, domain.CapabilityMicrophone)

		var answers []domain.PermissionResult
		result := gate.CheckAndRequest(func(r domain.PermissionResult) { answers = append(answers, r) })
		if result != domain.PermissionPending {
			t.Fatalf("expected pending, got %s", result)
		}
		provider.answer(false)
		if len(answers) != 1 || answers[0] != domain.PermissionDenied {
			t.Fatalf("unexpected answers: %v", answers)
		}

		gate.CheckAndRequest(func(r domain.PermissionResult) { answers = append(answers, r) })
		provider.answer(true)
		if len(answers) != 2 || answers[1] != domain.PermissionGranted {
			t.Fatalf("unexpected answers: %v", answers)
		}
	})

	t.Run("no provider", func(t *testing.T) {
		t.Parallel()

		gate := newPermissionGate(nil, "")
		if got := gate.CheckAndRequest(func(domain.PermissionResult) {}); got != domain.PermissionDenied {
			t.Fatalf("expected denied without provider, got %s", got)
		}
	})
}
