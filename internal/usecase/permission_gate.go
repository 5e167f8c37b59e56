package usecase

import (
	"livescribe/internal/domain"
	"livescribe/internal/ports"
)

// PermissionGate guards capture behind the microphone grant.
type PermissionGate struct {
	provider   ports.PermissionProvider
	capability domain.Capability
}

func newPermissionGate(provider ports.PermissionProvider, capability domain.Capability) *PermissionGate {
	if capability == "" {
		capability = domain.CapabilityMicrophone
	}
	return &PermissionGate{provider: provider, capability: capability}
}

// CheckAndRequest answers Granted when the grant is already held. Otherwise
// it asks the provider and returns Pending; onResult later receives Granted
// or Denied. Without a provider the answer is Denied.
func (g *PermissionGate) CheckAndRequest(onResult func(domain.PermissionResult)) domain.PermissionResult {
	if g.provider == nil {
		return domain.PermissionDenied
	}
	if g.provider.CheckGranted(g.capability) {
		return domain.PermissionGranted
	}

	g.provider.RequestGranted(g.capability, func(granted bool) {
		if granted {
			onResult(domain.PermissionGranted)
			return
		}
		onResult(domain.PermissionDenied)
	})
	return domain.PermissionPending
}
