package checks

import (
	"context"
	"fmt"

	"github.com/charlesng35/partyd/internal/invitations"
	"github.com/charlesng35/partyd/internal/monitoring"
	"github.com/charlesng35/partyd/internal/party"
)

// Parties returns a liveness probe that takes the registry and ledger locks. A wedged
// lock surfaces as a probe timeout.
func Parties(registry *party.Registry, ledger *invitations.Ledger) monitoring.Check {
	return monitoring.NewCheck("parties", func(context.Context) monitoring.ProbeResult {
		if registry == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "registry not configured"}
		}
		details := fmt.Sprintf("%d parties", registry.Count())
		if ledger != nil {
			details += fmt.Sprintf(", %d invitations", ledger.Len())
		}
		return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: details}
	})
}
