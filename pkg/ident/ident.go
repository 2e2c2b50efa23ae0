package ident

import (
	"strings"

	"github.com/denisbrodbeck/machineid"
	"github.com/google/uuid"
)

// appSalt keys the hashed machine id so the raw hardware id never leaves the host.
const appSalt = "algo-core"

// InstanceID returns a short, stable identifier for this host. It survives
// restarts, which keeps broker client order ids attributable to one deployment.
// When the platform cannot provide a machine id, a random id is used instead
// (stable only for the lifetime of the process).
func InstanceID() string {
	mid, err := machineid.ProtectedID(appSalt)
	if err != nil || mid == "" {
		return "ac-" + uuid.NewString()[:8]
	}
	return "ac-" + strings.ToLower(mid[:8])
}
