package inbound

import (
	"fmt"
	"strings"
)

// Destination is the routing information encoded in a recipient address:
// <orgId>[+<subgroupId>]@<inbound domain>.
type Destination struct {
	OrgID string
	// SubgroupHint is the optional plus-addressing routing hint. It is a
	// hint only: the pipeline verifies it names a real subgroup of the
	// organisation before using it.
	SubgroupHint string
}

// ParseRecipient recovers the destination from a recipient address. The
// convention lives entirely in this function so it can change without
// touching resolution logic.
func ParseRecipient(email string) (Destination, error) {
	email = strings.TrimSpace(email)
	at := strings.Index(email, "@")
	if at <= 0 {
		return Destination{}, fmt.Errorf("recipient %q has no local part", email)
	}
	local := email[:at]

	var dest Destination
	if plus := strings.Index(local, "+"); plus >= 0 {
		dest.OrgID = strings.TrimSpace(local[:plus])
		dest.SubgroupHint = strings.TrimSpace(local[plus+1:])
	} else {
		dest.OrgID = strings.TrimSpace(local)
	}
	if dest.OrgID == "" {
		return Destination{}, fmt.Errorf("recipient %q has an empty organisation id", email)
	}
	return dest, nil
}
