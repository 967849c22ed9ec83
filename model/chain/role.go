package chain

import (
	"fmt"
	"strings"
)

// Role is the part a node plays in bootstrapping the first block.
type Role uint8

const (
	// RoleWatcher only observes: it adopts the first valid genesis block it hears and echoes it.
	RoleWatcher Role = iota
	// RoleLeader proposes the genesis template.
	RoleLeader
)

func (r Role) String() string {
	switch r {
	case RoleLeader:
		return "leader"
	case RoleWatcher:
		return "watcher"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

// ParseRole converts a role name into a Role.
func ParseRole(role string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "leader":
		return RoleLeader, nil
	case "watcher":
		return RoleWatcher, nil
	default:
		return 0, fmt.Errorf("unknown genesis role %q, expected leader or watcher", role)
	}
}
