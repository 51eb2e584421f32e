package domain

import "slices"

// FilterPolicy decides which structured messages reach a session.
type FilterPolicy int

const (
	// PolicyOpen delivers untargeted messages to everyone. Used by sessions
	// whose attributes come from query or path parameters.
	PolicyOpen FilterPolicy = iota
	// PolicyStrict only delivers messages that explicitly list the session's
	// table. Used by token-authenticated sessions.
	PolicyStrict
)

func (p FilterPolicy) String() string {
	switch p {
	case PolicyStrict:
		return "strict"
	default:
		return "open"
	}
}

// Allows reports whether msg should be delivered to a session at table.
func (p FilterPolicy) Allows(msg ServerMessage, table uint16) bool {
	if !msg.Targeted() {
		return p == PolicyOpen
	}
	return slices.Contains(msg.TableNumber, table)
}
