package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Member holds the attributes of one connection. They are fixed when the
// connection joins and never change afterwards.
type Member struct {
	GroupID     string
	TableNumber uint16
	Role        string

	// Set only for token-authenticated members.
	Authenticated  bool
	Subject        string
	RestaurantName string
	TableCount     uint16
}

// NewOpenMember builds the attributes of an unauthenticated member from raw
// query or path parameters.
func NewOpenMember(groupID, tableNumber, role string) (Member, error) {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return Member{}, ErrMissingGroupID
	}
	table, err := ParseTableNumber(tableNumber)
	if err != nil {
		return Member{}, err
	}
	return Member{GroupID: groupID, TableNumber: table, Role: strings.TrimSpace(role)}, nil
}

// ParseTableNumber parses a table number in the uint16 range.
func ParseTableNumber(raw string) (uint16, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%w: missing", ErrInvalidTableNumber)
	}
	n, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTableNumber, raw)
	}
	return uint16(n), nil
}

// Policy returns the filter applied to this member's outbound messages.
func (m Member) Policy() FilterPolicy {
	if m.Authenticated {
		return PolicyStrict
	}
	return PolicyOpen
}

func (m Member) JoinAnnouncement() string {
	if m.Authenticated {
		return fmt.Sprintf("authenticated user %s (table %d) join to the %s", m.Subject, m.TableNumber, m.GroupID)
	}
	return fmt.Sprintf("tb %d join to the %s", m.TableNumber, m.GroupID)
}

func (m Member) LeaveAnnouncement() string {
	if m.Authenticated {
		return fmt.Sprintf("authenticated user %s (table %d) leave the %s", m.Subject, m.TableNumber, m.GroupID)
	}
	return fmt.Sprintf("tb %d leave the %s", m.TableNumber, m.GroupID)
}

// WrapInbound tags a client text frame with the member's context before it
// is republished to the group.
func (m Member) WrapInbound(text string) string {
	if m.Authenticated {
		return fmt.Sprintf("[group: %s][table: %d][user: %s] %s", m.GroupID, m.TableNumber, m.Subject, text)
	}
	return fmt.Sprintf("[group: %s][table: %d] %s", m.GroupID, m.TableNumber, text)
}
