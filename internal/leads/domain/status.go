// Package domain holds the pure lead bookkeeping rules: lifecycle states and
// the agent counter deltas every lead mutation implies.
package domain

// Status is a lead lifecycle state.
type Status string

const (
	StatusNew       Status = "New"
	StatusContacted Status = "Contacted"
	StatusConverted Status = "Converted"
	StatusLost      Status = "Lost"
)

// Statuses lists every state in display order.
var Statuses = []Status{StatusNew, StatusContacted, StatusConverted, StatusLost}

// Valid reports whether s is a known state.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusContacted, StatusConverted, StatusLost:
		return true
	}
	return false
}

// IsConverted reports whether leads in this state count toward convertedLeads.
func (s Status) IsConverted() bool {
	return s == StatusConverted
}
