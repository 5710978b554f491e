package order

import (
	"slices"
	"strings"
)

// Status is the lifecycle state of an order.
type Status string

// Order statuses. DELIVERED and CANCELED are terminal.
const (
	StatusPending   Status = "PENDING"
	StatusAccepted  Status = "ACCEPTED"
	StatusOnTheWay  Status = "ON_THE_WAY"
	StatusDelivered Status = "DELIVERED"
	StatusCanceled  Status = "CANCELED"
)

// transitions lists, for every status, the statuses it may move to.
var transitions = map[Status][]Status{
	StatusPending:   {StatusAccepted, StatusCanceled},
	StatusAccepted:  {StatusOnTheWay, StatusCanceled},
	StatusOnTheWay:  {StatusDelivered, StatusCanceled},
	StatusDelivered: nil,
	StatusCanceled:  nil,
}

// ParseStatus converts user input into a Status. Input is matched
// case-insensitively; unknown values yield *InvalidStatusError.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", &InvalidStatusError{Value: s}
	}
	return st, nil
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// Next returns the statuses reachable from s in one step.
func (s Status) Next() []Status {
	return slices.Clone(transitions[s])
}

// CanTransition reports whether moving from s to to is permitted.
func (s Status) CanTransition(to Status) bool {
	return slices.Contains(transitions[s], to)
}

func (s Status) String() string { return string(s) }
