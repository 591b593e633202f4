package models

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidTransition is returned when a record is moved to a status its
// current status does not lead to.
var ErrInvalidTransition = errors.New("invalid status transition")

// transitions maps a status to the statuses it may move to.
type transitions[S ~string] map[S][]S

func (t transitions[S]) allows(from, to S) bool {
	return slices.Contains(t[from], to)
}

func (t transitions[S]) check(from, to S) error {
	if !t.allows(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

func (t transitions[S]) next(from S) []S {
	return slices.Clone(t[from])
}

func (t transitions[S]) valid(s S) bool {
	if _, ok := t[s]; ok {
		return true
	}
	for _, targets := range t {
		if slices.Contains(targets, s) {
			return true
		}
	}
	return false
}
