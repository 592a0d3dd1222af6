package domain

import (
	"fmt"
	"time"
)

// Class identifies the tariff class a vehicle is billed under.
type Class string

const (
	// ClassSmall is the tariff class for small vehicles.
	ClassSmall Class = "small"

	// ClassLarge is the tariff class for large vehicles.
	ClassLarge Class = "large"
)

// ParseClass validates a raw class value from a request body.
func ParseClass(s string) (Class, error) {
	switch Class(s) {
	case ClassSmall:
		return ClassSmall, nil
	case ClassLarge:
		return ClassLarge, nil
	default:
		return "", fmt.Errorf("%w: unknown vehicle class %q", ErrInvalidArgument, s)
	}
}

// Vehicle is a single occupant record. A record is created when the vehicle
// is admitted and mutated exactly once, on release. Records are never
// deleted; departed vehicles stay in the lot's history.
type Vehicle struct {
	// Plate is the unique license plate identifying the vehicle.
	Plate string

	// Class is the tariff class the vehicle is billed under.
	Class Class

	// EntryTime is when the vehicle was admitted.
	EntryTime time.Time

	// ExitTime is when the vehicle was released. Zero while still parked.
	ExitTime time.Time

	// Fee is the final parking fee. Set if and only if ExitTime is set.
	Fee float64
}

// Departed reports whether the vehicle has left the lot.
func (v Vehicle) Departed() bool {
	return !v.ExitTime.IsZero()
}
