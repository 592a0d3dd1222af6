package snapshot

import "github.com/parkd-io/parkd/internal/domain"

// State is a point-in-time copy of the parking lot, the unit of
// persistence. It is written after every successful mutation and loaded
// once at startup for crash recovery.
type State struct {
	// Capacity is the total number of spaces in the lot.
	Capacity int

	// Occupied is the number of spaces currently held by present vehicles.
	Occupied int

	// SmallRate is the hourly rate for small vehicles.
	SmallRate float64

	// LargeRate is the hourly rate for large vehicles.
	LargeRate float64

	// Vehicles holds every occupant record, present and departed.
	Vehicles []domain.Vehicle
}

// IsEmpty returns true if the state holds no lot data.
func (s State) IsEmpty() bool {
	return s.Capacity == 0 && len(s.Vehicles) == 0
}
