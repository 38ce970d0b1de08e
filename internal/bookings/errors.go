package bookings

import "errors"

var (
	// ErrInvalidService is returned when the service key is not in the catalog.
	ErrInvalidService = errors.New("bookings: unknown service")

	// ErrInvalidSlot is returned when the requested time is not on the grid
	// or the date is malformed or a closed day.
	ErrInvalidSlot = errors.New("bookings: invalid date or time slot")

	// ErrSlotTaken is returned when another confirmed appointment already
	// occupies the slot. The storage-level uniqueness constraint is the
	// authoritative source of this rejection.
	ErrSlotTaken = errors.New("bookings: slot already booked")

	// ErrUserResolution is returned when the booking user cannot be resolved
	// or created.
	ErrUserResolution = errors.New("bookings: failed to resolve user")
)
