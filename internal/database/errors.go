package database

import "errors"

var (
	// ErrTimeSlotTaken: запрошенный интервал пересекается с активной бронью.
	ErrTimeSlotTaken = errors.New("time slot is already taken")

	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomInactive        = errors.New("room is inactive")
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrAlreadyCancelled: бронь в терминальном статусе, изменения запрещены.
	ErrAlreadyCancelled = errors.New("reservation is already cancelled")

	ErrConcurrentModification = errors.New("reservation was modified concurrently")
	ErrUserNotFound           = errors.New("user not found")
)
