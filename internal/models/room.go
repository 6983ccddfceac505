package models

import "time"

// Room is a bookable physical resource. CalendarAddress is the external
// calendar identity the room's reservations are mirrored to; when empty the
// room is local-only and the synchronizer skips it.
type Room struct {
	ID              int64     `yaml:"id" json:"id"`
	Name            string    `yaml:"name" json:"name"`
	Location        string    `yaml:"location" json:"location,omitempty"`
	Capacity        int64     `yaml:"capacity" json:"capacity,omitempty"`
	CalendarAddress string    `yaml:"calendar_address" json:"calendar_address,omitempty"`
	SortOrder       int64     `yaml:"sort_order" json:"sort_order"`
	IsActive        bool      `yaml:"is_active" json:"is_active"`
	CreatedAt       time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt       time.Time `yaml:"updated_at" json:"updated_at"`
}

// RoomAvailability is the answer for a single room and candidate interval.
type RoomAvailability struct {
	RoomID        int64     `json:"room_id"`
	RoomName      string    `json:"room_name"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	LocalFree     bool      `json:"local_free"`
	ExternalFree  bool      `json:"external_free"`
	ExternalKnown bool      `json:"external_known"`
}
