package main

import (
	"testing"

	"roomsync/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestFirstCalendarAddress(t *testing.T) {
	rooms := []models.Room{
		{ID: 1, Name: "huddle-1", IsActive: true},
		{ID: 2, Name: "aurora", IsActive: false, CalendarAddress: "inactive@group.calendar.google.com"},
		{ID: 3, Name: "borealis", IsActive: true, CalendarAddress: "borealis@group.calendar.google.com"},
	}

	assert.Equal(t, "borealis@group.calendar.google.com", firstCalendarAddress(rooms))
}

func TestFirstCalendarAddressNoneLinked(t *testing.T) {
	rooms := []models.Room{
		{ID: 1, Name: "huddle-1", IsActive: true},
		{ID: 2, Name: "huddle-2", IsActive: true},
	}

	assert.Empty(t, firstCalendarAddress(rooms))
	assert.Empty(t, firstCalendarAddress(nil))
}
