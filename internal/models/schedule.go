package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ScheduleConfig is the persisted weekly schedule. The timezone is
// inherited from the host unless set explicitly.
type ScheduleConfig struct {
	Enabled   bool   `json:"enabled"`
	DayOfWeek int    `json:"day_of_week"` // 0 = Sunday ... 6 = Saturday
	TimeOfDay string `json:"time_of_day"` // HH:MM, 24h
	Timezone  string `json:"timezone,omitempty"`
}

// Validate checks the schedule fields.
func (c *ScheduleConfig) Validate() error {
	if c.DayOfWeek < 0 || c.DayOfWeek > 6 {
		return fmt.Errorf("day_of_week must be 0-6, got %d", c.DayOfWeek)
	}
	if _, _, err := c.ParseTimeOfDay(); err != nil {
		return err
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
		}
	}
	return nil
}

// ParseTimeOfDay splits HH:MM into hour and minute.
func (c *ScheduleConfig) ParseTimeOfDay() (hour, minute int, err error) {
	parts := strings.Split(c.TimeOfDay, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("time_of_day must be HH:MM, got %q", c.TimeOfDay)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in time_of_day %q", c.TimeOfDay)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in time_of_day %q", c.TimeOfDay)
	}
	return hour, minute, nil
}

// Location resolves the configured timezone, falling back to the host
// timezone when unset.
func (c *ScheduleConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
