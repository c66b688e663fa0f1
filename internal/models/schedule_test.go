package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleConfigValidate(t *testing.T) {
	valid := &ScheduleConfig{DayOfWeek: 0, TimeOfDay: "02:00"}
	assert.NoError(t, valid.Validate())

	withTZ := &ScheduleConfig{DayOfWeek: 6, TimeOfDay: "23:59", Timezone: "America/New_York"}
	assert.NoError(t, withTZ.Validate())
}

func TestScheduleConfigValidateRejects(t *testing.T) {
	cases := []ScheduleConfig{
		{DayOfWeek: -1, TimeOfDay: "02:00"},
		{DayOfWeek: 7, TimeOfDay: "02:00"},
		{DayOfWeek: 0, TimeOfDay: "2am"},
		{DayOfWeek: 0, TimeOfDay: "24:00"},
		{DayOfWeek: 0, TimeOfDay: "02:60"},
		{DayOfWeek: 0, TimeOfDay: "02:00", Timezone: "Not/AZone"},
	}
	for _, c := range cases {
		assert.Error(t, c.Validate(), "config %+v should be invalid", c)
	}
}

func TestParseTimeOfDay(t *testing.T) {
	c := &ScheduleConfig{TimeOfDay: "14:05"}
	hour, minute, err := c.ParseTimeOfDay()
	require.NoError(t, err)
	assert.Equal(t, 14, hour)
	assert.Equal(t, 5, minute)
}

func TestLocationFallsBackToHost(t *testing.T) {
	c := &ScheduleConfig{}
	assert.NotNil(t, c.Location())

	bad := &ScheduleConfig{Timezone: "Not/AZone"}
	assert.NotNil(t, bad.Location())
}
