package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTerminalLogStatus(t *testing.T) {
	assert.False(t, IsTerminalLogStatus(LogStatusStarted))
	assert.True(t, IsTerminalLogStatus(LogStatusCompleted))
	assert.True(t, IsTerminalLogStatus(LogStatusFailed))
	assert.True(t, IsTerminalLogStatus(LogStatusPartial))
	assert.True(t, IsTerminalLogStatus(LogStatusStopped))
	assert.False(t, IsTerminalLogStatus("bogus"))
}

func TestNormalizeDetailsCurrentNames(t *testing.T) {
	details := NormalizeDetails(map[string]interface{}{
		"procedures_created":    3,
		"cases_created":         int64(10),
		"duplicate_occurrences": float64(4),
		"warnings":              []interface{}{"w1", "w2"},
	})

	assert.Equal(t, 3, details.ProceduresCreated)
	assert.Equal(t, 10, details.CasesCreated)
	assert.Equal(t, 4, details.DuplicateOccurrences)
	assert.Equal(t, []string{"w1", "w2"}, details.Warnings)
}

func TestNormalizeDetailsLegacyNames(t *testing.T) {
	details := NormalizeDetails(map[string]interface{}{
		"created_procedures":   2,
		"updated_procedures":   1,
		"created_cases":        7,
		"updated_cases":        5,
		"duplicates_skipped":   9,
		"duplicate_case_count": 3,
		"log":                  []interface{}{"step one"},
		"warning_messages":     []interface{}{"careful"},
		"error_messages":       []interface{}{"broke"},
	})

	assert.Equal(t, 2, details.ProceduresCreated)
	assert.Equal(t, 1, details.ProceduresUpdated)
	assert.Equal(t, 7, details.CasesCreated)
	assert.Equal(t, 5, details.CasesUpdated)
	assert.Equal(t, 9, details.DuplicateOccurrences)
	assert.Equal(t, 3, details.DuplicateCount)
	assert.Equal(t, []string{"step one"}, details.Activity)
	assert.Equal(t, []string{"careful"}, details.Warnings)
	assert.Equal(t, []string{"broke"}, details.Errors)
}

func TestNormalizeDetailsCurrentWinsOverLegacy(t *testing.T) {
	details := NormalizeDetails(map[string]interface{}{
		"created_cases": 7,
		"cases_created": 12,
	})

	assert.Equal(t, 12, details.CasesCreated)
}

func TestNormalizeDetailsEmptyInput(t *testing.T) {
	details := NormalizeDetails(map[string]interface{}{})

	assert.Zero(t, details.CasesCreated)
	assert.Nil(t, details.Warnings)
	assert.Nil(t, details.Activity)
}
