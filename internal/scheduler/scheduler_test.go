package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surgimedia/casesync/internal/models"
	"github.com/surgimedia/casesync/internal/registry"
	"go.uber.org/zap"
)

type fakeScheduleStore struct {
	config  *models.ScheduleConfig
	nextRun time.Time
	stop    bool
}

func (f *fakeScheduleStore) SaveSchedule(ctx context.Context, config *models.ScheduleConfig) error {
	f.config = config
	return nil
}

func (f *fakeScheduleStore) LoadSchedule(ctx context.Context) (*models.ScheduleConfig, error) {
	if f.config == nil {
		return &models.ScheduleConfig{Enabled: false, TimeOfDay: "02:00"}, nil
	}
	return f.config, nil
}

func (f *fakeScheduleStore) SaveNextRun(ctx context.Context, t time.Time) error {
	f.nextRun = t
	return nil
}

func (f *fakeScheduleStore) LoadNextRun(ctx context.Context) (time.Time, error) {
	return f.nextRun, nil
}

func (f *fakeScheduleStore) ClearNextRun(ctx context.Context) error {
	f.nextRun = time.Time{}
	return nil
}

func (f *fakeScheduleStore) RequestStop(ctx context.Context) error {
	f.stop = true
	return nil
}

func (f *fakeScheduleStore) ClearStop(ctx context.Context) error {
	f.stop = false
	return nil
}

func (f *fakeScheduleStore) StopRequested(ctx context.Context) bool { return f.stop }

// fakeCoordinator hands out the single active-job slot the way the
// real coordinator does: a registration claims it and holds it until
// cleared.
type fakeCoordinator struct {
	active     bool
	registered []string
}

func (f *fakeCoordinator) HasActiveJob(ctx context.Context) (bool, error) {
	return f.active, nil
}

func (f *fakeCoordinator) RegisterSync(ctx context.Context, jobType string, scheduledTime *time.Time) (string, error) {
	if f.active {
		return "", models.ErrScheduleConflict
	}
	f.active = true
	f.registered = append(f.registered, jobType)
	return "job-1", nil
}

func (f *fakeCoordinator) ReportSync(ctx context.Context, status string, casesSynced int, message string, detail map[string]interface{}) error {
	return nil
}

func (f *fakeCoordinator) GetCurrentJob(ctx context.Context) (*models.SyncJob, error) {
	return nil, nil
}

func (f *fakeCoordinator) GetLastReport(ctx context.Context) (*registry.Report, error) {
	return nil, nil
}

func sundayAt(hour, minute int) time.Time {
	// 2026-08-30 is a Sunday
	return time.Date(2026, 8, 30, hour, minute, 0, 0, time.UTC)
}

func weeklySchedule(day int, timeOfDay string) *models.ScheduleConfig {
	return &models.ScheduleConfig{
		Enabled:   true,
		DayOfWeek: day,
		TimeOfDay: timeOfDay,
		Timezone:  "UTC",
	}
}

func TestNextRunTimeLaterToday(t *testing.T) {
	config := weeklySchedule(0, "02:00")

	next, err := NextRunTime(config, sundayAt(1, 0))

	require.NoError(t, err)
	assert.Equal(t, sundayAt(2, 0), next)
}

func TestNextRunTimePastTodayRollsToNextWeek(t *testing.T) {
	config := weeklySchedule(0, "02:00")

	next, err := NextRunTime(config, sundayAt(3, 0))

	require.NoError(t, err)
	assert.Equal(t, sundayAt(2, 0).AddDate(0, 0, 7), next)
}

func TestNextRunTimeExactMomentRollsForward(t *testing.T) {
	config := weeklySchedule(0, "02:00")

	next, err := NextRunTime(config, sundayAt(2, 0))

	require.NoError(t, err)
	assert.Equal(t, sundayAt(2, 0).AddDate(0, 0, 7), next)
}

func TestNextRunTimeOtherWeekday(t *testing.T) {
	config := weeklySchedule(3, "14:30") // Wednesday

	next, err := NextRunTime(config, sundayAt(10, 0))

	require.NoError(t, err)
	assert.Equal(t, time.Wednesday, next.Weekday())
	assert.Equal(t, 14, next.Hour())
	assert.Equal(t, 30, next.Minute())
	assert.Equal(t, sundayAt(0, 0).AddDate(0, 0, 3).YearDay(), next.YearDay())
}

func TestNextRunTimeRespectsTimezone(t *testing.T) {
	config := &models.ScheduleConfig{
		Enabled:   true,
		DayOfWeek: 0,
		TimeOfDay: "02:00",
		Timezone:  "America/New_York",
	}

	next, err := NextRunTime(config, sundayAt(1, 0))

	require.NoError(t, err)
	loc, _ := time.LoadLocation("America/New_York")
	assert.Equal(t, 2, next.In(loc).Hour())
	assert.Equal(t, time.Sunday, next.In(loc).Weekday())
}

func TestNextRunTimeInvalidTime(t *testing.T) {
	config := weeklySchedule(0, "25:99")

	_, err := NextRunTime(config, sundayAt(1, 0))

	assert.Error(t, err)
}

func TestApplyDefersRegistrationWhileCoordinatorBusy(t *testing.T) {
	store := &fakeScheduleStore{}
	coordinator := &fakeCoordinator{active: true}
	s := New(nil, store, coordinator, zap.NewNop())

	next, err := s.Apply(context.Background(), weeklySchedule(0, "02:00"))

	require.NoError(t, err)
	assert.False(t, next.IsZero())
	assert.Equal(t, next, store.nextRun)
	// the slot was busy, so the pending run holds no registration yet
	assert.Empty(t, coordinator.registered)
}

func TestTickRetriesDeferredRegistration(t *testing.T) {
	store := &fakeScheduleStore{
		config:  weeklySchedule(0, "02:00"),
		nextRun: time.Now().Add(time.Hour),
	}
	coordinator := &fakeCoordinator{active: true}
	s := New(nil, store, coordinator, zap.NewNop())

	// still busy: registration stays deferred
	s.tick(context.Background())
	assert.Empty(t, coordinator.registered)

	// the active job finished; the next poll claims the slot
	coordinator.active = false
	s.tick(context.Background())
	require.Equal(t, []string{models.JobTypeAuto}, coordinator.registered)

	// our own registration now holds the slot, so later polls do not
	// register again
	s.tick(context.Background())
	assert.Len(t, coordinator.registered, 1)
}
