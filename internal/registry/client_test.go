package registry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surgimedia/casesync/internal/models"
	"go.uber.org/zap"
)

func TestHasActiveJob(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     bool
	}{
		{
			name:     "no active job",
			response: `{"active_job":null,"last_report":null}`,
			want:     false,
		},
		{
			name:     "job in progress",
			response: `{"active_job":{"id":"j1","status":"in_progress","source":"manual","type":"manual"}}`,
			want:     true,
		},
		{
			name:     "terminal job is not active",
			response: `{"active_job":{"id":"j1","status":"success","source":"manual","type":"manual"}}`,
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/status", r.URL.Path)
				assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
				w.Write([]byte(tt.response))
			}))
			defer server.Close()

			client := NewHTTPClient(server.URL, "tok", zap.NewNop())
			active, err := client.HasActiveJob(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, active)
		})
	}
}

func TestRegisterSync(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/register", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "auto", payload["type"])
		assert.NotEmpty(t, payload["scheduled_time"])

		w.Write([]byte(`{"job_id":"job-77"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "tok", zap.NewNop())
	scheduled := time.Date(2026, 9, 6, 2, 0, 0, 0, time.UTC)
	jobID, err := client.RegisterSync(context.Background(), models.JobTypeAuto, &scheduled)
	require.NoError(t, err)
	assert.Equal(t, "job-77", jobID)
}

func TestRegisterSync_Conflict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"job already active"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "tok", zap.NewNop())
	_, err := client.RegisterSync(context.Background(), models.JobTypeManual, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrScheduleConflict))
}

func TestReportSync(t *testing.T) {
	var received map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/report", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "tok", zap.NewNop())
	err := client.ReportSync(context.Background(), models.JobStatusPartial, 42, "one case failed", map[string]interface{}{"failed": 1})
	require.NoError(t, err)

	assert.Equal(t, "partial", received["status"])
	assert.Equal(t, float64(42), received["cases_synced"])
	assert.Equal(t, "one case failed", received["message"])
}

func TestReportSync_RegistryDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewHTTPClient(server.URL, "tok", zap.NewNop())
	err := client.ReportSync(context.Background(), models.JobStatusSuccess, 10, "", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrRegistryUnavailable))
}

// The coordinator holds the active-job slot until a terminal report
// releases it; a second registration in between is refused.
func TestExclusionLifecycle(t *testing.T) {
	var active *models.SyncJob
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/status":
			json.NewEncoder(w).Encode(map[string]interface{}{"active_job": active})
		case "/register":
			if active != nil && !models.IsTerminalStatus(active.Status) {
				w.WriteHeader(http.StatusConflict)
				return
			}
			active = &models.SyncJob{ID: "j1", Status: models.JobStatusInProgress, Type: models.JobTypeManual}
			json.NewEncoder(w).Encode(map[string]string{"job_id": active.ID})
		case "/report":
			var payload map[string]interface{}
			json.NewDecoder(r.Body).Decode(&payload)
			if status, _ := payload["status"].(string); models.IsTerminalStatus(status) {
				active = nil
			}
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "tok", zap.NewNop())
	ctx := context.Background()

	jobID, err := client.RegisterSync(ctx, models.JobTypeManual, nil)
	require.NoError(t, err)
	assert.Equal(t, "j1", jobID)

	busy, err := client.HasActiveJob(ctx)
	require.NoError(t, err)
	assert.True(t, busy)

	_, err = client.RegisterSync(ctx, models.JobTypeManual, nil)
	assert.True(t, errors.Is(err, models.ErrScheduleConflict))

	require.NoError(t, client.ReportSync(ctx, models.JobStatusSuccess, 5, "done", nil))

	busy, err = client.HasActiveJob(ctx)
	require.NoError(t, err)
	assert.False(t, busy)

	_, err = client.RegisterSync(ctx, models.JobTypeManual, nil)
	assert.NoError(t, err)
}

func TestGetCurrentJobAndLastReport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"active_job":{"id":"j9","status":"in_progress","source":"rest_api","type":"manual"},
			"last_report":{"status":"success","cases_synced":120,"reported_at":"2026-08-23T02:05:00Z"}
		}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "tok", zap.NewNop())

	job, err := client.GetCurrentJob(context.Background())
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "j9", job.ID)
	assert.Equal(t, models.SourceRESTAPI, job.Source)

	report, err := client.GetLastReport(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, models.JobStatusSuccess, report.Status)
	assert.Equal(t, 120, report.CasesSynced)
}
