package gallery

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surgimedia/casesync/internal/models"
	"go.uber.org/zap"
)

func TestFetchProcedures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/procedures", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"procedures":[
			{"id":1,"slug":"rhinoplasty","name":"Rhinoplasty","case_ids":["c1","c2"]},
			{"id":2,"slug":"facelift","name":"Facelift","case_ids":["c2","c3"]}
		]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token", zap.NewNop())
	procedures, err := client.FetchProcedures(context.Background())
	require.NoError(t, err)

	require.Len(t, procedures, 2)
	assert.Equal(t, "rhinoplasty", procedures[0].Slug)
	assert.Equal(t, []string{"c1", "c2"}, procedures[0].CaseIDs)
	assert.Equal(t, []string{"c2", "c3"}, procedures[1].CaseIDs)
}

func TestFetchProcedures_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"bad token"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "wrong-token", zap.NewNop())
	_, err := client.FetchProcedures(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrRemoteFetch))
	assert.Contains(t, err.Error(), "401")
}

func TestFetchCaseDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cases/c42", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"case_id":"c42","title":"Case 42","procedure_slugs":["facelift"],"fields":{"age":44}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token", zap.NewNop())
	detail, err := client.FetchCaseDetail(context.Background(), "c42")
	require.NoError(t, err)

	assert.Equal(t, "c42", detail.CaseID)
	assert.Equal(t, "Case 42", detail.Title)
	assert.Equal(t, []string{"facelift"}, detail.ProcedureSlugs)
}

func TestFetchCaseDetail_FillsMissingID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"title":"untitled"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token", zap.NewNop())
	detail, err := client.FetchCaseDetail(context.Background(), "c7")
	require.NoError(t, err)
	assert.Equal(t, "c7", detail.CaseID)
}

func TestFetchCaseDetail_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // force a connection error

	client := NewClient(server.URL, "test-token", zap.NewNop())
	_, err := client.FetchCaseDetail(context.Background(), "c1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrRemoteFetch))
}
