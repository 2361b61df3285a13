package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/huangsam/worktally/internal/contract"
	"github.com/huangsam/worktally/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUpstreamConfig(version schema.APIVersion, baseURL string) contract.UpstreamConfig {
	return contract.UpstreamConfig{
		APIVersion:   version,
		V1BaseURL:    baseURL,
		V1CompanyID:  "c-1",
		V1Token:      "tok-v1",
		V2BaseURL:    baseURL,
		V2Token:      "tok-v2",
		V2Company:    "acme",
		MaxRetries:   1,
		RetryBackoff: time.Millisecond,
		RateLimit:    1000,
	}
}

var (
	dayStart = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	dayEnd   = dayStart.Add(schema.Day)
)

func TestV1SourceWrappedItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/companies/c-1/worklogs", r.URL.Path)
		assert.Equal(t, "Bearer tok-v1", r.Header.Get("Authorization"))
		q := r.URL.Query()
		assert.Equal(t, "u-7", q.Get("user_ids"))
		assert.Equal(t, "250", q.Get("offset"))
		assert.Equal(t, "250", q.Get("limit"))
		assert.Equal(t, "2024-01-15T00:00:00Z", q.Get("start_date"))
		assert.Equal(t, "2024-01-16T00:00:00Z", q.Get("end_date"))
		_, _ = w.Write([]byte(`{"worklogs":{"items":[
			{"id":101,"user_id":"u-7","project_id":9,"project_name":"Ops","task_id":"t-1","task_name":"Triage",
			 "work_mode":"0","start_time":"2024-01-15 09:00:00","end_time":"2024-01-15 10:30:00","length":"5400"},
			{"id":"102","user_id":"u-7","start_time":"2024-01-15T11:00:00Z","end_time":"2024-01-15T11:15:00Z"}
		]}}`))
	}))
	defer srv.Close()

	src := NewV1Source(testUpstreamConfig(schema.APIv1, srv.URL))
	assert.Equal(t, schema.APIv1, src.APIVersion())

	items, err := src.GetUserWorklogs(context.Background(), "u-7", dayStart, dayEnd, 250, 250)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "101", items[0].ID)
	assert.Equal(t, "9", items[0].ProjectID)
	assert.Equal(t, "Triage", items[0].TaskName)
	assert.Equal(t, int64(5400), items[0].DurationSeconds)
	assert.Equal(t, time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC), items[0].StartTime)
	assert.True(t, items[0].Valid())

	// Missing length falls back to end minus start.
	assert.Equal(t, int64(900), items[1].DurationSeconds)
}

func TestV1SourceBareArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"worklogs":[{"id":"1","start_time":"bogus","end_time":"2024-01-15T10:00:00Z"}]}`))
	}))
	defer srv.Close()

	items, err := NewV1Source(testUpstreamConfig(schema.APIv1, srv.URL)).
		GetUserWorklogs(context.Background(), "u-1", dayStart, dayEnd, 0, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].StartTime.IsZero())
	assert.False(t, items[0].Valid())
}

func TestV1SourceEmptyAndMalformed(t *testing.T) {
	body := `{"worklogs":null}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()
	src := NewV1Source(testUpstreamConfig(schema.APIv1, srv.URL))

	items, err := src.GetUserWorklogs(context.Background(), "u-1", dayStart, dayEnd, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, items)

	body = `<html>maintenance</html>`
	_, err = src.GetUserWorklogs(context.Background(), "u-1", dayStart, dayEnd, 0, 10)
	assert.ErrorIs(t, err, contract.ErrDataIntegrity)
}

func TestV2SourceFlattensGroups(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/activity/worklog", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "tok-v2", q.Get("token"))
		assert.Equal(t, "acme", q.Get("company"))
		assert.Equal(t, "u-9", q.Get("user"))
		assert.Equal(t, "0", q.Get("offset"))
		assert.Equal(t, "50", q.Get("limit"))
		assert.Empty(t, r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": [][]map[string]any{
				{{"id": "a", "userId": "u-9", "taskId": "t-2", "projectId": "p-1", "mode": "computer",
					"start": "2024-01-15T08:00:00.000Z", "time": 3600}},
				{{"id": "b", "userId": "u-9", "start": "2024-01-15T13:00:00Z", "time": "120"}},
			},
		})
	}))
	defer srv.Close()

	src := NewV2Source(testUpstreamConfig(schema.APIv2, srv.URL))
	assert.Equal(t, schema.APIv2, src.APIVersion())

	items, err := src.GetUserWorklogs(context.Background(), "u-9", dayStart, dayEnd, 0, 50)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, "computer", items[0].WorkMode)
	assert.Equal(t, time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC), items[0].EndTime)
	assert.Equal(t, int64(120), items[1].DurationSeconds)
	assert.Equal(t, time.Date(2024, 1, 15, 13, 2, 0, 0, time.UTC), items[1].EndTime)
}

func TestV2SourceUnauthorizedCannotRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewV2Source(testUpstreamConfig(schema.APIv2, srv.URL)).
		GetUserWorklogs(context.Background(), "u-9", dayStart, dayEnd, 0, 50)
	assert.ErrorIs(t, err, contract.ErrUpstreamAuthExpired)
}

func TestNewPicksSourceByVersion(t *testing.T) {
	src, err := New(testUpstreamConfig(schema.APIv2, "http://localhost"))
	require.NoError(t, err)
	assert.IsType(t, &V2Source{}, src)

	src, err = New(testUpstreamConfig(schema.APIv1, "http://localhost"))
	require.NoError(t, err)
	assert.IsType(t, &V1Source{}, src)

	_, err = New(testUpstreamConfig("v3", "http://localhost"))
	assert.ErrorIs(t, err, contract.ErrValidation)
}

func TestFlexDecoding(t *testing.T) {
	var payload struct {
		A flexString `json:"a"`
		B flexString `json:"b"`
		C flexString `json:"c"`
		D flexInt64  `json:"d"`
		E flexInt64  `json:"e"`
		F flexInt64  `json:"f"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"x","b":12,"c":null,"d":"42","e":7.9,"f":""}`), &payload))
	assert.Equal(t, flexString("x"), payload.A)
	assert.Equal(t, flexString("12"), payload.B)
	assert.Equal(t, flexString(""), payload.C)
	assert.Equal(t, flexInt64(42), payload.D)
	assert.Equal(t, flexInt64(7), payload.E)
	assert.Equal(t, flexInt64(0), payload.F)

	var bad struct {
		D flexInt64 `json:"d"`
	}
	assert.Error(t, json.Unmarshal([]byte(`{"d":"many"}`), &bad))
}
