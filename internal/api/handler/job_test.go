package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkraft/subsync/internal/api"
	"github.com/mkraft/subsync/internal/api/handler"
	"github.com/mkraft/subsync/internal/config"
	"github.com/mkraft/subsync/internal/domain"
	"github.com/mkraft/subsync/internal/logger"
	"github.com/mkraft/subsync/internal/repository"
	"github.com/mkraft/subsync/internal/service"
)

type fakeDest struct {
	mu   sync.Mutex
	recs map[string]*domain.Subscriber
}

func (d *fakeDest) Lookup(ctx context.Context, key string) (*domain.Subscriber, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if sub, ok := d.recs[key]; ok {
		copied := *sub
		return &copied, nil
	}
	return nil, domain.ErrSubscriberNotFound
}

func (d *fakeDest) Write(ctx context.Context, key string, sub *domain.Subscriber) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	copied := *sub
	d.recs[key] = &copied
	return nil
}

type fakeObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *fakeObjectStore) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.objects[key] = data
	s.mu.Unlock()
	return nil
}

func (s *fakeObjectStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func setupTestRouter(t *testing.T) http.Handler {
	t.Helper()
	source := repository.NewFixtureSource()
	dest := &fakeDest{recs: make(map[string]*domain.Subscriber)}
	store := &fakeObjectStore{objects: make(map[string][]byte)}

	ledger := service.NewLedger()
	resolver := service.NewResolver(source, dest, time.Second)
	svc := service.NewMigrationService(ledger, resolver, store, logger.GetDefault(), &service.MigrationConfig{})

	jobHandler := handler.NewJobHandler(svc, nil, 1<<20)
	subscriberHandler := handler.NewSubscriberHandler(source, dest)

	return api.SetupRouter(jobHandler, subscriberHandler, &config.ServerConfig{Mode: "test"})
}

func multipartUpload(t *testing.T, csvData string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if csvData != "" {
		part, err := w.CreateFormFile("file", "subscribers.csv")
		require.NoError(t, err)
		_, err = part.Write([]byte(csvData))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func pollJob(t *testing.T, router http.Handler, id string) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+id, nil)
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var view map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
		switch view["status"] {
		case "COMPLETED", "CANCELLED", "FAILED":
			return view
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", id)
	return nil
}

func TestCreateJobAndPollToCompletion(t *testing.T) {
	router := setupTestRouter(t)

	csvData := "subscriber_id\nSUB-1001\nSUB-1002\nSUB-MISSING\n"
	body, contentType := multipartUpload(t, csvData, map[string]string{"started_by": "ops@example.com"})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var created map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created["job_id"]
	require.NotEmpty(t, id)

	view := pollJob(t, router, id)
	assert.Equal(t, "COMPLETED", view["status"])
	assert.Equal(t, float64(3), view["total"])
	assert.Equal(t, float64(2), view["processed"])
	assert.Equal(t, float64(1), view["failed"])
	assert.Equal(t, float64(100), view["progress_percent"])
	assert.Equal(t, "ops@example.com", view["started_by"])
}

func TestCreateJobMissingFile(t *testing.T) {
	router := setupTestRouter(t)

	body, contentType := multipartUpload(t, "", map[string]string{"started_by": "ops"})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "file is required")
}

func TestCreateJobEmptyFile(t *testing.T) {
	router := setupTestRouter(t)

	body, contentType := multipartUpload(t, "   \n", nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetJobUnknownID(t *testing.T) {
	router := setupTestRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/deadbeef-0000-0000-0000-000000000000", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var view map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "NOT_FOUND", view["status"])
	assert.Equal(t, "deadbeef-0000-0000-0000-000000000000", view["job_id"])
}

func TestCancelJobAlwaysAcknowledged(t *testing.T) {
	router := setupTestRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/no-such-job/cancel", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"acknowledged":true`)
}

func TestGetReportAfterCompletion(t *testing.T) {
	router := setupTestRouter(t)

	body, contentType := multipartUpload(t, "subscriber_id\nSUB-1001\n", nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var created map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created["job_id"]
	pollJob(t, router, id)

	// The report lands just after the terminal status, so poll briefly
	deadline := time.Now().Add(2 * time.Second)
	for {
		rec = httptest.NewRecorder()
		req = httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+id+"/report", nil)
		router.ServeHTTP(rec, req)
		if rec.Code == http.StatusOK || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Identifier,Status,Details")
	assert.Contains(t, rec.Body.String(), "SUB-1001,MIGRATED,")
}

func TestGetReportBeforeRun(t *testing.T) {
	router := setupTestRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/no-such-job/report", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPauseResumeJob(t *testing.T) {
	router := setupTestRouter(t)

	body, contentType := multipartUpload(t, "subscriber_id\nSUB-1001\n", nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var created map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created["job_id"]

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/jobs/"+id+"/pause", nil)
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/jobs/"+id+"/resume", nil)
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	pollJob(t, router, id)
}

func TestGetSubscriberReadThrough(t *testing.T) {
	router := setupTestRouter(t)

	// The fixture record is only in the source until a migration runs
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/subscribers/SUB-1001", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "source", resp["system"])

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/subscribers/SUB-NOPE", nil)
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
