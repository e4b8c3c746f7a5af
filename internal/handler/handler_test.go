package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stopped-vehicle-detector-go/internal/longterm"
	"stopped-vehicle-detector-go/internal/model"
	"stopped-vehicle-detector-go/internal/repository"
	"stopped-vehicle-detector-go/internal/service"
	"stopped-vehicle-detector-go/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDetections struct {
	ingested    []models.Detection
	imageReq    service.ImageIngestRequest
	searchQuery service.SearchQuery
	err         error
	detectorErr error
}

func (s *stubDetections) Ingest(_ context.Context, dets []models.Detection) ([]models.Detection, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.ingested = dets
	return dets, nil
}

func (s *stubDetections) IngestImage(_ context.Context, req service.ImageIngestRequest) (*service.ImageIngestResult, error) {
	s.imageReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &service.ImageIngestResult{ImageWidth: 640, ImageHeight: 480, RawObjects: 1, Detections: []models.Detection{}}, nil
}

func (s *stubDetections) Search(_ context.Context, q service.SearchQuery) ([]models.Detection, error) {
	s.searchQuery = q
	if s.err != nil {
		return nil, s.err
	}
	return []models.Detection{{ID: "d1"}}, nil
}

func (s *stubDetections) CheckDetector(context.Context) (*models.HealthResponse, error) {
	if s.detectorErr != nil {
		return nil, s.detectorErr
	}
	return &models.HealthResponse{Status: "healthy", ModelLoaded: true}, nil
}

type stubAnalysis struct {
	areaQuery service.AreaQuery
	analyze   service.AnalyzeRequest
	status    model.StoppedVehicleStatus
	err       error
}

func (s *stubAnalysis) AnalyzeArea(_ context.Context, q service.AreaQuery) (*service.AnalysisResult, error) {
	s.areaQuery = q
	if s.err != nil {
		return nil, s.err
	}
	return &service.AnalysisResult{RunID: "run-1", Query: q, Report: &longterm.Report{}}, nil
}

func (s *stubAnalysis) AnalyzeDetections(req service.AnalyzeRequest) (*longterm.Report, error) {
	s.analyze = req
	if s.err != nil {
		return nil, s.err
	}
	return &longterm.Report{TotalDetectionsAnalyzed: len(req.Detections)}, nil
}

func (s *stubAnalysis) VehicleHistory(_ context.Context, id string) (*service.VehicleHistory, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &service.VehicleHistory{TrackKey: "car:1.0000:2.0000", Detection: models.Detection{ID: id}}, nil
}

func (s *stubAnalysis) AreaSummary(_ context.Context, q service.AreaQuery) (*service.AreaSummary, error) {
	s.areaQuery = q
	if s.err != nil {
		return nil, s.err
	}
	return &service.AreaSummary{Query: q, TotalDetections: 3}, nil
}

func (s *stubAnalysis) GetRun(_ context.Context, id string) (*service.RunResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &service.RunResponse{AnalysisRunRecord: &model.AnalysisRunRecord{ID: id}}, nil
}

func (s *stubAnalysis) ListRuns(_ context.Context, page, size int) (*service.ListRunsResponse, error) {
	return &service.ListRunsResponse{Page: page, Size: size}, s.err
}

func (s *stubAnalysis) ListStoppedVehicles(_ context.Context, page, size int, status model.StoppedVehicleStatus) (*service.ListStoppedVehiclesResponse, error) {
	s.status = status
	if s.err != nil {
		return nil, s.err
	}
	return &service.ListStoppedVehiclesResponse{Page: page, Size: size}, nil
}

func (s *stubAnalysis) UpdateStoppedVehicleStatus(_ context.Context, key string, status model.StoppedVehicleStatus, notes string) (*model.StoppedVehicleRecord, error) {
	s.status = status
	if s.err != nil {
		return nil, s.err
	}
	return &model.StoppedVehicleRecord{TrackKey: key, Status: status, Notes: notes}, nil
}

type testServer struct {
	router     *gin.Engine
	detections *stubDetections
	analysis   *stubAnalysis
	dbErr      error
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	ts := &testServer{detections: &stubDetections{}, analysis: &stubAnalysis{}}
	ts.router = NewRouter(
		NewDetectionHandler(ts.detections, logger),
		NewAnalysisHandler(ts.analysis, logger),
		NewHealthHandler(func() error { return ts.dbErr }, ts.detections, logger),
	)
	return ts
}

func (ts *testServer) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestRoot(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "running", decode(t, w)["status"])
}

func TestCors_Preflight(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodOptions, "/api/v1/detections", nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestIngestDetections(t *testing.T) {
	ts := newTestServer(t)

	body := `{"detections":[{"latitude":37.5,"longitude":127,"confidence":0.9,"vehicle_type":"car","timestamp":"2026-03-01T00:00:00Z"}]}`
	w := ts.do(http.MethodPost, "/api/v1/detections", strings.NewReader(body), "application/json")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["saved"])
	require.Len(t, ts.detections.ingested, 1)
	assert.Equal(t, models.VehicleCar, ts.detections.ingested[0].VehicleClass)
}

func TestIngestDetections_BadRequests(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/api/v1/detections", strings.NewReader(`{`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodPost, "/api/v1/detections", strings.NewReader(`{"detections":[]}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	ts.detections.err = &longterm.ValidationError{Index: 0, Field: "latitude", Reason: "out of range"}
	body := `{"detections":[{"latitude":137.5,"longitude":127,"confidence":0.9,"vehicle_type":"car","timestamp":"2026-03-01T00:00:00Z"}]}`
	w = ts.do(http.MethodPost, "/api/v1/detections", strings.NewReader(body), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "latitude")
}

func TestIngestDetections_InternalError(t *testing.T) {
	ts := newTestServer(t)
	ts.detections.err = errors.New("db down")

	body := `{"detections":[{"latitude":37.5,"longitude":127,"confidence":0.9,"vehicle_type":"car","timestamp":"2026-03-01T00:00:00Z"}]}`
	w := ts.do(http.MethodPost, "/api/v1/detections", strings.NewReader(body), "application/json")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db down")
}

func TestIngestImage(t *testing.T) {
	ts := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("lat", "37.5"))
	require.NoError(t, mw.WriteField("lng", "127.0"))
	require.NoError(t, mw.WriteField("captured_at", "2026-03-01T12:00:00Z"))
	fw, err := mw.CreateFormFile("image", "tile.png")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("png"))
	require.NoError(t, mw.Close())

	w := ts.do(http.MethodPost, "/api/v1/detections/image", &buf, mw.FormDataContentType())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	req := ts.detections.imageReq
	assert.Equal(t, "tile.png", req.Filename)
	assert.Equal(t, []byte("png"), req.Image)
	assert.Equal(t, models.Coordinates{Lat: 37.5, Lon: 127.0}, req.Center)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), req.CapturedAt)
}

func TestIngestImage_MissingFile(t *testing.T) {
	ts := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("lat", "37.5"))
	require.NoError(t, mw.WriteField("lng", "127.0"))
	require.NoError(t, mw.Close())

	w := ts.do(http.MethodPost, "/api/v1/detections/image", &buf, mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchDetections(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/api/v1/detections/search?lat=37.5&lng=127&radius=0.02&type=bus&time_range=7d", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["total_found"])

	q := ts.detections.searchQuery
	assert.Equal(t, 0.02, q.RadiusDeg)
	assert.Equal(t, models.VehicleBus, q.VehicleClass)
	assert.Equal(t, "7d", q.TimeRange)

	w = ts.do(http.MethodGet, "/api/v1/detections/search?lat=abc&lng=127", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	ts.detections.err = fmt.Errorf("%w: time_range must be one of 24h, 7d, 30d", service.ErrInvalidQuery)
	w = ts.do(http.MethodGet, "/api/v1/detections/search?lat=37.5&lng=127&time_range=1y", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLongTermStopped(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/api/v1/long-term-stopped?lat=37.5&lng=127", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "run-1", decode(t, w)["run_id"])
	assert.Equal(t, 0.01, ts.analysis.areaQuery.RadiusDeg)
	assert.Equal(t, 7, ts.analysis.areaQuery.DaysBack)

	w = ts.do(http.MethodGet, "/api/v1/long-term-stopped?lat=37.5&lng=127&days_back=3&radius=0.05", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, ts.analysis.areaQuery.DaysBack)
	assert.Equal(t, 0.05, ts.analysis.areaQuery.RadiusDeg)

	w = ts.do(http.MethodGet, "/api/v1/long-term-stopped?lat=37.5&lng=127&days_back=week", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodGet, "/api/v1/long-term-stopped?lng=127", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVehicleHistory_NotFound(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/api/v1/vehicle-history/abc", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "car:1.0000:2.0000", decode(t, w)["track_key"])

	ts.analysis.err = fmt.Errorf("detection with id abc: %w", repository.ErrNotFound)
	w = ts.do(http.MethodGet, "/api/v1/vehicle-history/abc", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAreaSummary(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/api/v1/area-summary?lat=37.5&lng=127&region=gangnam", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), decode(t, w)["total_detections"])
	assert.Equal(t, "gangnam", ts.analysis.areaQuery.Region)
}

func TestAnalyze(t *testing.T) {
	ts := newTestServer(t)

	body := `{"now":"2026-03-02T06:00:00Z","detections":[
		{"latitude":37.5,"longitude":127,"confidence":0.9,"vehicle_type":"car","timestamp":"2026-03-01T00:00:00Z"},
		{"latitude":37.5,"longitude":127,"confidence":0.9,"vehicle_type":"car","timestamp":"2026-03-02T06:00:00Z"}],
		"config":{"stop_threshold_hours":12,"movement_threshold_meters":50,"cluster_radius_meters":100,"min_stop_duration_hours":6}}`
	w := ts.do(http.MethodPost, "/api/v1/analyze", strings.NewReader(body), "application/json")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(2), decode(t, w)["total_vehicles_analyzed"])
	require.NotNil(t, ts.analysis.analyze.Config)
	assert.Equal(t, 12.0, ts.analysis.analyze.Config.StopThresholdHours)

	ts.analysis.err = fmt.Errorf("%w: cluster radius", longterm.ErrInvalidConfig)
	w = ts.do(http.MethodPost, "/api/v1/analyze", strings.NewReader(body), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Без опорного времени запрос отклоняется
	ts.analysis.err = longterm.ErrMissingReferenceTime
	w = ts.do(http.MethodPost, "/api/v1/analyze", strings.NewReader(`{"detections":[]}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, ts.analysis.analyze.Now.IsZero())
}

func TestRuns(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/api/v1/runs?page=2&size=5", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	assert.Equal(t, float64(2), out["page"])
	assert.Equal(t, float64(5), out["size"])

	w = ts.do(http.MethodGet, "/api/v1/runs/run-9", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "run-9", decode(t, w)["id"])
}

func TestStoppedVehicles(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/api/v1/stopped-vehicles?status=INVESTIGATING", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.StatusInvestigating, ts.analysis.status)

	w = ts.do(http.MethodPatch, "/api/v1/stopped-vehicles/car:37.5000:127.0000/status",
		strings.NewReader(`{"status":"RESOLVED","notes":"towed"}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	assert.Equal(t, "car:37.5000:127.0000", out["track_key"])
	assert.Equal(t, "RESOLVED", out["status"])

	w = ts.do(http.MethodPatch, "/api/v1/stopped-vehicles/x/status", strings.NewReader(`{}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/api/v1/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])

	ts.detections.detectorErr = errors.New("connection refused")
	w = ts.do(http.MethodGet, "/api/v1/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "degraded", decode(t, w)["status"])

	ts.dbErr = errors.New("no connection")
	w = ts.do(http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unhealthy", decode(t, w)["status"])
}
