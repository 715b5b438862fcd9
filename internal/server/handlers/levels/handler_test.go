package levels

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartbin/internal/entity"
	"smartbin/internal/fillregistry"
	"smartbin/internal/server/middlewares"
	"smartbin/pkg/logger"
)

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, interface{}) error { return nil }

func newEngine(t *testing.T) *gin.Engine {
	return newEngineWithEvents(t, nil)
}

func newEngineWithEvents(t *testing.T, events EventSource) *gin.Engine {
	return newEngineWith(t, events, fillregistry.NewMemoryHistory())
}

func newEngineWith(t *testing.T, events EventSource, history *fillregistry.MemoryHistory) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	images, err := fillregistry.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	now := time.UnixMilli(1_700_000_000_000)
	svc := fillregistry.NewService(fillregistry.NewMemoryStore(), history, images,
		nopPublisher{}, nil, fillregistry.Options{Now: func() time.Time { return now }}, logger.NewNop())
	h := NewLevelsHandler(svc, events, logger.NewNop())

	r := gin.New()
	r.Use(middlewares.ErrorHandler(logger.NewNop()))
	r.POST("/update", h.Update)
	r.GET("/data", h.Data)
	r.POST("/begin", h.Begin)
	r.POST("/upload", h.Upload)
	r.POST("/alert", h.Alert)
	r.GET("/api/logs", h.ImageLogs)
	r.POST("/api/logs/delete", h.DeleteImageLog)
	r.GET("/api/stats", h.Stats)
	r.GET("/api/alerts", h.AlertLogs)
	r.GET("/api/levels/logs", h.LevelLogs)
	r.POST("/api/levels/delete", h.DeleteLevelLog)
	r.POST("/api/levels/reset", h.ResetLevels)
	r.GET("/api/events", h.Events)
	return r
}

func postJSON(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestUpdateValidation(t *testing.T) {
	r := newEngine(t)

	assert.Equal(t, http.StatusOK, postJSON(r, "/update", `{"class":"Plastic","level":55}`).Code)
	assert.Equal(t, http.StatusOK, postJSON(r, "/update", `{"class":"metal","level":-1}`).Code)

	w := postJSON(r, "/update", `{"class":"metal"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Validation failed")

	assert.Equal(t, http.StatusBadRequest, postJSON(r, "/update", `{"class":"metal","level":101}`).Code)
	assert.Equal(t, http.StatusBadRequest, postJSON(r, "/update", `{"class":"paper","level":5}`).Code)
}

func TestDataAndBegin(t *testing.T) {
	r := newEngine(t)
	w := postJSON(r, "/begin", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"beginTime":1700000000000}`, w.Body.String())

	require.Equal(t, http.StatusOK, postJSON(r, "/update", `{"class":"glass","level":20}`).Code)
	var data map[string]int64
	require.NoError(t, json.Unmarshal(get(r, "/data").Body.Bytes(), &data))
	assert.Equal(t, int64(20), data["glass"])
	assert.NotContains(t, data, "plastic")
	assert.Equal(t, int64(1_700_000_000_000), data["lastBegin"])
}

func TestUploadAndImageLogs(t *testing.T) {
	r := newEngine(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "20250501_100000_result.jpg")
	require.NoError(t, err)
	_, _ = part.Write([]byte("jpeg"))
	require.NoError(t, mw.WriteField("class", "plastic"))
	require.NoError(t, mw.WriteField("angle", "90"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "id-20250501_100000_result_1700000000000.jpg")

	var logs []entity.ImageRecord
	require.NoError(t, json.Unmarshal(get(r, "/api/logs").Body.Bytes(), &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, "plastic", logs[0].Class)
	assert.Equal(t, 90, logs[0].Angle)
	assert.Equal(t, "jetson", logs[0].DeviceID)

	assert.JSONEq(t, `[{"name":"plastic","value":1}]`, get(r, "/api/stats").Body.String())

	assert.Equal(t, http.StatusOK, postJSON(r, "/api/logs/delete", `{"filename":"`+logs[0].StoredName+`"}`).Code)
	assert.Equal(t, http.StatusNotFound, postJSON(r, "/api/logs/delete", `{"filename":"`+logs[0].StoredName+`"}`).Code)
}

func TestUploadMissingFields(t *testing.T) {
	r := newEngine(t)
	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("class=plastic"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLevelLogsDeleteAndReset(t *testing.T) {
	r := newEngine(t)
	require.Equal(t, http.StatusOK, postJSON(r, "/update", `{"class":"metal","level":90}`).Code)

	var logs []entity.LevelLog
	require.NoError(t, json.Unmarshal(get(r, "/api/levels/logs?limit=10").Body.Bytes(), &logs))
	require.Len(t, logs, 1)

	assert.Equal(t, http.StatusNotFound, postJSON(r, "/api/levels/delete", `{"id":999}`).Code)
	assert.Equal(t, http.StatusBadRequest, postJSON(r, "/api/levels/delete", `{}`).Code)
	assert.Equal(t, http.StatusOK, postJSON(r, "/api/levels/delete", `{"id":1}`).Code)

	require.Equal(t, http.StatusOK, postJSON(r, "/api/levels/reset", "").Code)
	require.NoError(t, json.Unmarshal(get(r, "/api/levels/logs").Body.Bytes(), &logs))
	assert.Len(t, logs, 4)
	for _, l := range logs {
		assert.Equal(t, 0, l.Level)
		assert.Equal(t, "admin", l.DeviceID)
	}
}

func TestAlert(t *testing.T) {
	r := newEngine(t)
	assert.Equal(t, http.StatusOK, postJSON(r, "/alert", `{"type":"metal","message":"jammed"}`).Code)
	assert.Equal(t, http.StatusBadRequest, postJSON(r, "/alert", `{"type":"metal"}`).Code)
}

func TestAlertLogs(t *testing.T) {
	history := fillregistry.NewMemoryHistory()
	ctx := context.Background()
	base := time.UnixMilli(1_700_000_000_000)
	require.NoError(t, history.InsertAlert(ctx, &entity.AlertRecord{JobID: "j1", Class: "metal", Level: 85, RaisedAt: base}))
	require.NoError(t, history.InsertAlert(ctx, &entity.AlertRecord{JobID: "j2", Class: "glass", Level: 92, RaisedAt: base.Add(time.Minute)}))
	// 重复投递
	require.NoError(t, history.InsertAlert(ctx, &entity.AlertRecord{JobID: "j1", Class: "metal", Level: 85, RaisedAt: base}))
	r := newEngineWith(t, nil, history)

	var alerts []entity.AlertRecord
	w := get(r, "/api/alerts")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &alerts))
	require.Len(t, alerts, 2)
	assert.Equal(t, "j2", alerts[0].JobID)
	assert.Equal(t, "j1", alerts[1].JobID)

	require.NoError(t, json.Unmarshal(get(r, "/api/alerts?limit=1").Body.Bytes(), &alerts))
	assert.Len(t, alerts, 1)
}

type fakeEvents struct {
	events   []entity.Event
	channels []string
}

func (f *fakeEvents) Listen(_ context.Context, channels ...string) (<-chan entity.Event, error) {
	f.channels = channels
	ch := make(chan entity.Event, len(f.events))
	for _, ev := range f.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func TestEventsStreamsChannels(t *testing.T) {
	src := &fakeEvents{events: []entity.Event{
		{Channel: "level_update", Payload: `{"class":"metal","level":90}`},
		{Channel: "admin_alert", Payload: `{"type":"metal"}`},
		{Channel: "alert_log", Payload: `{"type":"glass","level":92}`},
	}}
	w := get(newEngineWithEvents(t, src), "/api/events")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, fillregistry.Channels, src.channels)
	body := w.Body.String()
	assert.Contains(t, body, "event:level_update\ndata:{\"class\":\"metal\",\"level\":90}\n\n")
	assert.Contains(t, body, "event:admin_alert\n")
	assert.Contains(t, body, "event:alert_log\ndata:{\"type\":\"glass\",\"level\":92}\n\n")
}

func TestEventsDisabled(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, get(newEngine(t), "/api/events").Code)
}
