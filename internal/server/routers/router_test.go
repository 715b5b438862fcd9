package routers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartbin/internal/binclass"
	"smartbin/internal/fillregistry"
	"smartbin/internal/registry"
	"smartbin/internal/server/handlers/levels"
	"smartbin/pkg/logger"
)

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, interface{}) error { return nil }

func newRegistryServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	images, err := fillregistry.NewLocalStorage(dir)
	require.NoError(t, err)

	svc := fillregistry.NewService(fillregistry.NewMemoryStore(), fillregistry.NewMemoryHistory(), images,
		nopPublisher{}, nil, fillregistry.Options{Threshold: 80}, logger.NewNop())
	r := SetupRegistryRoutes(levels.NewLevelsHandler(svc, nil, logger.NewNop()), dir, logger.NewNop())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, dir
}

func TestRegistryRoundTripThroughClient(t *testing.T) {
	srv, _ := newRegistryServer(t)
	ctx := context.Background()
	c := registry.NewClient(srv.URL, time.Second)

	require.NoError(t, c.Report(ctx, registry.LevelReport{Class: "plastic", Level: 42, DeviceID: "rpi"}))
	require.NoError(t, c.Report(ctx, registry.LevelReport{Class: "glass", Level: -1, DeviceID: "rpi"}))
	require.NoError(t, c.Begin(ctx))

	level, err := c.Level(ctx, binclass.Plastic)
	require.NoError(t, err)
	assert.Equal(t, 42, level)

	entries, err := c.Levels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []registry.LevelEntry{{Type: "plastic", Level: 42}, {Type: "glass", Level: -1}}, entries)

	snap, err := c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(42), snap["plastic"])
	assert.Positive(t, snap["lastBegin"])
}

func TestRegistryRejectsUnknownClass(t *testing.T) {
	srv, _ := newRegistryServer(t)
	err := registry.NewClient(srv.URL, time.Second).Report(context.Background(), registry.LevelReport{Class: "paper", Level: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=400")
}

func TestRegistryUploadServesImage(t *testing.T) {
	srv, dir := newRegistryServer(t)
	img := filepath.Join(t.TempDir(), "20250501_100000_result.jpg")
	require.NoError(t, os.WriteFile(img, []byte("jpeg"), 0o644))

	err := registry.NewClient(srv.URL, time.Second).Upload(context.Background(), img,
		registry.UploadMeta{Class: binclass.Metal, Angle: 180, DeviceID: "jetson"})
	require.NoError(t, err)

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)

	resp, err := http.Get(srv.URL + "/images/" + files[0].Name())
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	srv, _ := newRegistryServer(t)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
