package mysql

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"smartbin/internal/entity"
	"smartbin/internal/fillregistry"
)

// historyStore registry 和告警 Worker 共同依赖的历史存储能力
type historyStore interface {
	fillregistry.History
	InsertAlert(ctx context.Context, rec *entity.AlertRecord) error
}

func newSQLiteDAO(t *testing.T) historyStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "history.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	dao := NewHistoryDAO(db)
	require.NoError(t, dao.AutoMigrate(context.Background()))
	t.Cleanup(func() { _ = dao.Close() })
	return dao
}

var stores = []struct {
	name string
	open func(t *testing.T) historyStore
}{
	{"memory", func(*testing.T) historyStore { return fillregistry.NewMemoryHistory() }},
	{"gorm", newSQLiteDAO},
}

var base = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

func TestHistoryLevels(t *testing.T) {
	for _, tc := range stores {
		t.Run(tc.name, func(t *testing.T) {
			h := tc.open(t)
			ctx := context.Background()

			var ids []int64
			for i, level := range []int{10, 20, 30} {
				log := &entity.LevelLog{DeviceID: "rpi", Class: "metal", Level: level, MeasuredAt: base.Add(time.Duration(i) * time.Minute)}
				require.NoError(t, h.AppendLevel(ctx, log))
				assert.NotZero(t, log.ID)
				ids = append(ids, log.ID)
			}

			logs, err := h.RecentLevels(ctx, 2)
			require.NoError(t, err)
			require.Len(t, logs, 2)
			assert.Equal(t, 30, logs[0].Level)
			assert.Equal(t, 20, logs[1].Level)

			ok, err := h.DeleteLevel(ctx, ids[2])
			require.NoError(t, err)
			assert.True(t, ok)
			ok, err = h.DeleteLevel(ctx, ids[2])
			require.NoError(t, err)
			assert.False(t, ok)

			logs, err = h.RecentLevels(ctx, 0)
			require.NoError(t, err)
			assert.Len(t, logs, 2)
		})
	}
}

func TestHistoryImagesAndStats(t *testing.T) {
	for _, tc := range stores {
		t.Run(tc.name, func(t *testing.T) {
			h := tc.open(t)
			ctx := context.Background()

			for i, class := range []string{"plastic", "glass", "plastic"} {
				rec := &entity.ImageRecord{
					OriginalName: "a.jpg",
					StoredName:   "id-a_" + string(rune('0'+i)) + ".jpg",
					Location:     "/images/a.jpg",
					Class:        class,
					Angle:        90,
					DeviceID:     "jetson",
					Extra:        datatypes.JSON(`{"size":4}`),
					CreatedAt:    base.Add(time.Duration(i) * time.Second),
				}
				require.NoError(t, h.AppendImage(ctx, rec))
			}

			stats, err := h.ClassStats(ctx)
			require.NoError(t, err)
			assert.ElementsMatch(t, []entity.ClassCount{{Name: "plastic", Value: 2}, {Name: "glass", Value: 1}}, stats)

			recs, err := h.RecentImages(ctx, 10)
			require.NoError(t, err)
			require.Len(t, recs, 3)
			assert.Equal(t, "id-a_2.jpg", recs[0].StoredName)
			assert.JSONEq(t, `{"size":4}`, string(recs[0].Extra))

			ok, err := h.DeleteImage(ctx, "id-a_1.jpg")
			require.NoError(t, err)
			assert.True(t, ok)
			ok, err = h.DeleteImage(ctx, "id-a_1.jpg")
			require.NoError(t, err)
			assert.False(t, ok)

			stats, err = h.ClassStats(ctx)
			require.NoError(t, err)
			assert.Equal(t, []entity.ClassCount{{Name: "plastic", Value: 2}}, stats)
		})
	}
}

func TestHistoryAlertsIgnoreRedelivery(t *testing.T) {
	for _, tc := range stores {
		t.Run(tc.name, func(t *testing.T) {
			h := tc.open(t)
			ctx := context.Background()

			alert := func(jobID string, level int, at time.Time) *entity.AlertRecord {
				return &entity.AlertRecord{
					JobID:     jobID,
					Class:     "metal",
					Level:     level,
					DeviceID:  "rpi",
					Message:   "metal bin is full",
					RaisedAt:  at,
					CreatedAt: at,
				}
			}
			require.NoError(t, h.InsertAlert(ctx, alert("job-1", 85, base)))
			require.NoError(t, h.InsertAlert(ctx, alert("job-2", 95, base.Add(time.Minute))))
			// lmstfy 重新投递同一 job
			require.NoError(t, h.InsertAlert(ctx, alert("job-1", 85, base)))

			recs, err := h.RecentAlerts(ctx, 10)
			require.NoError(t, err)
			require.Len(t, recs, 2)
			assert.Equal(t, "job-2", recs[0].JobID)
			assert.Equal(t, "job-1", recs[1].JobID)
			assert.Equal(t, 85, recs[1].Level)

			recs, err = h.RecentAlerts(ctx, 1)
			require.NoError(t, err)
			assert.Len(t, recs, 1)
		})
	}
}
