package fillregistry

import (
	"context"
	"sort"
	"sync"
	"time"

	"smartbin/internal/entity"
)

// MemoryStore 进程内最新值存储（单机调试与测试）
type MemoryStore struct {
	mu        sync.RWMutex
	levels    map[string]int
	updatedAt int64
	beginAt   int64
}

// NewMemoryStore 创建
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{levels: make(map[string]int)}
}

func (m *MemoryStore) SetLevel(_ context.Context, class string, level int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels[class] = level
	m.updatedAt = at.UnixMilli()
	return nil
}

func (m *MemoryStore) Levels(_ context.Context) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int, len(m.levels))
	for k, v := range m.levels {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryStore) SetBegin(_ context.Context, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.beginAt = at.UnixMilli()
	return nil
}

func (m *MemoryStore) UpdatedAt(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.updatedAt, nil
}

func (m *MemoryStore) BeginAt(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.beginAt, nil
}

// MemoryHistory 进程内历史记录，未配置 mysql 时使用
type MemoryHistory struct {
	mu     sync.RWMutex
	seq    int64
	levels []entity.LevelLog
	images []entity.ImageRecord
	alerts []entity.AlertRecord
}

// NewMemoryHistory 创建
func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{}
}

func (h *MemoryHistory) AppendLevel(_ context.Context, log *entity.LevelLog) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	log.ID = h.seq
	h.levels = append(h.levels, *log)
	return nil
}

func (h *MemoryHistory) RecentLevels(_ context.Context, limit int) ([]entity.LevelLog, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := append([]entity.LevelLog(nil), h.levels...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].MeasuredAt.After(out[j].MeasuredAt) })
	return truncate(out, limit), nil
}

func (h *MemoryHistory) DeleteLevel(_ context.Context, id int64) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, l := range h.levels {
		if l.ID == id {
			h.levels = append(h.levels[:i], h.levels[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (h *MemoryHistory) AppendImage(_ context.Context, rec *entity.ImageRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	rec.ID = h.seq
	h.images = append(h.images, *rec)
	return nil
}

func (h *MemoryHistory) RecentImages(_ context.Context, limit int) ([]entity.ImageRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := append([]entity.ImageRecord(nil), h.images...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return truncate(out, limit), nil
}

func (h *MemoryHistory) DeleteImage(_ context.Context, storedName string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, r := range h.images {
		if r.StoredName == storedName {
			h.images = append(h.images[:i], h.images[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (h *MemoryHistory) ClassStats(_ context.Context) ([]entity.ClassCount, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	counts := make(map[string]int64)
	var order []string
	for _, r := range h.images {
		if _, ok := counts[r.Class]; !ok {
			order = append(order, r.Class)
		}
		counts[r.Class]++
	}
	out := make([]entity.ClassCount, 0, len(order))
	for _, c := range order {
		out = append(out, entity.ClassCount{Name: c, Value: counts[c]})
	}
	return out, nil
}

// InsertAlert 同一 job 重复写入时忽略
func (h *MemoryHistory) InsertAlert(_ context.Context, rec *entity.AlertRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, a := range h.alerts {
		if a.JobID == rec.JobID {
			return nil
		}
	}
	h.seq++
	rec.ID = h.seq
	h.alerts = append(h.alerts, *rec)
	return nil
}

func (h *MemoryHistory) RecentAlerts(_ context.Context, limit int) ([]entity.AlertRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := append([]entity.AlertRecord(nil), h.alerts...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].RaisedAt.After(out[j].RaisedAt) })
	return truncate(out, limit), nil
}

func truncate[T any](s []T, limit int) []T {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}
