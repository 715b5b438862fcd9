package mysql

import (
	"context"
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"smartbin/internal/entity"
)

// Open 建立数据库连接
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// HistoryDAO 测量、图片、告警记录数据访问对象
type HistoryDAO struct {
	db *gorm.DB
}

// NewHistoryDAO 创建 HistoryDAO 实例
func NewHistoryDAO(db *gorm.DB) *HistoryDAO {
	return &HistoryDAO{db: db}
}

// AutoMigrate 建表
func (dao *HistoryDAO) AutoMigrate(ctx context.Context) error {
	return dao.db.WithContext(ctx).AutoMigrate(&entity.LevelLog{}, &entity.ImageRecord{}, &entity.AlertRecord{})
}

// AppendLevel 追加测量记录
func (dao *HistoryDAO) AppendLevel(ctx context.Context, log *entity.LevelLog) error {
	if err := dao.db.WithContext(ctx).Create(log).Error; err != nil {
		return fmt.Errorf("failed to insert level log: %w", err)
	}
	return nil
}

// RecentLevels 最近的测量记录，按时间倒序
func (dao *HistoryDAO) RecentLevels(ctx context.Context, limit int) ([]entity.LevelLog, error) {
	var logs []entity.LevelLog
	result := limited(dao.db.WithContext(ctx), limit).Order("measured_at DESC").Find(&logs)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list level logs: %w", result.Error)
	}
	return logs, nil
}

// DeleteLevel 删除单条测量记录，返回是否存在
func (dao *HistoryDAO) DeleteLevel(ctx context.Context, id int64) (bool, error) {
	result := dao.db.WithContext(ctx).Delete(&entity.LevelLog{}, id)
	if result.Error != nil {
		return false, fmt.Errorf("failed to delete level log: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// AppendImage 追加图片记录
func (dao *HistoryDAO) AppendImage(ctx context.Context, rec *entity.ImageRecord) error {
	if err := dao.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to insert image record: %w", err)
	}
	return nil
}

// RecentImages 最近的图片记录，按时间倒序
func (dao *HistoryDAO) RecentImages(ctx context.Context, limit int) ([]entity.ImageRecord, error) {
	var recs []entity.ImageRecord
	result := limited(dao.db.WithContext(ctx), limit).Order("created_at DESC").Find(&recs)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list image records: %w", result.Error)
	}
	return recs, nil
}

// DeleteImage 按存储名删除图片记录
func (dao *HistoryDAO) DeleteImage(ctx context.Context, storedName string) (bool, error) {
	result := dao.db.WithContext(ctx).Where("stored_name = ?", storedName).Delete(&entity.ImageRecord{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to delete image record: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ClassStats 各分类的图片数
func (dao *HistoryDAO) ClassStats(ctx context.Context) ([]entity.ClassCount, error) {
	var rows []entity.ClassCount
	result := dao.db.WithContext(ctx).
		Model(&entity.ImageRecord{}).
		Select("class AS name, COUNT(*) AS value").
		Group("class").
		Scan(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to aggregate image stats: %w", result.Error)
	}
	return rows, nil
}

// InsertAlert 写入告警记录，同一 job 重复投递时忽略
func (dao *HistoryDAO) InsertAlert(ctx context.Context, rec *entity.AlertRecord) error {
	result := dao.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "job_id"}}, DoNothing: true}).
		Create(rec)
	if result.Error != nil {
		return fmt.Errorf("failed to insert alert: %w", result.Error)
	}
	return nil
}

// RecentAlerts 最近的告警记录，按告警时间倒序
func (dao *HistoryDAO) RecentAlerts(ctx context.Context, limit int) ([]entity.AlertRecord, error) {
	var recs []entity.AlertRecord
	result := limited(dao.db.WithContext(ctx), limit).Order("raised_at DESC").Find(&recs)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", result.Error)
	}
	return recs, nil
}

// limited limit<=0 时不限制条数
func limited(db *gorm.DB, limit int) *gorm.DB {
	if limit > 0 {
		return db.Limit(limit)
	}
	return db
}

// Close 关闭数据库连接
func (dao *HistoryDAO) Close() error {
	sqlDB, err := dao.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
