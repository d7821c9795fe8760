package database

import (
	"fmt"

	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/domain/model"
	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/infrastructure/logger"
)

// DeliveryRepository 定义投递归档存储库接口
type DeliveryRepository interface {
	// SaveDelivery 保存一条投递归档记录
	SaveDelivery(record model.DeliveryRecord) error
	// DeliveryExists 检查视频是否已有归档记录
	DeliveryExists(videoID string) (bool, error)
	// GetDeliveryByVideoID 根据视频标识获取归档记录
	GetDeliveryByVideoID(videoID string) (*model.DeliveryRecord, error)
}

// SQLiteDeliveryRepository 实现DeliveryRepository接口的SQLite存储库
type SQLiteDeliveryRepository struct {
	db Database
}

// NewSQLiteDeliveryRepository 创建一个新的SQLite投递归档存储库
func NewSQLiteDeliveryRepository(db Database) DeliveryRepository {
	return &SQLiteDeliveryRepository{
		db: db,
	}
}

// SaveDelivery 保存投递归档记录到数据库
func (r *SQLiteDeliveryRepository) SaveDelivery(record model.DeliveryRecord) error {
	logger.Info("保存投递归档", "video_id", record.VideoID, "title", record.Title)

	// 检查记录是否已存在
	exists, err := r.DeliveryExists(record.VideoID)
	if err != nil {
		logger.Error("检查归档记录是否存在失败", "error", err)
		return fmt.Errorf("检查归档记录是否存在失败: %w", err)
	}

	// 如果记录已存在，则不再保存
	if exists {
		logger.Info("归档记录已存在，跳过保存", "video_id", record.VideoID)
		return nil
	}

	// 插入归档记录
	query := `
	INSERT INTO deliveries (video_id, title, channel, post, script_length, delivered_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, record.VideoID, record.Title, record.Channel, record.Post, record.ScriptLength, record.DeliveredAt)
	if err != nil {
		logger.Error("保存归档记录失败", "error", err)
		return fmt.Errorf("保存归档记录失败: %w", err)
	}

	logger.Info("归档记录保存成功", "video_id", record.VideoID)
	return nil
}

// DeliveryExists 检查视频是否已有归档记录
func (r *SQLiteDeliveryRepository) DeliveryExists(videoID string) (bool, error) {
	logger.Debug("检查归档记录是否存在", "video_id", videoID)

	query := "SELECT COUNT(*) FROM deliveries WHERE video_id = ?"
	var count int
	err := r.db.QueryRow(query, videoID).Scan(&count)
	if err != nil {
		logger.Error("查询归档记录失败", "error", err)
		return false, fmt.Errorf("查询归档记录失败: %w", err)
	}

	exists := count > 0
	logger.Debug("归档记录存在检查结果", "video_id", videoID, "exists", exists)
	return exists, nil
}

// GetDeliveryByVideoID 根据视频标识获取归档记录
func (r *SQLiteDeliveryRepository) GetDeliveryByVideoID(videoID string) (*model.DeliveryRecord, error) {
	logger.Debug("根据视频标识获取归档记录", "video_id", videoID)

	query := "SELECT video_id, title, channel, post, script_length, delivered_at FROM deliveries WHERE video_id = ?"
	row := r.db.QueryRow(query, videoID)

	var record model.DeliveryRecord
	err := row.Scan(&record.VideoID, &record.Title, &record.Channel, &record.Post, &record.ScriptLength, &record.DeliveredAt)
	if err != nil {
		logger.Error("获取归档记录失败", "error", err)
		return nil, fmt.Errorf("获取归档记录失败: %w", err)
	}

	return &record, nil
}
