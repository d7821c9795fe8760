package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/infrastructure/logger"
)

// TranscriptTier 是字幕获取级联中的一层，
// 各层签名一致，可独立测试和替换
type TranscriptTier struct {
	// Name 层级名称，用于日志和指标
	Name string
	// Fetch 尝试获取字幕，失败返回错误
	Fetch func(ctx context.Context, videoID string) (string, error)
}

// TranscriptService 定义字幕获取的领域服务接口
type TranscriptService interface {
	// Acquire 按优先级依次尝试各层获取字幕，
	// 返回字幕文本和命中的层级名称；全部失败时文本为空串
	Acquire(ctx context.Context, videoID string) (string, string)
}

// transcriptService 实现TranscriptService接口
type transcriptService struct {
	tiers []TranscriptTier
}

// NewTranscriptService 创建一个新的字幕获取服务实例，
// 层级顺序即尝试顺序
func NewTranscriptService(tiers ...TranscriptTier) TranscriptService {
	return &transcriptService{tiers: tiers}
}

// Acquire 依次尝试各层级。任何一层的失败都被就地捕获记录，
// 不会向外传播，也不会中断对后续层级的尝试
func (s *transcriptService) Acquire(ctx context.Context, videoID string) (string, string) {
	logger.Info("开始获取字幕", "video_id", videoID)

	for _, tier := range s.tiers {
		text, err := s.tryTier(ctx, tier, videoID)
		if err != nil {
			logger.Warn("字幕层级失败，尝试下一层", "video_id", videoID, "tier", tier.Name, "error", err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			logger.Warn("字幕层级返回空内容，尝试下一层", "video_id", videoID, "tier", tier.Name)
			continue
		}

		logger.Info("字幕获取成功", "video_id", videoID, "tier", tier.Name, "length", len(text))
		return text, tier.Name
	}

	logger.Error("全部字幕层级均失败，跳过该视频", "video_id", videoID)
	return "", ""
}

// tryTier 执行单个层级并隔离panic，保证一层的异常不拖垮整条流水线
func (s *transcriptService) tryTier(ctx context.Context, tier TranscriptTier, videoID string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("层级发生panic: %v", r)
		}
	}()

	return tier.Fetch(ctx, videoID)
}
