package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/domain/model"
	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/domain/service"
	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/infrastructure/database"
	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/infrastructure/logger"
	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/middleware"
)

// DedupLedger 定义已投递记录的最小能力集
type DedupLedger interface {
	Contains(id string) bool
	Add(id string)
	Len() int
	Save() error
}

// PipelineService 定义轮询流水线的应用服务接口
type PipelineService interface {
	// Run 执行一次完整的轮询处理：
	// 加载订阅源、拉取最新视频、逐条改写并投递
	Run(ctx context.Context, params model.ProcessParams) error
}

// pipelineService 实现PipelineService接口
type pipelineService struct {
	feedService       service.FeedService
	transcriptService service.TranscriptService
	synthesizer       service.SynthesizerService
	renderer          service.AudioRenderer
	sink              service.DeliverySink
	ledger            DedupLedger
	metrics           *middleware.MetricsCollector

	// 数据库相关
	db           database.Database
	deliveryRepo database.DeliveryRepository

	// 可注入的停顿函数，便于测试
	sleep func(d time.Duration)
}

// NewPipelineService 创建一个新的流水线服务实例
func NewPipelineService(
	feedService service.FeedService,
	transcriptService service.TranscriptService,
	synthesizer service.SynthesizerService,
	renderer service.AudioRenderer,
	sink service.DeliverySink,
	ledger DedupLedger,
	metrics *middleware.MetricsCollector,
) PipelineService {
	return &pipelineService{
		feedService:       feedService,
		transcriptService: transcriptService,
		synthesizer:       synthesizer,
		renderer:          renderer,
		sink:              sink,
		ledger:            ledger,
		metrics:           metrics,
		sleep:             time.Sleep,
	}
}

// Run 执行一次轮询处理
// 该函数是整个处理流程的入口点，包括加载订阅源、去重过滤、
// 字幕获取、内容改写、语音合成和投递
func (s *pipelineService) Run(ctx context.Context, params model.ProcessParams) error {
	logger.Info("开始轮询处理", "feeds_file", params.FeedsFile, "history_file", params.HistoryFile)
	defer logger.TimeTrack("Run")()

	// 记录初始内存使用情况
	logger.LogMemStatsOnce()

	// 初始化数据库（如果启用）
	if params.DatabaseConfig.Enabled {
		if err := s.initDatabase(params.DatabaseConfig); err != nil {
			logger.Error("初始化数据库失败", "error", err)
			return fmt.Errorf("初始化数据库失败: %w", err)
		}
		// 确保在函数结束时关闭数据库连接
		defer func() {
			if s.db != nil {
				s.db.Close()
			}
		}()
	}

	// 1. 加载订阅源列表。
	// 加载失败时降级为空列表，本轮正常结束
	sources, err := s.feedService.LoadSources(params.FeedsFile)
	if err != nil {
		logger.Error("加载订阅列表失败，本轮跳过", "error", err)
		sources = nil
	}
	if s.metrics != nil {
		s.metrics.RecordSources(int64(len(sources)))
	}
	if len(sources) == 0 {
		logger.Info("没有可用的订阅源，本轮结束")
		return nil
	}

	// 2. 拉取每个源的最新一条视频
	items := s.feedService.FetchLatest(ctx, sources)

	// 3. 去重过滤
	var fresh []model.VideoItem
	for _, item := range items {
		if s.ledger.Contains(item.ID) {
			logger.Debug("视频已投递过，跳过", "video_id", item.ID, "title", item.Title)
			continue
		}
		fresh = append(fresh, item)
	}
	logger.Info("去重过滤完成", "total", len(items), "new", len(fresh))

	if len(fresh) == 0 {
		logger.Info("没有新视频，本轮结束")
		return nil
	}

	// 4. 逐条顺序处理。单条视频的失败只记录日志，
	// 不影响其余视频
	for _, item := range fresh {
		select {
		case <-ctx.Done():
			logger.Warn("收到取消信号，中止本轮处理", "remaining", len(fresh))
			return ctx.Err()
		default:
		}

		if s.metrics != nil {
			s.metrics.RecordNewVideo()
		}

		if s.processVideo(ctx, item, params) {
			// 成功投递后固定停顿，避免对下游接口造成突发压力
			if params.PauseSeconds > 0 {
				s.sleep(time.Duration(params.PauseSeconds) * time.Second)
			}
		} else if s.metrics != nil {
			s.metrics.RecordSkipped()
		}
	}

	// 5. 输出本轮指标
	if s.metrics != nil {
		middleware.LogMetrics(s.metrics)
	}

	logger.Info("轮询处理完成", "ledger_size", s.ledger.Len())
	return nil
}

// processVideo 处理单条视频，返回是否成功投递。
// 任一环节失败都立即放弃该条目，不做部分投递，
// 也不写入已投递记录，等待下一轮重试
func (s *pipelineService) processVideo(ctx context.Context, item model.VideoItem, params model.ProcessParams) bool {
	logger.Info("开始处理视频", "video_id", item.ID, "title", item.Title, "channel", item.Channel)

	// 获取字幕
	transcript, tier := s.transcriptService.Acquire(ctx, item.ID)
	if transcript == "" {
		logger.Warn("无法获取字幕，放弃该视频", "video_id", item.ID)
		return false
	}
	if s.metrics != nil {
		s.metrics.RecordTranscript(tier)
	}

	// 内容改写
	content := s.synthesizer.Synthesize(ctx, transcript, item)
	if content == nil {
		logger.Warn("内容改写失败，放弃该视频", "video_id", item.ID)
		return false
	}
	if s.metrics != nil {
		s.metrics.RecordSynthesized()
	}

	// 语音合成
	audioPath := filepath.Join(params.TranscriptConfig.WorkDir, fmt.Sprintf("voice_%s.mp3", item.ID))
	if err := s.renderer.Render(ctx, content.Script, audioPath); err != nil {
		logger.Error("语音合成失败，放弃该视频", "video_id", item.ID, "error", err)
		// 清理可能产生的不完整文件
		if removeErr := os.Remove(audioPath); removeErr != nil && !os.IsNotExist(removeErr) {
			logger.Warn("清理音频文件失败", "path", audioPath, "error", removeErr)
		}
		return false
	}

	// 投递
	if err := s.sink.Deliver(ctx, content.Post, audioPath); err != nil {
		logger.Error("投递失败，放弃该视频", "video_id", item.ID, "error", err)
		return false
	}
	if s.metrics != nil {
		s.metrics.RecordDelivered()
	}

	// 投递成功后写入已投递记录并立即落盘，
	// 保证进程中途退出也不会重复投递
	s.ledger.Add(item.ID)
	if err := s.ledger.Save(); err != nil {
		logger.Error("写入已投递记录失败", "video_id", item.ID, "error", err)
		// 投递已完成，不回滚流程
	}

	// 保存归档记录到数据库（如果启用）
	if params.DatabaseConfig.Enabled && s.deliveryRepo != nil {
		record := model.DeliveryRecord{
			VideoID:      item.ID,
			Title:        item.Title,
			Channel:      item.Channel,
			Post:         content.Post,
			ScriptLength: len(content.Script),
			DeliveredAt:  time.Now().Format("2006-01-02 15:04:05"),
		}
		if err := s.deliveryRepo.SaveDelivery(record); err != nil {
			logger.Error("保存归档记录失败", "video_id", item.ID, "error", err)
			// 继续处理，不中断流程
		}
	}

	logger.Info("视频处理完成", "video_id", item.ID, "tier", tier, "post_length", len(content.Post))
	return true
}

// initDatabase 初始化数据库
func (s *pipelineService) initDatabase(config model.DatabaseConfig) error {
	logger.Info("初始化数据库", "enabled", config.Enabled, "file_path", config.FilePath)

	if !config.Enabled {
		logger.Info("数据库功能未启用，跳过初始化")
		return nil
	}

	// 创建数据库实例
	s.db = database.NewSQLiteDatabase(config.FilePath)

	// 初始化数据库
	if err := s.db.Init(); err != nil {
		logger.Error("初始化数据库失败", "error", err)
		return fmt.Errorf("初始化数据库失败: %w", err)
	}

	// 创建归档存储库
	s.deliveryRepo = database.NewSQLiteDeliveryRepository(s.db)
	logger.Info("数据库和归档存储库初始化成功")
	return nil
}
