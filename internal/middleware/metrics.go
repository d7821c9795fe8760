package middleware

import (
	"fmt"
	"sync"
	"time"

	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/infrastructure/logger"
)

// MetricsCollector 收集一次轮询处理的各阶段指标
type MetricsCollector struct {
	mu sync.RWMutex

	startTime time.Time

	// 模型调用统计
	modelCalls    int64
	modelFailures int64
	modelDurations []time.Duration

	// 流水线统计
	sources         int64
	newVideos       int64
	transcriptsByTier map[string]int64
	synthesized     int64
	delivered       int64
	skipped         int64
}

// NewMetricsCollector 创建新的指标收集器
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		startTime:         time.Now(),
		modelDurations:    make([]time.Duration, 0, 100),
		transcriptsByTier: make(map[string]int64),
	}
}

// RecordModelCall 记录一次模型调用
func (m *MetricsCollector) RecordModelCall(duration time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.modelCalls++
	if !success {
		m.modelFailures++
	}

	m.modelDurations = append(m.modelDurations, duration)
	if len(m.modelDurations) > 1000 {
		m.modelDurations = m.modelDurations[1:]
	}
}

// RecordSources 记录本次轮询的订阅源数量
func (m *MetricsCollector) RecordSources(count int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sources += count
}

// RecordNewVideo 记录一条通过去重过滤的新视频
func (m *MetricsCollector) RecordNewVideo() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.newVideos++
}

// RecordTranscript 记录一次字幕获取成功及其命中的层级
func (m *MetricsCollector) RecordTranscript(tier string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.transcriptsByTier[tier]++
}

// RecordSynthesized 记录一次内容改写成功
func (m *MetricsCollector) RecordSynthesized() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.synthesized++
}

// RecordDelivered 记录一次投递成功
func (m *MetricsCollector) RecordDelivered() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.delivered++
}

// RecordSkipped 记录一条中途放弃的视频
func (m *MetricsCollector) RecordSkipped() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.skipped++
}

// Report 运行时报告
type Report struct {
	StartTime       time.Time
	Uptime          time.Duration
	ModelCalls      int64
	ModelFailures   int64
	ModelSuccessRate float64
	AverageLatency  int64
	Sources         int64
	NewVideos       int64
	Transcripts     map[string]int64
	Synthesized     int64
	Delivered       int64
	Skipped         int64
}

// GetReport 获取运行报告
func (m *MetricsCollector) GetReport() Report {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tiers := make(map[string]int64, len(m.transcriptsByTier))
	for k, v := range m.transcriptsByTier {
		tiers[k] = v
	}

	return Report{
		StartTime:        m.startTime,
		Uptime:           time.Since(m.startTime),
		ModelCalls:       m.modelCalls,
		ModelFailures:    m.modelFailures,
		ModelSuccessRate: m.calculateSuccessRate(),
		AverageLatency:   m.getAverageDuration().Milliseconds(),
		Sources:          m.sources,
		NewVideos:        m.newVideos,
		Transcripts:      tiers,
		Synthesized:      m.synthesized,
		Delivered:        m.delivered,
		Skipped:          m.skipped,
	}
}

// getAverageDuration 获取平均模型响应时间
func (m *MetricsCollector) getAverageDuration() time.Duration {
	if len(m.modelDurations) == 0 {
		return 0
	}

	var total time.Duration
	for _, d := range m.modelDurations {
		total += d
	}
	return total / time.Duration(len(m.modelDurations))
}

// calculateSuccessRate 计算模型调用成功率
func (m *MetricsCollector) calculateSuccessRate() float64 {
	if m.modelCalls == 0 {
		return 100.0
	}
	return float64(m.modelCalls-m.modelFailures) / float64(m.modelCalls) * 100
}

// LogMetrics 将本轮指标写入日志
func LogMetrics(metrics *MetricsCollector) {
	report := metrics.GetReport()
	logger.Info("本轮运行指标",
		"uptime", report.Uptime,
		"sources", report.Sources,
		"new_videos", report.NewVideos,
		"transcripts_by_tier", report.Transcripts,
		"synthesized", report.Synthesized,
		"delivered", report.Delivered,
		"skipped", report.Skipped,
		"model_calls", report.ModelCalls,
		"model_success_rate", fmt.Sprintf("%.2f%%", report.ModelSuccessRate),
		"model_avg_latency", fmt.Sprintf("%dms", report.AverageLatency),
	)
}
