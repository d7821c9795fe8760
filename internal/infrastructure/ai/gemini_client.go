package ai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/domain/model"
	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/infrastructure/logger"
	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/middleware"
)

// ErrAllModelsFailed 表示全部候选模型均尝试失败，
// 调用方应视为本轮无可用内容，而非致命错误
var ErrAllModelsFailed = errors.New("所有候选模型均调用失败")

// DefaultModels 是候选模型主清单，按能力从高到低排列，
// 配额与可用性在各档位之间相互独立
var DefaultModels = []string{
	// 第一梯队：能力最强
	"gemini-2.5-flash",
	"gemini-2.0-flash-exp",
	"gemini-1.5-pro",
	"gemini-1.5-flash",

	// 第二梯队：轻量快速，配额宽松
	"gemini-2.5-flash-lite",
	"gemini-flash-lite-latest",
	"gemini-1.5-flash-8b",

	// 第三梯队：预览版，通常有独立配额
	"gemini-2.5-flash-preview-09-2025",
	"gemini-2.5-flash-lite-preview-09-2025",

	// 第四梯队：开放模型，最后的兜底
	"gemma-3-27b-it",
	"gemma-3-9b-it",
	"gemma-3-4b-it",
	"gemma-3-1b-it",
}

// FailureClass 表示一次模型调用失败的归类结果
type FailureClass int

const (
	// FailureRateLimited 配额耗尽或请求频率过高（429）
	FailureRateLimited FailureClass = iota
	// FailureNotFound 模型不存在或已下线（404）
	FailureNotFound
	// FailureOverloaded 服务端过载（503）
	FailureOverloaded
	// FailureOther 其他失败（安全拦截、请求格式、网络等）
	FailureOther
)

// 音频转写的固定指令，要求逐字转写而非摘要
const transcribePrompt = "Listen to this audio and generate a full transcript of what is being said. Do not summarize, just transcribe."

// GeminiClient 封装生成式后端：按序尝试候选模型的降级生成、
// 音频文件上传与转写、可用模型探测
type GeminiClient struct {
	config  model.GeminiConfig
	client  *genai.Client
	limiter *rate.Limiter
	budget  *middleware.RateLimiter
	metrics *middleware.MetricsCollector

	// sleep可在测试中替换
	sleep func(time.Duration)
}

// NewGeminiClient 创建新的Gemini客户端
func NewGeminiClient(ctx context.Context, config model.GeminiConfig) (*GeminiClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("未配置Gemini API密钥")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(config.APIKey))
	if err != nil {
		return nil, fmt.Errorf("创建Gemini客户端失败: %w", err)
	}

	return &GeminiClient{
		config: config,
		client: client,
		// 请求间隔至少1秒，避免自我触发限流
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		budget:  middleware.NewRateLimiter(int64(config.MaxCallsPerDay), 24*time.Hour),
		sleep:   time.Sleep,
	}, nil
}

// WithMetrics 设置指标收集器
func (c *GeminiClient) WithMetrics(metrics *middleware.MetricsCollector) *GeminiClient {
	c.metrics = metrics
	return c
}

// Close 释放底层连接
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Generate 以文本提示词按序尝试候选模型，返回第一个成功的响应
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	return c.generateWithFallback(ctx, func(ctx context.Context, modelName string) (string, error) {
		return c.generateContent(ctx, modelName, genai.Text(prompt))
	})
}

// attemptFunc 对单个候选模型发起一次生成尝试
type attemptFunc func(ctx context.Context, modelName string) (string, error)

// generateWithFallback 按优先级遍历候选模型：
// 限流则短暂停顿后换下一个，模型不存在立即换下一个，
// 过载则停顿稍长，其余失败直接换下一个；首个成功即返回。
// 全部失败返回ErrAllModelsFailed
func (c *GeminiClient) generateWithFallback(ctx context.Context, attempt attemptFunc) (string, error) {
	for _, modelName := range c.models() {
		if !c.budget.Check() {
			status := c.budget.GetStatus()
			logger.Error("每日模型调用额度已用尽", "used", status.Used, "limit", status.Limit)
			return "", &middleware.RateLimitError{Status: status}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}

		start := time.Now()
		text, err := attempt(ctx, modelName)
		duration := time.Since(start)

		if c.metrics != nil {
			c.metrics.RecordModelCall(duration, err == nil)
		}

		if err == nil {
			logger.Info("模型调用成功", "model", modelName, "duration_ms", duration.Milliseconds(), "response_length", len(text))
			return text, nil
		}

		switch Classify(err) {
		case FailureRateLimited:
			logger.Warn("模型配额受限，切换下一个候选", "model", modelName, "error", err)
			c.sleep(time.Second)
		case FailureNotFound:
			logger.Debug("模型不存在或已下线，跳过", "model", modelName)
		case FailureOverloaded:
			logger.Warn("模型服务过载，切换下一个候选", "model", modelName, "error", err)
			c.sleep(2 * time.Second)
		default:
			logger.Warn("模型调用失败，切换下一个候选", "model", modelName, "error", err)
		}
	}

	logger.Error("全部候选模型均失败，API额度可能已耗尽")
	return "", ErrAllModelsFailed
}

// generateContent 对单个模型发起一次带超时的生成请求
func (c *GeminiClient) generateContent(ctx context.Context, modelName string, parts ...genai.Part) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.requestTimeout())
	defer cancel()

	m := c.client.GenerativeModel(modelName)
	resp, err := m.GenerateContent(reqCtx, parts...)
	if err != nil {
		return "", err
	}

	return extractText(resp)
}

// TranscribeAudio 上传本地音频到后端文件存储，等待处理完成后
// 用降级生成逐字转写。远端文件无论成败都会尽力删除
func (c *GeminiClient) TranscribeAudio(ctx context.Context, audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("打开音频文件失败: %w", err)
	}
	defer f.Close()

	logger.Info("上传音频到后端文件存储", "file", audioPath)
	file, err := c.client.UploadFile(ctx, "", f, &genai.UploadFileOptions{MIMEType: "audio/mp3"})
	if err != nil {
		return "", fmt.Errorf("上传音频失败: %w", err)
	}

	// 无论转写成败都清理远端文件，失败仅记录
	defer func() {
		if err := c.client.DeleteFile(ctx, file.Name); err != nil {
			logger.Warn("删除远端音频文件失败", "name", file.Name, "error", err)
		}
	}()

	// 轮询等待后端处理完成
	for file.State == genai.FileStateProcessing {
		c.sleep(c.pollInterval())
		file, err = c.client.GetFile(ctx, file.Name)
		if err != nil {
			return "", fmt.Errorf("查询音频处理状态失败: %w", err)
		}
	}

	if file.State != genai.FileStateActive {
		return "", fmt.Errorf("音频文件处理失败，状态: %v", file.State)
	}

	return c.generateWithFallback(ctx, func(ctx context.Context, modelName string) (string, error) {
		return c.generateContent(ctx, modelName,
			genai.Text(transcribePrompt),
			genai.FileData{MIMEType: file.MIMEType, URI: file.URI},
		)
	})
}

// ListGenerativeModels 列出当前密钥可见且支持内容生成的模型
func (c *GeminiClient) ListGenerativeModels(ctx context.Context) ([]string, error) {
	var names []string

	iter := c.client.ListModels(ctx)
	for {
		m, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("获取模型列表失败: %w", err)
		}

		for _, method := range m.SupportedGenerationMethods {
			if method == "generateContent" {
				names = append(names, strings.TrimPrefix(m.Name, "models/"))
				break
			}
		}
	}

	return names, nil
}

// TestModel 对单个模型发送极小的探测请求
func (c *GeminiClient) TestModel(ctx context.Context, modelName string) error {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	m := c.client.GenerativeModel(modelName)
	_, err := m.GenerateContent(probeCtx, genai.Text("Hi"))
	return err
}

// Classify 将一次调用失败归类，
// 优先使用HTTP状态码，无法取得时回退到报文关键字
func Classify(err error) FailureClass {
	if err == nil {
		return FailureOther
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case 429:
			return FailureRateLimited
		case 404:
			return FailureNotFound
		case 503:
			return FailureOverloaded
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "quota") || strings.Contains(msg, "resource exhausted"):
		return FailureRateLimited
	case strings.Contains(msg, "404") || strings.Contains(msg, "not found"):
		return FailureNotFound
	case strings.Contains(msg, "503") || strings.Contains(msg, "overloaded") || strings.Contains(msg, "unavailable"):
		return FailureOverloaded
	}

	return FailureOther
}

// extractText 从生成响应中提取首个候选的文本内容
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		break // 只取第一个候选
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("响应不包含文本内容")
	}
	return sb.String(), nil
}

func (c *GeminiClient) models() []string {
	if len(c.config.Models) > 0 {
		return c.config.Models
	}
	return DefaultModels
}

func (c *GeminiClient) requestTimeout() time.Duration {
	if c.config.RequestTimeout > 0 {
		return time.Duration(c.config.RequestTimeout) * time.Second
	}
	return 60 * time.Second
}

func (c *GeminiClient) pollInterval() time.Duration {
	if c.config.PollInterval > 0 {
		return time.Duration(c.config.PollInterval) * time.Second
	}
	return 2 * time.Second
}
