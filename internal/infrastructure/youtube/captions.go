package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/domain/model"
	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/infrastructure/logger"
)

// 字幕接口的默认地址
const defaultTimedtextURL = "https://www.youtube.com/api/timedtext"

// CaptionClient 直接调用字幕接口获取视频字幕，
// 是字幕获取级联中最快、成本最低的一层
type CaptionClient struct {
	config  model.TranscriptConfig
	client  *http.Client
	baseURL string
}

// NewCaptionClient 创建新的字幕接口客户端
func NewCaptionClient(config model.TranscriptConfig) *CaptionClient {
	timeout := 30
	if config.Timeout > 0 {
		timeout = config.Timeout
	}

	return &CaptionClient{
		config: config,
		client: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		},
		baseURL: defaultTimedtextURL,
	}
}

// timedtextResponse 是字幕接口的原始响应
type timedtextResponse struct {
	Events []timedtextEvent `json:"events"`
}

// timedtextEvent 表示一条带时间戳的字幕事件
type timedtextEvent struct {
	Segs []timedtextSegment `json:"segs,omitempty"`
}

// timedtextSegment 表示字幕事件中的一段文本
type timedtextSegment struct {
	UTF8 string `json:"utf8"`
}

// FetchTranscript 获取指定视频的字幕并拼接为纯文本。
// 磁盘上存在Cookie文件时一并转发
func (c *CaptionClient) FetchTranscript(ctx context.Context, videoID string) (string, error) {
	if videoID == "" {
		return "", fmt.Errorf("视频标识不能为空")
	}

	lang := c.config.Language
	if lang == "" {
		lang = "en"
	}

	params := url.Values{}
	params.Set("v", videoID)
	params.Set("lang", lang)
	params.Set("fmt", "json3")

	apiURL := fmt.Sprintf("%s?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", apiURL, nil)
	if err != nil {
		return "", fmt.Errorf("创建字幕请求失败: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	// 存在Cookie文件时转发凭据，降低被识别为机器人的概率
	if cookie := c.loadCookieHeader(); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("字幕请求失败: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// 继续解析
	case http.StatusNotFound:
		return "", fmt.Errorf("视频%s没有%s语言的字幕", videoID, lang)
	case http.StatusForbidden:
		return "", fmt.Errorf("字幕接口拒绝访问，视频可能受地区限制或已禁用字幕")
	case http.StatusTooManyRequests:
		return "", fmt.Errorf("字幕接口限流")
	default:
		return "", fmt.Errorf("字幕接口返回状态码%d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("读取字幕响应失败: %w", err)
	}

	text, err := joinCaptionEvents(body)
	if err != nil {
		return "", fmt.Errorf("解析字幕响应失败: %w", err)
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("字幕内容为空")
	}

	logger.Debug("字幕接口获取成功", "video_id", videoID, "length", len(text))
	return text, nil
}

// joinCaptionEvents 将字幕事件拼接为一段纯文本
func joinCaptionEvents(data []byte) (string, error) {
	var resp timedtextResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", err
	}

	var parts []string
	for _, event := range resp.Events {
		if len(event.Segs) == 0 {
			continue
		}

		var text strings.Builder
		for _, seg := range event.Segs {
			text.WriteString(seg.UTF8)
		}

		if trimmed := strings.TrimSpace(text.String()); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}

	return strings.Join(parts, " "), nil
}

// loadCookieHeader 将Netscape格式的Cookie文件解析为请求头值。
// 文件缺失或无法解析时返回空串
func (c *CaptionClient) loadCookieHeader() string {
	if c.config.CookieFile == "" {
		return ""
	}

	data, err := os.ReadFile(c.config.CookieFile)
	if err != nil {
		return ""
	}

	var pairs []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Netscape格式：domain flag path secure expiry name value
		fields := strings.Split(line, "\t")
		if len(fields) < 7 {
			continue
		}
		pairs = append(pairs, fields[5]+"="+fields[6])
	}

	return strings.Join(pairs, "; ")
}
