package telegram

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/domain/model"
	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/infrastructure/logger"
)

const defaultAPIUrl = "https://api.telegram.org"

// Client 负责向Telegram频道投递文本和语音
type Client struct {
	config model.TelegramConfig
	client *http.Client
}

// NewClient 创建新的Telegram客户端
func NewClient(config model.TelegramConfig) *Client {
	timeout := 30
	if config.Timeout > 0 {
		timeout = config.Timeout
	}

	// 设置安全的HTTP客户端配置
	transport := &http.Transport{
		ResponseHeaderTimeout: 30 * time.Second,
		TLSHandshakeTimeout:   15 * time.Second,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
	}

	return &Client{
		config: config,
		client: &http.Client{
			Timeout:   time.Duration(timeout) * time.Second,
			Transport: transport,
		},
	}
}

// Deliver 投递一条完整内容：先发短文，再上传语音附件。
// 语音文件发送成功后从磁盘删除
func (c *Client) Deliver(ctx context.Context, text, audioPath string) error {
	if err := c.sendMessage(ctx, text); err != nil {
		return fmt.Errorf("发送消息失败: %w", err)
	}

	if audioPath != "" {
		if err := c.sendVoice(ctx, audioPath); err != nil {
			return fmt.Errorf("发送语音失败: %w", err)
		}
		if err := os.Remove(audioPath); err != nil {
			logger.Warn("删除语音文件失败", "file", audioPath, "error", err)
		}
	}

	return nil
}

// sendMessage 发送文本消息，优先使用Markdown格式，
// 被400拒绝时降级为纯文本重发一次
func (c *Client) sendMessage(ctx context.Context, text string) error {
	data := url.Values{}
	data.Set("chat_id", c.config.ChatID)
	data.Set("text", text)
	data.Set("parse_mode", "Markdown")
	data.Set("disable_web_page_preview", "false")

	status, body, err := c.postForm(ctx, "sendMessage", data)
	if err != nil {
		return err
	}

	// Markdown解析失败时的格式降级重试
	if status == http.StatusBadRequest {
		logger.Warn("Markdown格式被拒绝，降级为纯文本重发", "response", truncateString(body, 200))
		data.Del("parse_mode")
		status, body, err = c.postForm(ctx, "sendMessage", data)
		if err != nil {
			return err
		}
	}

	if status != http.StatusOK {
		return fmt.Errorf("sendMessage返回状态码%d: %s", status, truncateString(body, 200))
	}

	logger.Info("消息发送成功", "chat_id", c.config.ChatID, "text_length", len(text))
	return nil
}

// sendVoice 以multipart方式上传语音附件
func (c *Client) sendVoice(ctx context.Context, audioPath string) error {
	file, err := os.Open(audioPath)
	if err != nil {
		return fmt.Errorf("打开语音文件失败: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("chat_id", c.config.ChatID); err != nil {
		return fmt.Errorf("构建表单失败: %w", err)
	}

	part, err := writer.CreateFormFile("voice", filepath.Base(audioPath))
	if err != nil {
		return fmt.Errorf("构建表单失败: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("读取语音文件失败: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("构建表单失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint("sendVoice"), &buf)
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sendVoice返回状态码%d: %s", resp.StatusCode, truncateString(string(body), 200))
	}

	logger.Info("语音发送成功", "chat_id", c.config.ChatID, "file", audioPath)
	return nil
}

// postForm 向指定方法发送表单请求，返回状态码和响应体
func (c *Client) postForm(ctx context.Context, method string, data url.Values) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint(method), strings.NewReader(data.Encode()))
	if err != nil {
		return 0, "", fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", fmt.Errorf("读取响应失败: %w", err)
	}

	return resp.StatusCode, string(body), nil
}

// endpoint 拼接Bot API的方法地址
func (c *Client) endpoint(method string) string {
	base := c.config.APIUrl
	if base == "" {
		base = defaultAPIUrl
	}
	return fmt.Sprintf("%s/bot%s/%s", strings.TrimSuffix(base, "/"), c.config.Token, method)
}

// truncateString 截断字符串，用于日志输出预览内容
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
