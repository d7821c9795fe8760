package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/domain/model"
)

// Validator 提供输入验证功能
type Validator struct{}

// NewValidator 创建新的验证器实例
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateFeedsFile 验证订阅列表文件路径安全性
func (v *Validator) ValidateFeedsFile(filePath string) error {
	// 检查文件路径是否为空
	if strings.TrimSpace(filePath) == "" {
		return errors.New("文件路径不能为空")
	}

	// 使用filepath.Clean清理路径
	cleanPath := filepath.Clean(filePath)

	// 检查路径是否包含目录遍历尝试
	if strings.Contains(cleanPath, "..") || strings.Contains(cleanPath, "~") {
		return fmt.Errorf("路径包含非法字符: %s", cleanPath)
	}

	// 检查文件扩展名
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".opml" {
		return fmt.Errorf("订阅列表只支持.json或.opml格式: %s", cleanPath)
	}

	// 验证文件是否存在且可读
	info, err := os.Stat(cleanPath)
	if err != nil {
		return fmt.Errorf("文件访问失败: %w", err)
	}

	if info.IsDir() {
		return fmt.Errorf("路径指向目录而非文件: %s", cleanPath)
	}

	// 验证文件大小合理性（最大10MB限制）
	if info.Size() > 10*1024*1024 {
		return fmt.Errorf("文件过大(>10MB): %s", cleanPath)
	}

	return nil
}

// ValidateFeedURL 验证订阅源URL合法性
func (v *Validator) ValidateFeedURL(url string) error {
	if strings.TrimSpace(url) == "" {
		return errors.New("URL不能为空")
	}

	// 限制协议类型
	lowerURL := strings.ToLower(url)
	if !strings.HasPrefix(lowerURL, "http://") && !strings.HasPrefix(lowerURL, "https://") {
		return fmt.Errorf("只允许HTTP/HTTPS协议: %s", url)
	}

	// 黑名单检查 - 禁止访问内部网络
	blacklistDomains := []string{
		"localhost", "127.0.0.1", "0.0.0.0", "::1",
		"192.168.", "10.0.", "172.16.", "169.254.",
	}

	for _, banned := range blacklistDomains {
		if strings.Contains(lowerURL, banned) {
			return fmt.Errorf("禁止访问内部网络地址: %s", banned)
		}
	}

	return nil
}

// GetConfigValue 安全获取环境变量或默认配置值
func (v *Validator) GetConfigValue(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetGeminiAPIKey 安全获取Gemini API密钥，环境变量优先
func (v *Validator) GetGeminiAPIKey(config *model.GeminiConfig) (string, error) {
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		return apiKey, nil
	}

	if config == nil || config.APIKey == "" {
		return "", errors.New("未找到Gemini API密钥配置，请设置环境变量: export GEMINI_API_KEY=your-key-here")
	}

	// 检查是否为占位符
	if strings.Contains(config.APIKey, "****") {
		return "", errors.New("检测到占位符API密钥，请使用环境变量设置真实密钥")
	}

	return config.APIKey, nil
}

// GetTelegramCredentials 安全获取Telegram令牌与会话ID，环境变量优先
func (v *Validator) GetTelegramCredentials(config *model.TelegramConfig) (string, string, error) {
	token := os.Getenv("TELEGRAM_TOKEN")
	if token == "" && config != nil {
		token = config.Token
	}
	if token == "" {
		return "", "", errors.New("未找到Telegram Bot令牌，请设置环境变量: export TELEGRAM_TOKEN=your-token-here")
	}

	chatID := os.Getenv("TELEGRAM_CHAT_ID")
	if chatID == "" && config != nil {
		chatID = config.ChatID
	}
	if chatID == "" {
		return "", "", errors.New("未找到Telegram会话ID，请设置环境变量: export TELEGRAM_CHAT_ID=your-chat-id")
	}

	return token, chatID, nil
}
