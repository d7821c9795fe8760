package service

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/domain/model"
)

func TestValidateFeedsFile(t *testing.T) {
	v := NewValidator()
	valid := writeTempFile(t, "feeds.json", `[]`)

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"合法JSON文件", valid, false},
		{"空路径", "", true},
		{"目录遍历", "../../etc/feeds.json", true},
		{"不支持的扩展名", writeTempFile(t, "feeds.txt", "x"), true},
		{"不存在的文件", filepath.Join(t.TempDir(), "nope.json"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateFeedsFile(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateFeedURL(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateFeedURL("https://www.youtube.com/feeds/videos.xml?channel_id=UC1"))
	assert.Error(t, v.ValidateFeedURL(""))
	assert.Error(t, v.ValidateFeedURL("ftp://example.com/feed"))
	assert.Error(t, v.ValidateFeedURL("http://localhost:8080/feed"))
	assert.Error(t, v.ValidateFeedURL("http://192.168.1.1/feed"))
}

func TestGetGeminiAPIKey(t *testing.T) {
	v := NewValidator()

	t.Run("环境变量优先", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "env-key")
		key, err := v.GetGeminiAPIKey(&model.GeminiConfig{APIKey: "config-key"})
		require.NoError(t, err)
		assert.Equal(t, "env-key", key)
	})

	t.Run("回退到配置", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "")
		key, err := v.GetGeminiAPIKey(&model.GeminiConfig{APIKey: "config-key"})
		require.NoError(t, err)
		assert.Equal(t, "config-key", key)
	})

	t.Run("均未配置", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "")
		_, err := v.GetGeminiAPIKey(&model.GeminiConfig{})
		assert.Error(t, err)
	})

	t.Run("占位符密钥被拒绝", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "")
		_, err := v.GetGeminiAPIKey(&model.GeminiConfig{APIKey: "sk-****1234"})
		assert.Error(t, err)
	})
}

func TestGetTelegramCredentials(t *testing.T) {
	v := NewValidator()

	t.Run("环境变量优先", func(t *testing.T) {
		t.Setenv("TELEGRAM_TOKEN", "env-token")
		t.Setenv("TELEGRAM_CHAT_ID", "env-chat")
		token, chatID, err := v.GetTelegramCredentials(&model.TelegramConfig{Token: "cfg", ChatID: "cfg"})
		require.NoError(t, err)
		assert.Equal(t, "env-token", token)
		assert.Equal(t, "env-chat", chatID)
	})

	t.Run("缺少令牌", func(t *testing.T) {
		t.Setenv("TELEGRAM_TOKEN", "")
		t.Setenv("TELEGRAM_CHAT_ID", "")
		_, _, err := v.GetTelegramCredentials(&model.TelegramConfig{ChatID: "-100123"})
		assert.Error(t, err)
	})
}
