package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/domain/model"
)

func writeTestAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voice.mp3")
	require.NoError(t, os.WriteFile(path, []byte("fake mp3 bytes"), 0644))
	return path
}

func TestDeliver_SendsMessageThenVoice(t *testing.T) {
	var methods []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		methods = append(methods, parts[len(parts)-1])
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	audioPath := writeTestAudio(t)
	client := NewClient(model.TelegramConfig{
		Token:  "test-token",
		ChatID: "-100123",
		APIUrl: server.URL,
	})

	err := client.Deliver(context.Background(), "短文内容", audioPath)

	require.NoError(t, err)
	assert.Equal(t, []string{"sendMessage", "sendVoice"}, methods)

	// 语音文件投递成功后应从磁盘删除
	_, statErr := os.Stat(audioPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSendMessage_MarkdownDowngrade(t *testing.T) {
	var parseModes []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		mode := r.Form.Get("parse_mode")
		parseModes = append(parseModes, mode)

		// 第一次带Markdown的请求被400拒绝
		if mode == "Markdown" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"ok":false,"description":"can't parse entities"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient(model.TelegramConfig{
		Token:  "test-token",
		ChatID: "-100123",
		APIUrl: server.URL,
	})

	err := client.Deliver(context.Background(), "含有*不闭合标记的文本", "")

	require.NoError(t, err)
	// 先尝试Markdown，被拒后降级为纯文本重发一次
	assert.Equal(t, []string{"Markdown", ""}, parseModes)
}

func TestSendMessage_NonRecoverableError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Unauthorized"}`))
	}))
	defer server.Close()

	client := NewClient(model.TelegramConfig{
		Token:  "bad-token",
		ChatID: "-100123",
		APIUrl: server.URL,
	})

	err := client.Deliver(context.Background(), "短文", "")

	assert.Error(t, err)
}

func TestSendVoice_MultipartFields(t *testing.T) {
	var gotChatID, gotFilename string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "sendVoice") {
			require.NoError(t, r.ParseMultipartForm(1<<20))
			gotChatID = r.FormValue("chat_id")
			if _, header, err := r.FormFile("voice"); err == nil {
				gotFilename = header.Filename
			}
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	audioPath := writeTestAudio(t)
	client := NewClient(model.TelegramConfig{
		Token:  "test-token",
		ChatID: "-100123",
		APIUrl: server.URL,
	})

	err := client.Deliver(context.Background(), "短文", audioPath)

	require.NoError(t, err)
	assert.Equal(t, "-100123", gotChatID)
	assert.Equal(t, "voice.mp3", gotFilename)
}

func TestDeliver_VoiceFailureKeepsFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "sendVoice") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	audioPath := writeTestAudio(t)
	client := NewClient(model.TelegramConfig{
		Token:  "test-token",
		ChatID: "-100123",
		APIUrl: server.URL,
	})

	err := client.Deliver(context.Background(), "短文", audioPath)

	require.Error(t, err)
	// 投递失败时语音文件保留在磁盘上
	_, statErr := os.Stat(audioPath)
	assert.NoError(t, statErr)
}

func TestEndpoint(t *testing.T) {
	client := NewClient(model.TelegramConfig{Token: "abc"})

	assert.Equal(t, "https://api.telegram.org/botabc/sendMessage", client.endpoint("sendMessage"))
}
