package youtube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/domain/model"
)

func newTestCaptionClient(serverURL string, config model.TranscriptConfig) *CaptionClient {
	c := NewCaptionClient(config)
	c.baseURL = serverURL
	return c
}

func TestFetchTranscript_Success(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"events":[
			{"segs":[{"utf8":"hello "},{"utf8":"everyone"}]},
			{"segs":[{"utf8":"\n"}]},
			{"segs":[{"utf8":"welcome back"}]}
		]}`))
	}))
	defer server.Close()

	client := newTestCaptionClient(server.URL, model.TranscriptConfig{})
	text, err := client.FetchTranscript(context.Background(), "abc123")

	require.NoError(t, err)
	assert.Equal(t, "hello everyone welcome back", text)
	assert.Contains(t, gotQuery, "v=abc123")
	assert.Contains(t, gotQuery, "fmt=json3")
	assert.Contains(t, gotQuery, "lang=en")
}

func TestFetchTranscript_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestCaptionClient(server.URL, model.TranscriptConfig{})
	_, err := client.FetchTranscript(context.Background(), "abc123")

	assert.Error(t, err)
}

func TestFetchTranscript_EmptyEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"events":[]}`))
	}))
	defer server.Close()

	client := newTestCaptionClient(server.URL, model.TranscriptConfig{})
	_, err := client.FetchTranscript(context.Background(), "abc123")

	// 响应有效但没有字幕内容，应视为失败让级联继续降级
	assert.Error(t, err)
}

func TestFetchTranscript_EmptyVideoID(t *testing.T) {
	client := NewCaptionClient(model.TranscriptConfig{})

	_, err := client.FetchTranscript(context.Background(), "")

	assert.Error(t, err)
}

func TestFetchTranscript_CookieForwarded(t *testing.T) {
	cookieFile := filepath.Join(t.TempDir(), "cookies.txt")
	content := "# Netscape HTTP Cookie File\n" +
		".youtube.com\tTRUE\t/\tTRUE\t1999999999\tSESSION\tabc\n" +
		".youtube.com\tTRUE\t/\tTRUE\t1999999999\tPREF\txyz\n"
	require.NoError(t, os.WriteFile(cookieFile, []byte(content), 0644))

	var gotCookie string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		_, _ = w.Write([]byte(`{"events":[{"segs":[{"utf8":"ok"}]}]}`))
	}))
	defer server.Close()

	client := newTestCaptionClient(server.URL, model.TranscriptConfig{CookieFile: cookieFile})
	_, err := client.FetchTranscript(context.Background(), "abc123")

	require.NoError(t, err)
	assert.Equal(t, "SESSION=abc; PREF=xyz", gotCookie)
}

func TestFetchTranscript_ConfiguredLanguage(t *testing.T) {
	var gotLang string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLang = r.URL.Query().Get("lang")
		_, _ = w.Write([]byte(`{"events":[{"segs":[{"utf8":"ok"}]}]}`))
	}))
	defer server.Close()

	client := newTestCaptionClient(server.URL, model.TranscriptConfig{Language: "zh-Hans"})
	_, err := client.FetchTranscript(context.Background(), "abc123")

	require.NoError(t, err)
	assert.Equal(t, "zh-Hans", gotLang)
}
