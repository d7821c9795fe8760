package service

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

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadSources_JSONStrings(t *testing.T) {
	path := writeTempFile(t, "feeds.json", `[
		"https://www.youtube.com/feeds/videos.xml?channel_id=UC111",
		"https://www.youtube.com/feeds/videos.xml?channel_id=UC222"
	]`)

	sources, err := NewFeedService().LoadSources(path)

	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "https://www.youtube.com/feeds/videos.xml?channel_id=UC111", sources[0].URL)
}

func TestLoadSources_JSONObjects(t *testing.T) {
	path := writeTempFile(t, "feeds.json", `[
		{"title": "频道甲", "url": "https://www.youtube.com/feeds/videos.xml?channel_id=UC111"},
		{"title": "频道乙", "url": "https://www.youtube.com/feeds/videos.xml?channel_id=UC222"}
	]`)

	sources, err := NewFeedService().LoadSources(path)

	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "频道甲", sources[0].Title)
	assert.Equal(t, "https://www.youtube.com/feeds/videos.xml?channel_id=UC222", sources[1].URL)
}

func TestLoadSources_JSONMixedAndBlank(t *testing.T) {
	path := writeTempFile(t, "feeds.json", `[
		"https://example.com/feed.xml",
		"  ",
		{"url": "https://example.com/other.xml"},
		{"title": "没有地址的条目"}
	]`)

	sources, err := NewFeedService().LoadSources(path)

	require.NoError(t, err)
	// 空白字符串和缺少url的对象应被丢弃
	require.Len(t, sources, 2)
}

func TestLoadSources_InvalidJSON(t *testing.T) {
	path := writeTempFile(t, "feeds.json", `{not valid json`)

	_, err := NewFeedService().LoadSources(path)

	assert.Error(t, err)
}

func TestLoadSources_MissingFile(t *testing.T) {
	_, err := NewFeedService().LoadSources(filepath.Join(t.TempDir(), "nope.json"))

	assert.Error(t, err)
}

func TestLoadSources_OPML(t *testing.T) {
	path := writeTempFile(t, "feeds.opml", `<?xml version="1.0" encoding="UTF-8"?>
<opml version="1.0">
  <head><title>订阅</title></head>
  <body>
    <outline text="科技" title="科技">
      <outline type="rss" text="频道甲" title="频道甲" xmlUrl="https://www.youtube.com/feeds/videos.xml?channel_id=UC111"/>
      <outline type="rss" text="频道乙" title="频道乙" xmlUrl="https://www.youtube.com/feeds/videos.xml?channel_id=UC222"/>
    </outline>
    <outline type="rss" text="频道丙" title="频道丙" xmlUrl="https://www.youtube.com/feeds/videos.xml?channel_id=UC333"/>
  </body>
</opml>`)

	sources, err := NewFeedService().LoadSources(path)

	require.NoError(t, err)
	// 分组内的嵌套outline必须被递归展开
	require.Len(t, sources, 3)
	assert.Equal(t, "频道甲", sources[0].Title)
	assert.Equal(t, "https://www.youtube.com/feeds/videos.xml?channel_id=UC333", sources[2].URL)
}

const testAtomFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns:yt="http://www.youtube.com/xml/schemas/2015"
      xmlns:media="http://search.yahoo.com/mrss/"
      xmlns="http://www.w3.org/2005/Atom">
  <title>Tech Channel</title>
  <entry>
    <id>yt:video:newvideo1</id>
    <yt:videoId>newvideo1</yt:videoId>
    <title>最新视频</title>
    <link rel="alternate" href="https://www.youtube.com/watch?v=newvideo1"/>
    <media:group>
      <media:description>视频描述 &lt;b&gt;带标签&lt;/b&gt;</media:description>
    </media:group>
  </entry>
  <entry>
    <id>yt:video:oldvideo2</id>
    <yt:videoId>oldvideo2</yt:videoId>
    <title>旧视频</title>
    <link rel="alternate" href="https://www.youtube.com/watch?v=oldvideo2"/>
  </entry>
</feed>`

func TestFetchLatest_TakesNewestOnly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(testAtomFeed))
	}))
	defer server.Close()

	items := NewFeedService().FetchLatest(context.Background(), []model.FeedSource{{URL: server.URL}})

	require.Len(t, items, 1, "每个源只应取最新一条")
	assert.Equal(t, "newvideo1", items[0].ID)
	assert.Equal(t, "最新视频", items[0].Title)
	assert.Equal(t, "https://www.youtube.com/watch?v=newvideo1", items[0].URL)
	assert.Equal(t, "Tech Channel", items[0].Channel)
	// 描述中的HTML标签必须被清除
	assert.Equal(t, "视频描述 带标签", items[0].Description)
}

func TestFetchLatest_SourceFailureIsolated(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(testAtomFeed))
	}))
	defer good.Close()

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	items := NewFeedService().FetchLatest(context.Background(), []model.FeedSource{
		{URL: bad.URL},
		{URL: good.URL},
	})

	// 失败的源不应影响其余源
	require.Len(t, items, 1)
	assert.Equal(t, "newvideo1", items[0].ID)
}

func TestFetchLatest_EmptyFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<?xml version="1.0"?><feed xmlns="http://www.w3.org/2005/Atom"><title>空频道</title></feed>`))
	}))
	defer server.Close()

	items := NewFeedService().FetchLatest(context.Background(), []model.FeedSource{{URL: server.URL}})

	assert.Empty(t, items)
}

func TestStripHTMLTags(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"纯文本", "没有标签", "没有标签"},
		{"简单标签", "<p>段落 <b>加粗</b></p>", "段落 加粗"},
		{"空字符串", "", ""},
		{"多余空白", "  多个   空格\n换行  ", "多个 空格 换行"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripHTMLTags(tt.in))
		})
	}
}
