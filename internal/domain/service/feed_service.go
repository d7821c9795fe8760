package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gilliek/go-opml/opml"
	"github.com/mmcdole/gofeed"

	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/domain/model"
	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/infrastructure/logger"
)

// FeedService 定义订阅源处理的领域服务接口
type FeedService interface {
	// LoadSources 从订阅列表文件加载订阅源，
	// 支持JSON数组（字符串或带url字段的对象）和OPML两种格式
	LoadSources(feedsFile string) ([]model.FeedSource, error)

	// FetchLatest 拉取每个订阅源的最新一条视频
	FetchLatest(ctx context.Context, sources []model.FeedSource) []model.VideoItem
}

// feedService 实现FeedService接口
type feedService struct{}

// NewFeedService 创建一个新的订阅源服务实例
func NewFeedService() FeedService {
	return &feedService{}
}

// LoadSources 根据文件扩展名选择解析方式
func (s *feedService) LoadSources(feedsFile string) ([]model.FeedSource, error) {
	logger.Info("开始加载订阅列表", "file", feedsFile)

	if strings.EqualFold(filepath.Ext(feedsFile), ".opml") {
		return s.loadFromOpml(feedsFile)
	}
	return s.loadFromJSON(feedsFile)
}

// loadFromOpml 解析OPML文件并返回订阅源列表
func (s *feedService) loadFromOpml(feedsFile string) ([]model.FeedSource, error) {
	doc, err := opml.NewOPMLFromFile(feedsFile)
	if err != nil {
		logger.Error("解析OPML文件失败", "file", feedsFile, "error", err)
		return nil, fmt.Errorf("解析OPML文件失败: %w", err)
	}

	var sources []model.FeedSource
	for _, outline := range doc.Outlines() {
		// 递归处理所有outline
		sources = append(sources, extractSources(outline)...)
	}

	logger.Info("OPML文件解析完成", "file", feedsFile, "sources_count", len(sources))
	return sources, nil
}

// extractSources 递归提取outline中的订阅源
func extractSources(outline opml.Outline) []model.FeedSource {
	var sources []model.FeedSource

	// 如果当前outline有xmlUrl属性，则它是一个订阅源
	if outline.XMLURL != "" {
		sources = append(sources, model.FeedSource{
			Title: outline.Title,
			URL:   outline.XMLURL,
		})
	}

	// 递归处理子outline
	for _, child := range outline.Outlines {
		sources = append(sources, extractSources(child)...)
	}

	return sources
}

// loadFromJSON 解析JSON订阅列表，
// 兼容纯字符串数组和带url字段的对象数组两种写法
func (s *feedService) loadFromJSON(feedsFile string) ([]model.FeedSource, error) {
	data, err := os.ReadFile(feedsFile)
	if err != nil {
		logger.Error("读取订阅列表失败", "file", feedsFile, "error", err)
		return nil, fmt.Errorf("读取订阅列表失败: %w", err)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		logger.Error("解析订阅列表失败", "file", feedsFile, "error", err)
		return nil, fmt.Errorf("解析订阅列表失败: %w", err)
	}

	var sources []model.FeedSource
	for _, entry := range entries {
		var asString string
		if err := json.Unmarshal(entry, &asString); err == nil {
			if trimmed := strings.TrimSpace(asString); trimmed != "" {
				sources = append(sources, model.FeedSource{URL: trimmed})
			}
			continue
		}

		var asObject struct {
			Title string `json:"title"`
			URL   string `json:"url"`
		}
		if err := json.Unmarshal(entry, &asObject); err == nil && strings.TrimSpace(asObject.URL) != "" {
			sources = append(sources, model.FeedSource{
				Title: asObject.Title,
				URL:   strings.TrimSpace(asObject.URL),
			})
		}
	}

	logger.Info("订阅列表加载完成", "file", feedsFile, "sources_count", len(sources))
	return sources, nil
}

// FetchLatest 依次拉取每个订阅源，只取最新一条以节省后端调用。
// 单个源的失败只记录日志，不影响其余源
func (s *feedService) FetchLatest(ctx context.Context, sources []model.FeedSource) []model.VideoItem {
	logger.Info("开始拉取订阅源", "sources_count", len(sources))
	defer logger.TimeTrack("FetchLatest")()

	fp := gofeed.NewParser()
	fp.Client = &http.Client{
		Timeout: 15 * time.Second,
	}

	var items []model.VideoItem
	for _, source := range sources {
		feed, err := fp.ParseURLWithContext(source.URL, ctx)
		if err != nil {
			logger.Error("拉取订阅源失败", "url", source.URL, "error", err)
			continue
		}
		if feed == nil || len(feed.Items) == 0 {
			logger.Warn("订阅源没有条目", "url", source.URL)
			continue
		}

		// 只看最新一条
		entry := feed.Items[0]

		id := extractVideoID(entry)
		if id == "" {
			logger.Warn("条目缺少视频标识，跳过", "url", source.URL, "title", entry.Title)
			continue
		}

		channel := feed.Title
		if channel == "" {
			channel = source.Title
		}

		items = append(items, model.VideoItem{
			ID:          id,
			Title:       entry.Title,
			URL:         entry.Link,
			Channel:     channel,
			Description: stripHTMLTags(extractDescription(entry)),
		})
	}

	logger.Info("订阅源拉取完成", "items_count", len(items))
	return items
}

// extractVideoID 从条目中提取视频标识：
// 优先读取yt:videoId扩展，退化为从GUID中剥离前缀
func extractVideoID(item *gofeed.Item) string {
	if yt, ok := item.Extensions["yt"]; ok {
		if ids, ok := yt["videoId"]; ok && len(ids) > 0 && ids[0].Value != "" {
			return ids[0].Value
		}
	}

	if strings.HasPrefix(item.GUID, "yt:video:") {
		return strings.TrimPrefix(item.GUID, "yt:video:")
	}

	return ""
}

// extractDescription 提取条目描述：
// 优先使用media:group中的描述，其次是条目自身的描述
func extractDescription(item *gofeed.Item) string {
	if media, ok := item.Extensions["media"]; ok {
		if groups, ok := media["group"]; ok && len(groups) > 0 {
			if descs, ok := groups[0].Children["description"]; ok && len(descs) > 0 {
				return descs[0].Value
			}
		}
	}

	return item.Description
}

// stripHTMLTags 去除HTML标签，只保留纯文本
func stripHTMLTags(html string) string {
	// 如果内容为空，直接返回
	if html == "" {
		return ""
	}

	// 使用goquery解析HTML
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		logger.Warn("解析HTML失败，返回原始内容", "error", err)
		return html
	}

	// 获取文本内容，去除HTML标签
	text := doc.Text()

	// 清理文本（去除多余的空白字符）
	text = strings.TrimSpace(text)
	// 将连续的空白字符替换为单个空格
	text = strings.Join(strings.Fields(text), " ")

	return text
}
