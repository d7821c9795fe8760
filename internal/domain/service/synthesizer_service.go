package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/domain/model"
	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/infrastructure/logger"
)

const (
	// 响应中必须成对出现的固定分节标记
	markerTelegram = "---TELEGRAM---"
	markerPodcast  = "---PODCAST---"

	// 嵌入提示词的字幕最大长度
	maxTranscriptChars = 50000
)

var (
	emphasisPattern    = regexp.MustCompile(`\*.*?\*`)
	stageDirPattern    = regexp.MustCompile(`\[.*?\]`)
	parentheticPattern = regexp.MustCompile(`\(.*?\)`)
)

// SynthesizerService 定义内容改写的领域服务接口
type SynthesizerService interface {
	// Synthesize 将字幕改写为短文和口播稿，
	// 后端无响应或响应缺少分节标记时返回nil
	Synthesize(ctx context.Context, transcript string, video model.VideoItem) *model.SynthesizedContent
}

// synthesizerService 实现SynthesizerService接口
type synthesizerService struct {
	generator TextGenerator
}

// NewSynthesizerService 创建一个新的内容改写服务实例
func NewSynthesizerService(generator TextGenerator) SynthesizerService {
	return &synthesizerService{generator: generator}
}

// Synthesize 构造提示词调用生成式后端，并解析两段式响应。
// 任何失败都只记录日志并返回nil，不向外传播
func (s *synthesizerService) Synthesize(ctx context.Context, transcript string, video model.VideoItem) *model.SynthesizedContent {
	logger.Info("开始内容改写", "video_id", video.ID, "title", video.Title, "transcript_length", len(transcript))
	defer logger.TimeTrack("Synthesize")()

	prompt := buildPrompt(transcript, video)

	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		logger.Error("内容改写调用失败", "video_id", video.ID, "error", err)
		return nil
	}

	content := parseResponse(text)
	if content == nil {
		logger.Warn("模型响应缺少分节标记，视为无效输出", "video_id", video.ID, "response_preview", truncateString(text, 200))
		return nil
	}

	// 短文末尾追加视频链接
	content.Post = fmt.Sprintf("%s\n\n🔗 %s", content.Post, video.URL)

	logger.Info("内容改写完成", "video_id", video.ID, "post_length", len(content.Post), "script_length", len(content.Script))
	return content
}

// buildPrompt 构造电台主播人设的两段式改写提示词
func buildPrompt(transcript string, video model.VideoItem) string {
	if len(transcript) > maxTranscriptChars {
		transcript = transcript[:maxTranscriptChars]
	}

	var context string
	if video.Description != "" {
		context = fmt.Sprintf("\n    DESCRIPTION: %s\n", truncateString(video.Description, 1000))
	}

	return fmt.Sprintf(`
    You are a high-energy, joyful Radio RJ who loves tech. You are talking to your listeners (friends).

    VIDEO: "%s" by %s
    TRANSCRIPT: %s
%s
    YOUR TASK:
    1. TELEGRAM POST (Short & Punchy):
       - 1 Hook Line (Make me curious).
       - 2 Short Bullet points on the "Why".
       - No filler. Just value.

    2. PODCAST SCRIPT (The Radio Vibe):
       - ENERGY: High, Joyful, Excited. Like a morning radio show host.
       - LANGUAGE: Simple, Easy English. No big words.
       - OPENING: Start INSTANTLY with a high-energy hook. NO "Asterisk", "Music", or "Sound of...". Just your voice.
       - CONTENT: Explain the tech simply. Use a fun analogy.
       - TONE: Use words like "Whoa", "Imagine this", "Super cool".
       - ENDING: "Check the link, it's wild!"
       - LENGTH: STRICTLY under 45 seconds spoken.

    OUTPUT FORMAT:
    %s
    [Your short text]
    %s
    [Your script]
    `, video.Title, video.Channel, transcript, context, markerTelegram, markerPodcast)
}

// parseResponse 解析两段式响应：两个标记必须按序出现，
// 任一缺失即视为无效输出返回nil
func parseResponse(text string) *model.SynthesizedContent {
	idxTelegram := strings.Index(text, markerTelegram)
	idxPodcast := strings.Index(text, markerPodcast)
	if idxTelegram < 0 || idxPodcast < 0 || idxPodcast < idxTelegram {
		return nil
	}

	parts := strings.SplitN(text, markerPodcast, 2)
	post := strings.TrimSpace(strings.Replace(parts[0], markerTelegram, "", 1))
	script := cleanScript(strings.TrimSpace(parts[1]))

	return &model.SynthesizedContent{
		Post:   post,
		Script: script,
	}
}

// cleanScript 去掉口播时读起来突兀的标记：
// 星号强调、方括号舞台提示、圆括号旁白
func cleanScript(script string) string {
	script = emphasisPattern.ReplaceAllString(script, "")
	script = stageDirPattern.ReplaceAllString(script, "")
	script = parentheticPattern.ReplaceAllString(script, "")
	return strings.TrimSpace(script)
}

// truncateString 截断字符串，用于日志输出预览内容
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
