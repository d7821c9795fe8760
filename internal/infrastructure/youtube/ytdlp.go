package youtube

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/domain/model"
	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/infrastructure/logger"
)

const (
	defaultYtdlpPath    = "yt-dlp"
	defaultYtdlpTimeout = 10 * time.Minute
)

var (
	bracketPattern = regexp.MustCompile(`\[.*?\]`)
	parenPattern   = regexp.MustCompile(`\(.*?\)`)
	tagPattern     = regexp.MustCompile(`<[^>]*>`)
)

// Downloader 通过yt-dlp子进程获取自动字幕或音频轨道，
// 承担字幕获取级联的第二、三层
type Downloader struct {
	config model.TranscriptConfig

	// sleep与randFloat可在测试中替换
	sleep     func(time.Duration)
	randFloat func() float64
}

// NewDownloader 创建新的下载器
func NewDownloader(config model.TranscriptConfig) *Downloader {
	return &Downloader{
		config:    config,
		sleep:     time.Sleep,
		randFloat: rand.Float64,
	}
}

// DownloadSubtitles 下载视频的自动字幕并清洗为纯文本。
// 执行前加入随机延迟，降低请求模式被识别的概率；
// 字幕临时文件无论成败都会被删除
func (d *Downloader) DownloadSubtitles(ctx context.Context, videoID string) (string, error) {
	// 2到5秒的随机延迟
	d.sleep(time.Duration((2 + 3*d.randFloat()) * float64(time.Second)))

	workDir := d.workDir()
	outputBase := filepath.Join(workDir, "transcript_"+videoID+"_"+uuid.NewString())

	args := []string{
		"--skip-download",
		"--write-auto-subs",
		"--sub-langs", d.language(),
		"--output", outputBase,
		"--quiet",
		"--no-check-certificates",
		"--ignore-errors",
		"--extractor-args", "youtube:player_client=android,web",
	}
	args = d.appendCookieArgs(args)
	args = append(args, "https://youtu.be/"+videoID)

	if err := d.run(ctx, args); err != nil {
		return "", err
	}

	// 查找生成的字幕文件
	matches, err := filepath.Glob(outputBase + "*.vtt")
	if err != nil || len(matches) == 0 {
		return "", fmt.Errorf("未找到视频%s的字幕文件", videoID)
	}

	subtitleFile := matches[0]
	// 无论解析是否成功都清理临时文件
	defer func() {
		if err := os.Remove(subtitleFile); err != nil {
			logger.Warn("删除字幕临时文件失败", "file", subtitleFile, "error", err)
		}
	}()

	content, err := os.ReadFile(subtitleFile)
	if err != nil {
		return "", fmt.Errorf("读取字幕文件失败: %w", err)
	}

	text := CleanSubtitleText(string(content))
	if text == "" {
		return "", fmt.Errorf("字幕文件清洗后内容为空")
	}

	logger.Debug("yt-dlp字幕获取成功", "video_id", videoID, "length", len(text))
	return text, nil
}

// DownloadAudio 下载视频的最佳音频轨道并转码为mp3，
// 返回本地文件路径，调用方负责清理
func (d *Downloader) DownloadAudio(ctx context.Context, videoID string) (string, error) {
	workDir := d.workDir()
	outputBase := filepath.Join(workDir, "audio_"+videoID+"_"+uuid.NewString())

	args := []string{
		"--format", "bestaudio/best",
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "64K",
		"--output", outputBase,
		"--quiet",
		"--extractor-args", "youtube:player_client=android,web",
	}
	args = d.appendCookieArgs(args)
	args = append(args, "https://youtu.be/"+videoID)

	if err := d.run(ctx, args); err != nil {
		return "", err
	}

	audioFile := outputBase + ".mp3"
	if _, err := os.Stat(audioFile); err != nil {
		return "", fmt.Errorf("未找到视频%s的音频文件: %w", videoID, err)
	}

	logger.Info("音频下载完成", "video_id", videoID, "file", audioFile)
	return audioFile, nil
}

// run 执行yt-dlp命令并归类常见错误
func (d *Downloader) run(ctx context.Context, args []string) error {
	timeout := defaultYtdlpTimeout
	if d.config.Timeout > 0 {
		timeout = time.Duration(d.config.Timeout) * time.Second
	}
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	path := d.config.YtdlpPath
	if path == "" {
		path = defaultYtdlpPath
	}

	cmd := exec.CommandContext(cmdCtx, path, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if cmdCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("yt-dlp执行超时")
		}

		errMsg := stderr.String()
		if strings.Contains(errMsg, "rate") || strings.Contains(errMsg, "429") {
			return fmt.Errorf("yt-dlp被限流: %s", strings.TrimSpace(errMsg))
		}
		return fmt.Errorf("yt-dlp执行失败: %w: %s", err, strings.TrimSpace(errMsg))
	}

	return nil
}

// appendCookieArgs 在Cookie文件存在时附加凭据参数
func (d *Downloader) appendCookieArgs(args []string) []string {
	if d.config.CookieFile == "" {
		return args
	}
	if _, err := os.Stat(d.config.CookieFile); err != nil {
		return args
	}
	return append(args, "--cookies", d.config.CookieFile)
}

// workDir 返回临时文件目录，保证其存在
func (d *Downloader) workDir() string {
	dir := d.config.WorkDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Warn("创建工作目录失败，改用系统临时目录", "dir", dir, "error", err)
		return os.TempDir()
	}
	return dir
}

// language 返回字幕语言，默认英语
func (d *Downloader) language() string {
	if d.config.Language != "" {
		return d.config.Language
	}
	return "en"
}

// CleanSubtitleText 清洗VTT字幕：去掉头部与时间轴行、
// 样式标签、HTML实体以及方括号和圆括号中的舞台提示
func CleanSubtitleText(content string) string {
	var parts []string
	for _, line := range strings.Split(content, "\n") {
		if strings.Contains(line, "-->") || strings.Contains(line, "WEBVTT") {
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		// 跳过VTT头部的元信息行
		if strings.HasPrefix(line, "Kind:") || strings.HasPrefix(line, "Language:") {
			continue
		}

		clean := tagPattern.ReplaceAllString(line, "")
		clean = strings.ReplaceAll(clean, "&nbsp;", " ")
		clean = bracketPattern.ReplaceAllString(clean, "")
		clean = parenPattern.ReplaceAllString(clean, "")

		if trimmed := strings.TrimSpace(clean); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}

	return strings.Join(parts, " ")
}
