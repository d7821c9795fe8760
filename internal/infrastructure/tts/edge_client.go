package tts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/domain/model"
	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/infrastructure/logger"
)

const (
	defaultCommand = "edge-tts"
	defaultVoice   = "en-US-GuyNeural"
	defaultRate    = "+10%"
	defaultPitch   = "+0Hz"
	defaultTimeout = 2 * time.Minute
)

// EdgeClient 通过edge-tts子进程将口播稿合成为语音文件
type EdgeClient struct {
	config model.TtsConfig
}

// NewEdgeClient 创建新的语音合成客户端
func NewEdgeClient(config model.TtsConfig) *EdgeClient {
	return &EdgeClient{config: config}
}

// Render 将口播稿合成为outputPath指向的音频文件
func (c *EdgeClient) Render(ctx context.Context, script, outputPath string) error {
	if strings.TrimSpace(script) == "" {
		return fmt.Errorf("口播稿为空，无法合成语音")
	}

	timeout := defaultTimeout
	if c.config.Timeout > 0 {
		timeout = time.Duration(c.config.Timeout) * time.Second
	}
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{
		"--voice", c.voice(),
		"--rate=" + c.rate(),
		"--pitch=" + c.pitch(),
		"--text", script,
		"--write-media", outputPath,
	}

	cmd := exec.CommandContext(cmdCtx, c.command(), args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logger.Debug("开始语音合成", "voice", c.voice(), "script_length", len(script), "output", outputPath)

	if err := cmd.Run(); err != nil {
		if cmdCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("语音合成超时")
		}
		return fmt.Errorf("语音合成失败: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	// 确认文件确实生成
	info, err := os.Stat(outputPath)
	if err != nil {
		return fmt.Errorf("语音文件未生成: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("语音文件为空")
	}

	logger.Info("语音合成完成", "output", outputPath, "size_bytes", info.Size())
	return nil
}

func (c *EdgeClient) command() string {
	if c.config.Command != "" {
		return c.config.Command
	}
	return defaultCommand
}

func (c *EdgeClient) voice() string {
	if c.config.Voice != "" {
		return c.config.Voice
	}
	return defaultVoice
}

func (c *EdgeClient) rate() string {
	if c.config.Rate != "" {
		return c.config.Rate
	}
	return defaultRate
}

func (c *EdgeClient) pitch() string {
	if c.config.Pitch != "" {
		return c.config.Pitch
	}
	return defaultPitch
}
