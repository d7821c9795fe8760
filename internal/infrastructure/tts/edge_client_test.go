package tts

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/domain/model"
)

func TestRender_EmptyScriptRejected(t *testing.T) {
	c := NewEdgeClient(model.TtsConfig{})

	err := c.Render(context.Background(), "   \n ", filepath.Join(t.TempDir(), "out.mp3"))

	assert.Error(t, err)
}

func TestRender_MissingCommand(t *testing.T) {
	c := NewEdgeClient(model.TtsConfig{Command: "/nonexistent/edge-tts"})

	err := c.Render(context.Background(), "有内容的口播稿", filepath.Join(t.TempDir(), "out.mp3"))

	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	c := NewEdgeClient(model.TtsConfig{})

	assert.Equal(t, "edge-tts", c.command())
	assert.Equal(t, "en-US-GuyNeural", c.voice())
	assert.Equal(t, "+10%", c.rate())
	assert.Equal(t, "+0Hz", c.pitch())
}

func TestConfiguredValues(t *testing.T) {
	c := NewEdgeClient(model.TtsConfig{
		Command: "/usr/local/bin/edge-tts",
		Voice:   "zh-CN-YunxiNeural",
		Rate:    "+5%",
		Pitch:   "-2Hz",
	})

	assert.Equal(t, "/usr/local/bin/edge-tts", c.command())
	assert.Equal(t, "zh-CN-YunxiNeural", c.voice())
	assert.Equal(t, "+5%", c.rate())
	assert.Equal(t, "-2Hz", c.pitch())
}
