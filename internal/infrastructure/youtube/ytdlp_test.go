package youtube

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/domain/model"
)

func TestCleanSubtitleText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "完整VTT片段",
			in: `WEBVTT
Kind: captions
Language: en

00:00:01.000 --> 00:00:04.000
hello everyone

00:00:04.000 --> 00:00:07.000
welcome to the <c>channel</c>`,
			want: "hello everyone welcome to the channel",
		},
		{
			name: "舞台提示被清除",
			in:   "[Music] hello (applause) world",
			want: "hello  world",
		},
		{
			name: "HTML实体",
			in:   "hello&nbsp;world",
			want: "hello world",
		},
		{
			name: "时间戳样式标签",
			in:   "he<00:00:01.500><c>llo</c> there",
			want: "hello there",
		},
		{
			name: "空内容",
			in:   "",
			want: "",
		},
		{
			name: "只有头部和时间轴",
			in: `WEBVTT

00:00:01.000 --> 00:00:04.000`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanSubtitleText(tt.in))
		})
	}
}

func TestDownloader_Defaults(t *testing.T) {
	d := NewDownloader(model.TranscriptConfig{})

	assert.Equal(t, "en", d.language())
	assert.NotEmpty(t, d.workDir())
}

func TestDownloader_ConfiguredLanguage(t *testing.T) {
	d := NewDownloader(model.TranscriptConfig{Language: "zh-Hans"})

	assert.Equal(t, "zh-Hans", d.language())
}

func TestAppendCookieArgs_MissingFileSkipped(t *testing.T) {
	d := NewDownloader(model.TranscriptConfig{CookieFile: "/nonexistent/cookies.txt"})

	args := d.appendCookieArgs([]string{"--quiet"})

	// Cookie文件不存在时不应附加凭据参数
	assert.Equal(t, []string{"--quiet"}, args)
}
