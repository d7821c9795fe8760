package service

import "context"

// TextGenerator 定义生成式后端的文本生成能力，
// 实现方内部负责候选模型的降级选择
type TextGenerator interface {
	// Generate 基于提示词生成文本
	Generate(ctx context.Context, prompt string) (string, error)
}

// AudioTranscriber 定义生成式后端的音频转写能力
type AudioTranscriber interface {
	// TranscribeAudio 将本地音频文件逐字转写为文本
	TranscribeAudio(ctx context.Context, audioPath string) (string, error)
}

// AudioRenderer 定义语音合成能力
type AudioRenderer interface {
	// Render 将口播稿合成为outputPath指向的音频文件
	Render(ctx context.Context, script, outputPath string) error
}

// DeliverySink 定义投递端点
type DeliverySink interface {
	// Deliver 投递短文与语音附件
	Deliver(ctx context.Context, text, audioPath string) error
}
