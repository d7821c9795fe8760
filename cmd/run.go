package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	appservice "github.com/ShanmugamRamanathan/YouTube-Anchor/internal/application/service"
	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/domain/model"
	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/domain/service"
	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/infrastructure/ai"
	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/infrastructure/history"
	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/infrastructure/logger"
	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/infrastructure/telegram"
	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/infrastructure/tts"
	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/infrastructure/youtube"
	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/middleware"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "执行一次轮询处理",
	Long: `读取订阅列表文件，拉取每个频道的最新视频，
对未投递过的视频依次获取字幕、改写内容、合成语音并投递到Telegram频道。
处理完成后程序退出，适合由cron或CI定时调度。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := buildProcessParams()
		if err != nil {
			logger.Error("构建运行参数失败", "error", err)
			return err
		}

		ctx := context.Background()

		// 启动内存监控
		monitor := logger.NewMemStatsMonitor(5 * time.Minute)
		monitor.Start()
		defer monitor.Stop()

		metrics := middleware.NewMetricsCollector()

		// 生成式后端客户端
		gemini, err := ai.NewGeminiClient(ctx, params.GeminiConfig)
		if err != nil {
			logger.Error("创建Gemini客户端失败", "error", err)
			return fmt.Errorf("创建Gemini客户端失败: %w", err)
		}
		defer gemini.Close()
		gemini.WithMetrics(metrics)

		// 字幕获取级联：接口直取、yt-dlp字幕、音频转写
		captions := youtube.NewCaptionClient(params.TranscriptConfig)
		downloader := youtube.NewDownloader(params.TranscriptConfig)
		var transcriber service.AudioTranscriber = gemini

		transcriptService := service.NewTranscriptService(
			service.TranscriptTier{Name: "caption_api", Fetch: captions.FetchTranscript},
			service.TranscriptTier{Name: "ytdlp_subs", Fetch: downloader.DownloadSubtitles},
			service.TranscriptTier{Name: "audio_transcribe", Fetch: func(ctx context.Context, videoID string) (string, error) {
				audioPath, err := downloader.DownloadAudio(ctx, videoID)
				if err != nil {
					return "", err
				}
				defer func() {
					if err := os.Remove(audioPath); err != nil {
						logger.Warn("删除音频临时文件失败", "file", audioPath, "error", err)
					}
				}()
				return transcriber.TranscribeAudio(ctx, audioPath)
			}},
		)

		// 已投递记录
		ledger := history.Load(params.HistoryFile)

		// 组装流水线
		pipeline := appservice.NewPipelineService(
			service.NewFeedService(),
			transcriptService,
			service.NewSynthesizerService(gemini),
			tts.NewEdgeClient(params.TtsConfig),
			telegram.NewClient(params.TelegramConfig),
			ledger,
			metrics,
		)

		if err := pipeline.Run(ctx, params); err != nil {
			logger.Error("轮询处理失败", "error", err)
			return fmt.Errorf("轮询处理失败: %w", err)
		}

		fmt.Println("本轮处理完成")
		return nil
	},
}

// buildProcessParams 从配置和环境变量组装运行参数，
// 密钥类配置环境变量优先
func buildProcessParams() (model.ProcessParams, error) {
	validator := service.NewValidator()

	feedsFile := validator.GetConfigValue("FEEDS_FILE", viper.GetString("rss.feeds_file"))
	if err := validator.ValidateFeedsFile(feedsFile); err != nil {
		return model.ProcessParams{}, fmt.Errorf("订阅列表文件无效: %w", err)
	}

	geminiConfig := model.GeminiConfig{
		APIKey:         viper.GetString("gemini.api_key"),
		Models:         viper.GetStringSlice("gemini.models"),
		RequestTimeout: viper.GetInt("gemini.request_timeout"),
		PollInterval:   viper.GetInt("gemini.poll_interval"),
		MaxCallsPerDay: viper.GetInt("gemini.max_calls_per_day"),
	}
	apiKey, err := validator.GetGeminiAPIKey(&geminiConfig)
	if err != nil {
		return model.ProcessParams{}, err
	}
	geminiConfig.APIKey = apiKey

	telegramConfig := model.TelegramConfig{
		Token:   viper.GetString("telegram.token"),
		ChatID:  viper.GetString("telegram.chat_id"),
		APIUrl:  viper.GetString("telegram.api_url"),
		Timeout: viper.GetInt("telegram.timeout"),
	}
	token, chatID, err := validator.GetTelegramCredentials(&telegramConfig)
	if err != nil {
		return model.ProcessParams{}, err
	}
	telegramConfig.Token = token
	telegramConfig.ChatID = chatID

	historyFile := viper.GetString("history.file_path")
	if historyFile == "" {
		historyFile = "history.json"
	}

	pauseSeconds := 2
	if viper.IsSet("pipeline.pause_seconds") {
		pauseSeconds = viper.GetInt("pipeline.pause_seconds")
	}

	return model.ProcessParams{
		FeedsFile:      feedsFile,
		HistoryFile:    historyFile,
		PauseSeconds:   pauseSeconds,
		GeminiConfig:   geminiConfig,
		TelegramConfig: telegramConfig,
		TtsConfig: model.TtsConfig{
			Command: viper.GetString("tts.command"),
			Voice:   viper.GetString("tts.voice"),
			Rate:    viper.GetString("tts.rate"),
			Pitch:   viper.GetString("tts.pitch"),
			Timeout: viper.GetInt("tts.timeout"),
		},
		TranscriptConfig: model.TranscriptConfig{
			CookieFile: viper.GetString("transcript.cookie_file"),
			YtdlpPath:  viper.GetString("transcript.ytdlp_path"),
			Language:   viper.GetString("transcript.language"),
			WorkDir:    viper.GetString("transcript.work_dir"),
			Timeout:    viper.GetInt("transcript.timeout"),
		},
		DatabaseConfig: model.DatabaseConfig{
			Enabled:  viper.GetBool("database.enabled"),
			FilePath: viper.GetString("database.file_path"),
		},
	}, nil
}

func init() {
	rootCmd.AddCommand(runCmd)
}
