package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/domain/model"
	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/domain/service"
	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/infrastructure/ai"
	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/infrastructure/logger"
)

var probeAll bool

// probeCmd represents the probe command
var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "探测候选模型的可用状态",
	Long: `依次向每个候选模型发送极小的探测请求，检查当前API密钥下
各模型的可用性与配额状态，并给出推荐的候选顺序。
用于排查"全部候选模型均失败"类问题。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		validator := service.NewValidator()

		geminiConfig := model.GeminiConfig{
			APIKey: viper.GetString("gemini.api_key"),
			Models: viper.GetStringSlice("gemini.models"),
		}
		apiKey, err := validator.GetGeminiAPIKey(&geminiConfig)
		if err != nil {
			return err
		}
		geminiConfig.APIKey = apiKey

		ctx := context.Background()
		client, err := ai.NewGeminiClient(ctx, geminiConfig)
		if err != nil {
			logger.Error("创建Gemini客户端失败", "error", err)
			return fmt.Errorf("创建Gemini客户端失败: %w", err)
		}
		defer client.Close()

		// 选择探测对象：候选清单，或当前密钥可见的全部模型
		candidates := geminiConfig.Models
		if len(candidates) == 0 {
			candidates = ai.DefaultModels
		}
		if probeAll {
			names, err := client.ListGenerativeModels(ctx)
			if err != nil {
				logger.Error("获取模型列表失败", "error", err)
				return fmt.Errorf("获取模型列表失败: %w", err)
			}
			candidates = names
		}

		fmt.Printf("开始探测%d个模型...\n\n", len(candidates))
		fmt.Printf("%-45s %s\n", "模型", "状态")
		fmt.Printf("%-45s %s\n", "----", "----")

		var available []string
		for i, name := range candidates {
			status := probeModel(ctx, client, name)
			fmt.Printf("%-45s %s\n", name, status)
			if status == "可用" {
				available = append(available, name)
			}

			// 探测之间停顿，避免探测本身触发限流
			if i < len(candidates)-1 {
				time.Sleep(time.Second)
			}
		}

		fmt.Println()
		if len(available) == 0 {
			fmt.Println("没有可用模型，请检查API密钥或稍后重试")
			return nil
		}

		fmt.Printf("共%d个模型可用，推荐候选顺序:\n", len(available))
		for _, name := range available {
			fmt.Printf("  - %s\n", name)
		}
		return nil
	},
}

// probeModel 探测单个模型并返回人类可读的状态
func probeModel(ctx context.Context, client *ai.GeminiClient, name string) string {
	err := client.TestModel(ctx, name)
	if err == nil {
		return "可用"
	}

	switch ai.Classify(err) {
	case ai.FailureRateLimited:
		return "限流"
	case ai.FailureNotFound:
		return "不存在"
	case ai.FailureOverloaded:
		return "过载"
	default:
		return fmt.Sprintf("错误: %v", err)
	}
}

func init() {
	rootCmd.AddCommand(probeCmd)

	// 本地标志
	probeCmd.Flags().BoolVar(&probeAll, "all", false, "探测当前密钥可见的全部模型，而非候选清单")
}
