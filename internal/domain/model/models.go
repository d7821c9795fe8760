package model

// ProcessParams 包含一次轮询处理所需的全部参数
type ProcessParams struct {
	FeedsFile        string           // 订阅列表文件路径（JSON数组或OPML）
	HistoryFile      string           // 已投递记录文件路径
	PauseSeconds     int              // 每条成功投递后的固定停顿（秒）
	GeminiConfig     GeminiConfig     // Gemini API配置
	TelegramConfig   TelegramConfig   // Telegram投递配置
	TtsConfig        TtsConfig        // 语音合成配置
	TranscriptConfig TranscriptConfig // 字幕获取配置
	DatabaseConfig   DatabaseConfig   // 投递归档数据库配置
}

// GeminiConfig 包含Gemini API的配置信息
type GeminiConfig struct {
	APIKey         string   // API密钥
	Models         []string // 候选模型列表，按能力从高到低排列
	RequestTimeout int      // 单次生成请求超时（秒）
	PollInterval   int      // 文件上传状态轮询间隔（秒）
	MaxCallsPerDay int      // 每日模型调用次数上限，0表示不限制
}

// TelegramConfig 包含Telegram投递的配置信息
type TelegramConfig struct {
	Token   string // Bot令牌
	ChatID  string // 频道或会话ID
	APIUrl  string // API基础地址，默认为官方地址
	Timeout int    // 请求超时（秒）
}

// TtsConfig 包含语音合成的配置信息
type TtsConfig struct {
	Command string // edge-tts可执行文件路径
	Voice   string // 语音标识
	Rate    string // 语速调整，如 +10%
	Pitch   string // 音调调整，如 +0Hz
	Timeout int    // 合成超时（秒）
}

// TranscriptConfig 包含字幕获取的配置信息
type TranscriptConfig struct {
	CookieFile string // Cookie文件路径（存在时转发给外部服务）
	YtdlpPath  string // yt-dlp可执行文件路径
	Language   string // 字幕语言
	WorkDir    string // 临时文件工作目录
	Timeout    int    // 下载超时（秒）
}

// DatabaseConfig 包含数据库的配置信息
type DatabaseConfig struct {
	Enabled  bool   // 是否启用投递归档
	FilePath string // 数据库文件路径
}

// FeedSource 表示一个频道订阅源
type FeedSource struct {
	Title string // 频道标题（OPML来源时提供）
	URL   string // 订阅地址
}

// VideoItem 表示订阅源中的一条最新视频
type VideoItem struct {
	ID          string // 视频唯一标识
	Title       string // 视频标题
	URL         string // 视频链接
	Channel     string // 频道名称
	Description string // 视频描述（已去除HTML标签）
}

// SynthesizedContent 表示模型改写后的内容
type SynthesizedContent struct {
	Post   string // Telegram短文
	Script string // 口播稿
}

// DeliveryRecord 表示一条已投递的归档记录
type DeliveryRecord struct {
	VideoID      string // 视频标识
	Title        string // 视频标题
	Channel      string // 频道名称
	Post         string // 投递的短文
	ScriptLength int    // 口播稿长度
	DeliveredAt  string // 投递时间
}
