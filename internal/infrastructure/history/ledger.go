package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ShanmugamRamanathan/YouTube-Anchor/internal/infrastructure/logger"
)

// MaxEntries 记录文件保留的最大条目数，超出时从最旧的开始淘汰
const MaxEntries = 500

// ledgerFile 是记录文件的磁盘格式
type ledgerFile struct {
	Videos []string `json:"videos"`
}

// Ledger 是有界的已投递视频记录，按投递先后有序，
// 提供成员判断和追加操作
type Ledger struct {
	filePath string
	videos   []string
	index    map[string]struct{}
}

// Load 从文件加载已投递记录。文件缺失或损坏时降级为空记录，
// 不会中断启动流程
func Load(filePath string) *Ledger {
	l := &Ledger{
		filePath: filePath,
		index:    make(map[string]struct{}),
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("读取已投递记录失败，使用空记录", "file", filePath, "error", err)
		}
		return l
	}

	var file ledgerFile
	if err := json.Unmarshal(data, &file); err != nil {
		logger.Warn("解析已投递记录失败，使用空记录", "file", filePath, "error", err)
		return l
	}

	for _, id := range file.Videos {
		if _, ok := l.index[id]; ok {
			continue
		}
		l.videos = append(l.videos, id)
		l.index[id] = struct{}{}
	}

	logger.Info("已投递记录加载完成", "file", filePath, "count", len(l.videos))
	return l
}

// Contains 判断视频是否已投递过
func (l *Ledger) Contains(id string) bool {
	_, ok := l.index[id]
	return ok
}

// Add 追加一条已投递记录，超出上限时淘汰最旧的条目
func (l *Ledger) Add(id string) {
	if l.Contains(id) {
		return
	}

	l.videos = append(l.videos, id)
	l.index[id] = struct{}{}

	for len(l.videos) > MaxEntries {
		evicted := l.videos[0]
		l.videos = l.videos[1:]
		delete(l.index, evicted)
	}
}

// Len 返回当前记录条数
func (l *Ledger) Len() int {
	return len(l.videos)
}

// Save 将记录写回文件
func (l *Ledger) Save() error {
	dir := filepath.Dir(l.filePath)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建记录目录失败: %w", err)
		}
	}

	data, err := json.MarshalIndent(ledgerFile{Videos: l.videos}, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化已投递记录失败: %w", err)
	}

	if err := os.WriteFile(l.filePath, data, 0644); err != nil {
		return fmt.Errorf("写入已投递记录失败: %w", err)
	}

	return nil
}
