package database

import "time"

// Entry 是一次识别的记录
type Entry struct {
	ID        int64     `json:"id"`
	Modality  string    `json:"modality"` // text | image | audio
	Query     string    `json:"query"`    // 文本输入、文件名或原始猜测
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	Matched   bool      `json:"catalog_matched"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryStore 定义识别历史存储接口
type HistoryStore interface {
	AddEntry(e Entry) error                   // 记录一次识别
	RecentEntries(limit int) ([]Entry, error) // 按时间倒序返回最近的记录
	Close() error                             // 关闭数据库连接
}
