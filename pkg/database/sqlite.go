package database

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// sqliteStore 是 HistoryStore 接口的 SQLite 实现
type sqliteStore struct {
	db     *sql.DB
	logger *log.Logger
}

const createTableSQL = `
	CREATE TABLE IF NOT EXISTS identifications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		modality TEXT NOT NULL,
		query TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		artist TEXT NOT NULL DEFAULT '',
		matched INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_identifications_created_at ON identifications (created_at);
	`

// NewSQLiteStore 初始化 SQLite 数据库并返回 HistoryStore 接口实例
func NewSQLiteStore(dataSourceName string, logger *log.Logger) (HistoryStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// 多个请求并发写入时避免 database is locked
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close() // 创建表失败也要关闭连接
		return nil, fmt.Errorf("failed to create identifications table: %w", err)
	}
	logger.Printf("SQLite database initialized at: %s", dataSourceName)
	return &sqliteStore{db: db, logger: logger}, nil
}

// Close 关闭数据库连接
func (s *sqliteStore) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.logger.Println("SQLite database connection closed.")
		return err
	}
	return nil
}

// AddEntry 记录一次识别结果
func (s *sqliteStore) AddEntry(e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(
		"INSERT INTO identifications (modality, query, title, artist, matched, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		e.Modality, e.Query, e.Title, e.Artist, e.Matched, e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to add %s identification %q: %w", e.Modality, e.Query, err)
	}
	return nil
}

// RecentEntries 返回最近的 limit 条记录
func (s *sqliteStore) RecentEntries(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		"SELECT id, modality, query, title, artist, matched, created_at FROM identifications ORDER BY created_at DESC, id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query identifications: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Modality, &e.Query, &e.Title, &e.Artist, &e.Matched, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan identification: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
