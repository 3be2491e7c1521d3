package archive

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fachebot/chat-unwrapped/internal/model"
)

// Store 运行结果的 SQLite 归档，用于查询历史和 watch 模式去重
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	source_file   TEXT NOT NULL,
	chat_type     TEXT NOT NULL,
	messages      INTEGER NOT NULL,
	model_used    TEXT NOT NULL,
	input_tokens  INTEGER NOT NULL,
	output_tokens INTEGER NOT NULL,
	degraded      TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source_file);

CREATE TABLE IF NOT EXISTS awards (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id    INTEGER NOT NULL REFERENCES runs(id),
	position  INTEGER NOT NULL,
	title     TEXT NOT NULL,
	recipient TEXT NOT NULL,
	evidence  TEXT NOT NULL,
	quip      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_awards_run ON awards(run_id);

CREATE TABLE IF NOT EXISTS patterns (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id   INTEGER NOT NULL REFERENCES runs(id),
	payload  TEXT NOT NULL
);
`

// Open 打开（必要时创建）归档数据库
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("创建归档目录失败: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("打开归档数据库失败: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("初始化归档表结构失败: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveResult 归档一次运行及其全部奖项
func (s *Store) SaveResult(conv *model.Conversation, result *model.PipelineResult) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("开启归档事务失败: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO runs
		(source_file, chat_type, messages, model_used, input_tokens, output_tokens, degraded, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		conv.SourceFile, string(conv.ChatType), len(conv.Messages),
		result.ModelUsed, result.InputTokens, result.OutputTokens,
		result.Error, time.Now())
	if err != nil {
		return 0, fmt.Errorf("写入运行记录失败: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for i, a := range result.Awards {
		if _, err := tx.Exec(`INSERT INTO awards (run_id, position, title, recipient, evidence, quip)
			VALUES (?, ?, ?, ?, ?, ?)`,
			runID, i, a.Title, a.Recipient, a.Evidence, a.Quip); err != nil {
			return 0, fmt.Errorf("写入奖项记录失败: %w", err)
		}
	}

	if len(result.PatternsUsed) > 0 {
		payload, err := json.Marshal(result.PatternsUsed)
		if err == nil {
			if _, err := tx.Exec(`INSERT INTO patterns (run_id, payload) VALUES (?, ?)`,
				runID, string(payload)); err != nil {
				return 0, fmt.Errorf("写入模式记录失败: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("提交归档事务失败: %w", err)
	}
	return runID, nil
}

// HasRun 判断某个导出文件是否已有归档记录（watch 模式跳过已处理文件）
func (s *Store) HasRun(sourceFile string) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM runs WHERE source_file = ?`, sourceFile).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("查询归档记录失败: %w", err)
	}
	return n > 0, nil
}

// RunSummary 归档中单次运行的摘要
type RunSummary struct {
	ID         int64
	SourceFile string
	ModelUsed  string
	Awards     int
	CreatedAt  time.Time
}

// RecentRuns 按时间倒序返回最近的归档记录
func (s *Store) RecentRuns(limit int) ([]RunSummary, error) {
	rows, err := s.db.Query(`SELECT r.id, r.source_file, r.model_used,
			(SELECT COUNT(*) FROM awards a WHERE a.run_id = r.id), r.created_at
		FROM runs r ORDER BY r.created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("查询归档记录失败: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.SourceFile, &r.ModelUsed, &r.Awards, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
