package storage

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/winspan/boomacl/pkg/utils"
)

// SQLiteStore 将规则文件保存在 SQLite 的 rule_files 表中
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore 打开 (或创建) SQLite 数据库
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := utils.EnsureDir(filepath.Dir(dbPath)); err != nil {
			return nil, fmt.Errorf("创建数据库目录失败: %v", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %v", err)
	}

	// SQLite 只支持单个写连接
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

// createTables 创建数据库表
func createTables(db *sql.DB) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS rule_files (
			id TEXT PRIMARY KEY,
			content BLOB NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
	}

	for _, table := range tables {
		if _, err := db.Exec(table); err != nil {
			return fmt.Errorf("创建表失败: %v", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Exists(id string) bool {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM rule_files WHERE id = ?`, id).Scan(&one)
	return err == nil
}

func (s *SQLiteStore) Open(id string) (io.ReadCloser, error) {
	var content []byte
	err := s.db.QueryRow(`SELECT content FROM rule_files WHERE id = ?`, id).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("查询规则文件失败: %w", err)
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (s *SQLiteStore) Write(id string, r io.Reader) error {
	if err := validID(id); err != nil {
		return err
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("读取规则内容失败: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("开始事务失败: %v", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO rule_files (id, content, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at`,
		id, content, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("保存规则文件失败: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %v", err)
	}
	return nil
}

// UpdatedAt 返回规则文件最后写入时间
func (s *SQLiteStore) UpdatedAt(id string) (time.Time, error) {
	var ts int64
	err := s.db.QueryRow(`SELECT updated_at FROM rule_files WHERE id = ?`, id).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(ts, 0), nil
}

// Close 关闭数据库连接
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
