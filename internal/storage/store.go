package storage

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/winspan/boomacl/pkg/config"
)

// ErrNotFound 规则文件不存在
var ErrNotFound = errors.New("规则文件不存在")

// Store 规则文件存储，按 id 存取 ACL 文本
type Store interface {
	Exists(id string) bool
	Open(id string) (io.ReadCloser, error)
	// Write 读完 r 后整体替换 id 对应的内容，失败时保留旧内容
	Write(id string, r io.Reader) error
	Close() error
}

// New 按配置选择存储后端
func New(cfg *config.Config) (Store, error) {
	switch cfg.GetDatabaseType() {
	case "file":
		return NewFileStore(cfg.GetDataDir())
	case "sqlite":
		return NewSQLiteStore(cfg.GetSQLiteFile())
	default:
		return nil, fmt.Errorf("不支持的数据库类型: %s", cfg.GetDatabaseType())
	}
}

func validID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("非法的规则文件标识: %q", id)
	}
	return nil
}
