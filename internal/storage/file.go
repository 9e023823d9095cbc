package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/winspan/boomacl/pkg/utils"
)

// FileStore 以 <dir>/<id>.acl 形式保存规则文件
type FileStore struct {
	dir string
}

// NewFileStore 创建文件存储，目录不存在时自动创建
func NewFileStore(dir string) (*FileStore, error) {
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %v", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir 数据目录
func (fs *FileStore) Dir() string {
	return fs.dir
}

// Path 返回 id 对应的文件路径
func (fs *FileStore) Path(id string) string {
	return filepath.Join(fs.dir, id+".acl")
}

func (fs *FileStore) Exists(id string) bool {
	if validID(id) != nil {
		return false
	}
	info, err := os.Stat(fs.Path(id))
	return err == nil && info.Mode().IsRegular()
}

func (fs *FileStore) Open(id string) (io.ReadCloser, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	file, err := os.Open(fs.Path(id))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("打开规则文件失败: %w", err)
	}
	return file, nil
}

func (fs *FileStore) Write(id string, r io.Reader) error {
	if err := validID(id); err != nil {
		return err
	}
	if err := utils.WriteFileAtomic(fs.Path(id), r); err != nil {
		return fmt.Errorf("保存规则文件失败: %w", err)
	}
	return nil
}

func (fs *FileStore) Close() error {
	return nil
}
