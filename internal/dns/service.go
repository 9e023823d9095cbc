package dns

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sagernet/fswatch"
	"github.com/sirupsen/logrus"

	"github.com/winspan/boomacl/internal/acl"
	"github.com/winspan/boomacl/internal/storage"
	"github.com/winspan/boomacl/pkg/config"
	"github.com/winspan/boomacl/pkg/utils"
)

var (
	// ErrNoACLURL 未配置自定义规则地址
	ErrNoACLURL = errors.New("未配置自定义规则地址 (profile.acl_url)")
	// ErrInvalidRules 提交的规则无法解析或编译
	ErrInvalidRules = errors.New("规则无效")
	// ErrNoRuleFile all 模式不使用规则文件
	ErrNoRuleFile = errors.New("当前路由模式不使用规则文件")
)

// Snapshot 当前生效的规则与 overture 配置
type Snapshot struct {
	Route    string       `json:"route"`
	Rules    *acl.RuleSet `json:"rules"`
	Policy   *Policy      `json:"-"`
	Matcher  *acl.Matcher `json:"-"`
	Files    []string     `json:"files"`
	Digest   string       `json:"digest"`
	LoadedAt time.Time    `json:"loaded_at"`
}

// Service 负责加载规则、生成并写出 overture 配置，维护当前快照
type Service struct {
	cfg     *config.Config
	store   storage.Store
	fetcher acl.Fetcher
	log     logrus.FieldLogger

	// 串行化 Reload
	reloadMu sync.Mutex

	mu       sync.RWMutex
	snapshot *Snapshot

	watcher *fswatch.Watcher
}

// NewService 创建服务，不会立即加载规则
func NewService(cfg *config.Config, store storage.Store, fetcher acl.Fetcher, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		cfg:     cfg,
		store:   store,
		fetcher: fetcher,
		log:     log.WithField("component", "dns"),
	}
}

// Route 当前配置的路由模式
func (s *Service) Route() string {
	return s.cfg.Profile.Route
}

// Reload 重新加载规则并生成配置；失败时保留旧快照
func (s *Service) Reload(ctx context.Context) (*Snapshot, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	snapshot, err := s.load(ctx)
	if err != nil {
		reloadTotal.WithLabelValues("error").Inc()
		s.log.WithError(err).WithField("route", s.Route()).Error("重新加载失败，继续使用旧配置")
		return nil, err
	}

	s.mu.Lock()
	s.snapshot = snapshot
	s.mu.Unlock()

	reloadTotal.WithLabelValues("ok").Inc()
	s.log.WithFields(logrus.Fields{
		"route":  snapshot.Route,
		"digest": snapshot.Digest[:12],
	}).Info("overture 配置已更新")
	return snapshot, nil
}

func (s *Service) load(ctx context.Context) (*Snapshot, error) {
	route := s.Route()

	var rules *acl.RuleSet
	if route != acl.RouteAll {
		if route == acl.RouteCustomRules && s.cfg.Profile.ACLURL != "" {
			if err := s.ensureCustomRules(ctx); err != nil {
				return nil, err
			}
		}
		rules = acl.New()
		if err := rules.FromID(ctx, route, s.store); err != nil {
			return nil, fmt.Errorf("加载规则 %s 失败: %w", route, err)
		}
	}

	policy := NewBuilder(OptionsFromConfig(s.cfg)).Build(rules)
	if rules == nil {
		rules = acl.New()
	}

	matcher, err := acl.NewMatcher(rules)
	if err != nil {
		return nil, fmt.Errorf("编译规则 %s 失败: %w", route, err)
	}

	data, err := policy.MarshalConfig()
	if err != nil {
		return nil, fmt.Errorf("序列化 overture 配置失败: %v", err)
	}
	files, err := policy.WriteFiles(s.cfg.GetDataDir(), s.cfg.GetResolverConfigFile())
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Route:    route,
		Rules:    rules,
		Policy:   policy,
		Matcher:  matcher,
		Files:    files,
		Digest:   utils.SHA256Hash(data),
		LoadedAt: time.Now(),
	}, nil
}

func (s *Service) ensureCustomRules(ctx context.Context) error {
	if s.cfg.Profile.ACLURL == "" {
		return ErrNoACLURL
	}
	return acl.EnsureFetched(ctx, s.store, acl.RouteCustomRules, s.cfg.Profile.ACLURL, s.fetcher)
}

// FetchCustomRules 下载自定义规则 (已存在则跳过)
func (s *Service) FetchCustomRules(ctx context.Context) error {
	err := s.ensureCustomRules(ctx)
	if err != nil {
		s.log.WithError(err).WithField("url", s.cfg.Profile.ACLURL).Warn("下载自定义规则失败")
	}
	return err
}

// ReplaceRules 校验通过后覆盖当前路由的规则文件并重新加载
func (s *Service) ReplaceRules(ctx context.Context, data []byte) (*Snapshot, error) {
	route := s.Route()
	if route == acl.RouteAll {
		return nil, ErrNoRuleFile
	}

	check := acl.New()
	if err := check.FromReader(ctx, bytes.NewReader(data), false, false); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRules, err)
	}
	if _, err := acl.NewMatcher(check); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRules, err)
	}

	if err := s.store.Write(route, bytes.NewReader(data)); err != nil {
		return nil, err
	}
	s.log.WithField("route", route).WithField("bytes", len(data)).Info("规则文件已替换")
	return s.Reload(ctx)
}

// Snapshot 返回当前快照；尚未成功加载时返回 nil
func (s *Service) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Decide 按当前规则判断主机走代理还是直连
func (s *Service) Decide(host string) (acl.Decision, bool) {
	snapshot := s.Snapshot()
	if snapshot == nil {
		return acl.Proxy, false
	}
	return snapshot.Matcher.Decide(host), true
}

// Watch 监听当前路由对应的规则文件，变化时自动重新加载；仅文件存储支持
func (s *Service) Watch(ctx context.Context) error {
	fileStore, ok := s.store.(*storage.FileStore)
	if !ok {
		s.log.Debug("当前存储不是文件存储，跳过规则文件监听")
		return nil
	}
	if s.Route() == acl.RouteAll {
		return nil
	}

	path := fileStore.Path(s.Route())
	watcher, err := fswatch.NewWatcher(fswatch.Options{
		Path: []string{path},
		Callback: func(string) {
			s.log.WithField("path", path).Info("规则文件已变化，重新加载")
			_, _ = s.Reload(ctx)
		},
	})
	if err != nil {
		return fmt.Errorf("创建文件监听失败: %v", err)
	}
	if err := watcher.Start(); err != nil {
		return fmt.Errorf("启动文件监听失败: %v", err)
	}

	s.mu.Lock()
	s.watcher = watcher
	s.mu.Unlock()
	return nil
}

// Close 停止文件监听
func (s *Service) Close() error {
	s.mu.Lock()
	watcher := s.watcher
	s.watcher = nil
	s.mu.Unlock()
	if watcher != nil {
		return watcher.Close()
	}
	return nil
}
