package acl

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

var log logrus.FieldLogger = logrus.StandardLogger()

// SetLogger 替换包内日志记录器
func SetLogger(l logrus.FieldLogger) {
	if l != nil {
		log = l
	}
}

// Opener 按标识打开规则文件，由存储层实现
type Opener interface {
	Open(id string) (io.ReadCloser, error)
}

// RuleSet 分类后的访问控制规则。解析一次后只读，不支持并发修改。
type RuleSet struct {
	BypassHostnames *SortedSet[string]
	ProxyHostnames  *SortedSet[string]
	Subnets         *SortedSet[Subnet]
	URLs            *SortedSet[*url.URL]
	Bypass          bool
	RemoteDNS       bool
}

func compareURL(a, b *url.URL) int {
	return strings.Compare(a.String(), b.String())
}

func New() *RuleSet {
	return &RuleSet{
		BypassHostnames: NewSortedSet(strings.Compare),
		ProxyHostnames:  NewSortedSet(strings.Compare),
		Subnets:         NewSortedSet(Subnet.Compare),
		URLs:            NewSortedSet(compareURL),
	}
}

func (a *RuleSet) reset() {
	a.BypassHostnames.Clear()
	a.ProxyHostnames.Clear()
	a.Subnets.Clear()
	a.URLs.Clear()
	a.Bypass = false
	a.RemoteDNS = false
}

// Empty 没有任何主机名、网段和 URL
func (a *RuleSet) Empty() bool {
	return a.BypassHostnames.Len() == 0 && a.ProxyHostnames.Len() == 0 &&
		a.Subnets.Len() == 0 && a.URLs.Len() == 0
}

// FromACL 清空后深拷贝 other 的全部内容
func (a *RuleSet) FromACL(other *RuleSet) *RuleSet {
	a.reset()
	for _, item := range other.BypassHostnames.Items() {
		a.BypassHostnames.Add(item)
	}
	for _, item := range other.ProxyHostnames.Items() {
		a.ProxyHostnames.Add(item)
	}
	for _, item := range other.Subnets.Items() {
		a.Subnets.Add(item)
	}
	for _, item := range other.URLs.Items() {
		u := *item
		a.URLs.Add(&u)
	}
	a.Bypass = other.Bypass
	a.RemoteDNS = other.RemoteDNS
	return a
}

func (a *RuleSet) Clone() *RuleSet {
	return New().FromACL(a)
}

// FromReader 清空后重新解析。解析失败或取消时规则集保持为空并返回错误。
func (a *RuleSet) FromReader(ctx context.Context, r io.Reader, defaultBypass, defaultRemoteDNS bool) error {
	a.reset()
	staged, err := parseInto(ctx, r, false, defaultBypass, defaultRemoteDNS)
	if err != nil {
		return err
	}
	a.FromACL(staged)
	return nil
}

// FromURLList 与 FromReader 相同，但 http/https 行收集到 URLs
func (a *RuleSet) FromURLList(ctx context.Context, r io.Reader) error {
	a.reset()
	staged, err := parseInto(ctx, r, true, false, false)
	if err != nil {
		return err
	}
	a.FromACL(staged)
	return nil
}

// FromID 从存储加载规则文件。文件缺失或读取失败时保持原状态并返回 nil，
// 规则段错误和取消仍然返回。
func (a *RuleSet) FromID(ctx context.Context, id string, store Opener) error {
	rc, err := store.Open(id)
	if err != nil {
		log.WithField("id", id).Warnf("打开规则文件失败: %v", err)
		return nil
	}
	defer rc.Close()

	staged, err := parseInto(ctx, rc, false, false, false)
	if err != nil {
		var readErr *ReadError
		if errors.As(err, &readErr) {
			log.WithField("id", id).Warnf("读取规则文件失败: %v", err)
			return nil
		}
		a.reset()
		return err
	}
	a.FromACL(staged)
	return nil
}

func parseInto(ctx context.Context, r io.Reader, withURLs, defaultBypass, defaultRemoteDNS bool) (*RuleSet, error) {
	staged := New()
	sinks := Sinks{
		Bypass: func(s string) { staged.BypassHostnames.Add(s) },
		Proxy:  func(s string) { staged.ProxyHostnames.Add(s) },
	}
	if withURLs {
		sinks.URL = func(u *url.URL) { staged.URLs.Add(u) }
	}
	result, err := Parse(ctx, r, sinks, defaultBypass, defaultRemoteDNS)
	if err != nil {
		parseTotal.WithLabelValues(parseResult(err)).Inc()
		return nil, err
	}
	staged.Bypass = result.Bypass
	staged.RemoteDNS = result.RemoteDNS
	for _, subnet := range result.Subnets {
		staged.Subnets.Add(subnet)
	}
	parseTotal.WithLabelValues("success").Inc()
	ruleCount.WithLabelValues("bypass_hostnames").Set(float64(staged.BypassHostnames.Len()))
	ruleCount.WithLabelValues("proxy_hostnames").Set(float64(staged.ProxyHostnames.Len()))
	ruleCount.WithLabelValues("subnets").Set(float64(staged.Subnets.Len()))
	return staged, nil
}

func parseResult(err error) string {
	switch {
	case errors.Is(err, ErrCanceled):
		return "canceled"
	case errors.Is(err, ErrUnrecognizedDirective):
		return "directive_error"
	default:
		return "read_error"
	}
}

// snapshot RuleSet 的 JSON 视图，URL 以字符串输出
type snapshot struct {
	BypassHostnames *SortedSet[string] `json:"bypass_hostnames"`
	ProxyHostnames  *SortedSet[string] `json:"proxy_hostnames"`
	Subnets         *SortedSet[Subnet] `json:"subnets"`
	URLs            []string           `json:"urls"`
	Bypass          bool               `json:"bypass"`
	RemoteDNS       bool               `json:"remote_dns"`
}

func (a *RuleSet) MarshalJSON() ([]byte, error) {
	urls := make([]string, 0, a.URLs.Len())
	for _, u := range a.URLs.Items() {
		urls = append(urls, u.String())
	}
	return json.Marshal(snapshot{
		BypassHostnames: a.BypassHostnames,
		ProxyHostnames:  a.ProxyHostnames,
		Subnets:         a.Subnets,
		URLs:            urls,
		Bypass:          a.Bypass,
		RemoteDNS:       a.RemoteDNS,
	})
}
