package acl

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/dlclark/regexp2"
	"go4.org/netipx"
)

// Decision 路由决策
type Decision uint8

const (
	Proxy Decision = iota
	Bypass
)

func (d Decision) String() string {
	if d == Bypass {
		return "bypass"
	}
	return "proxy"
}

func (d Decision) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Matcher 编译后的规则集，按主机名或 IP 给出走代理还是直连
type Matcher struct {
	defaultDecision Decision
	// 非默认方向的规则优先匹配
	overridePatterns []*regexp2.Regexp
	defaultPatterns  []*regexp2.Regexp
	ipSet            *netipx.IPSet
}

// NewMatcher 主机名按正则（忽略大小写）编译，网段合并为 IPSet
func NewMatcher(rules *RuleSet) (*Matcher, error) {
	bypassPatterns, err := compilePatterns(rules.BypassHostnames.Items())
	if err != nil {
		return nil, err
	}
	proxyPatterns, err := compilePatterns(rules.ProxyHostnames.Items())
	if err != nil {
		return nil, err
	}

	var builder netipx.IPSetBuilder
	for _, subnet := range rules.Subnets.Items() {
		builder.AddPrefix(subnet.Prefix())
	}
	ipSet, err := builder.IPSet()
	if err != nil {
		return nil, err
	}

	m := &Matcher{ipSet: ipSet}
	if rules.Bypass {
		m.defaultDecision = Bypass
		m.overridePatterns, m.defaultPatterns = proxyPatterns, bypassPatterns
	} else {
		m.defaultDecision = Proxy
		m.overridePatterns, m.defaultPatterns = bypassPatterns, proxyPatterns
	}
	return m, nil
}

func compilePatterns(patterns []string) ([]*regexp2.Regexp, error) {
	compiled := make([]*regexp2.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp2.Compile(pattern, regexp2.IgnoreCase)
		if err != nil {
			return nil, fmt.Errorf("编译主机名规则 %q 失败: %w", pattern, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

func (m *Matcher) override() Decision {
	if m.defaultDecision == Bypass {
		return Proxy
	}
	return Bypass
}

// Decide host 可以是主机名或 IP 字面量
func (m *Matcher) Decide(host string) Decision {
	host = strings.TrimSuffix(strings.Trim(host, "[]"), ".")
	if addr, err := netip.ParseAddr(host); err == nil {
		if m.ipSet.Contains(addr.Unmap()) || m.ipSet.Contains(addr) {
			return m.override()
		}
		return m.defaultDecision
	}
	if matchAny(m.overridePatterns, host) {
		return m.override()
	}
	return m.defaultDecision
}

// MatchesDefault 主机名是否被默认方向的规则显式列出
func (m *Matcher) MatchesDefault(host string) bool {
	return matchAny(m.defaultPatterns, host)
}

func matchAny(patterns []*regexp2.Regexp, host string) bool {
	for _, re := range patterns {
		if ok, _ := re.MatchString(host); ok {
			return true
		}
	}
	return false
}
