package acl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
)

var (
	// ErrUnrecognizedDirective 规则文件中出现未知的 [xxx] 段
	ErrUnrecognizedDirective = errors.New("无法识别的规则段")
	// ErrCanceled 解析被调用方取消
	ErrCanceled = errors.New("规则解析已取消")
)

// DirectiveError 未知规则段，解析立即终止
type DirectiveError struct {
	Line      int
	Directive string
}

func (e *DirectiveError) Error() string {
	return fmt.Sprintf("第 %d 行: %v: %s", e.Line, ErrUnrecognizedDirective, e.Directive)
}

func (e *DirectiveError) Unwrap() error { return ErrUnrecognizedDirective }

// ReadError 底层 Reader 读取失败
type ReadError struct {
	Err error
}

func (e *ReadError) Error() string { return "读取规则失败: " + e.Err.Error() }

func (e *ReadError) Unwrap() error { return e.Err }

// Sinks 分类结果的接收方。URL 可为空，非空时 http/https 行交给 URL 而不是主机名
type Sinks struct {
	Bypass func(string)
	Proxy  func(string)
	URL    func(*url.URL)
}

// Result 解析结果。Subnets 只包含非默认方向的网段：
// Bypass 为 true 时是代理网段，否则是直连网段。
type Result struct {
	Bypass    bool
	RemoteDNS bool
	Subnets   []Subnet
}

// side 当前生效的接收方
type side uint8

const (
	sideNone side = iota
	sideBypass
	sideProxy
)

const maxLineSize = 1 << 20

// Parse 按行解析 ACL 文本。每行之前检查 ctx，取消时返回 ErrCanceled，不返回部分结果。
func Parse(ctx context.Context, r io.Reader, sinks Sinks, defaultBypass, defaultRemoteDNS bool) (Result, error) {
	bypass := defaultBypass
	remoteDNS := defaultRemoteDNS
	bypassSubnets := NewSortedSet(Subnet.Compare)
	proxySubnets := NewSortedSet(Subnet.Compare)

	active := sideBypass
	if defaultBypass {
		active = sideProxy
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNo := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("%w: %w", ErrCanceled, err)
		}
		lineNo++
		input := strings.TrimSpace(scanner.Text())
		if input == "" || strings.HasPrefix(input, "#") {
			continue
		}

		if input[0] == '[' {
			switch input {
			case "[outbound_block_list]":
				active = sideNone
			case "[black_list]", "[bypass_list]":
				active = sideBypass
			case "[white_list]", "[proxy_list]":
				active = sideProxy
			case "[reject_all]", "[bypass_all]":
				bypass = true
			case "[accept_all]", "[proxy_all]":
				bypass = false
			case "[remote_dns]":
				remoteDNS = true
			default:
				return Result{}, &DirectiveError{Line: lineNo, Directive: input}
			}
			continue
		}

		var (
			subnets  *SortedSet[Subnet]
			hostname func(string)
		)
		switch active {
		case sideBypass:
			subnets, hostname = bypassSubnets, sinks.Bypass
		case sideProxy:
			subnets, hostname = proxySubnets, sinks.Proxy
		default:
			// outbound_block_list 中的条目直接丢弃
			continue
		}

		if subnet, err := ParseSubnet(input); err == nil {
			subnets.Add(subnet)
		} else if u := parseRuleListURL(input); u != nil && sinks.URL != nil {
			sinks.URL(u)
		} else if hostname != nil {
			hostname(input)
		}
	}
	if err := scanner.Err(); err != nil {
		return Result{}, &ReadError{Err: err}
	}
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrCanceled, err)
	}

	selected := bypassSubnets
	if bypass {
		selected = proxySubnets
	}
	return Result{Bypass: bypass, RemoteDNS: remoteDNS, Subnets: selected.Items()}, nil
}

func parseRuleListURL(s string) *url.URL {
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return nil
	}
	return u
}
