package dns

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	mdns "github.com/miekg/dns"
	"golang.org/x/net/proxy"
	"golang.org/x/sync/errgroup"
)

// ProbeResult 单个上游的探测结果
type ProbeResult struct {
	Name     string        `json:"name"`
	Address  string        `json:"address"`
	Protocol string        `json:"protocol"`
	Proxied  bool          `json:"proxied"`
	RTT      time.Duration `json:"rtt"`
	Rcode    string        `json:"rcode,omitempty"`
	Answers  int           `json:"answers"`
	Error    string        `json:"error,omitempty"`
}

// OK 是否拿到了应答
func (r ProbeResult) OK() bool {
	return r.Error == ""
}

// Prober 通过 miekg/dns 向上游发送 A 查询，检验生成的配置是否可用
type Prober struct {
	Timeout time.Duration
	// Limit 并发上限，<=0 时不限制
	Limit int
}

// NewProber 创建探测器
func NewProber(timeout time.Duration, limit int) *Prober {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Prober{Timeout: timeout, Limit: limit}
}

// Probe 并发探测全部上游，结果顺序与 servers 一致
func (p *Prober) Probe(ctx context.Context, servers []DNSServer, qname string) []ProbeResult {
	results := make([]ProbeResult, len(servers))

	var g errgroup.Group
	if p.Limit > 0 {
		g.SetLimit(p.Limit)
	}
	for i, server := range servers {
		i, server := i, server
		g.Go(func() error {
			results[i] = p.probeOne(ctx, server, qname)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (p *Prober) probeOne(ctx context.Context, server DNSServer, qname string) ProbeResult {
	result := ProbeResult{
		Name:     server.Name,
		Address:  server.Address,
		Protocol: server.Protocol,
		Proxied:  server.Proxied(),
	}

	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	m := new(mdns.Msg)
	m.SetQuestion(mdns.Fqdn(qname), mdns.TypeA)

	start := time.Now()
	resp, err := p.exchange(ctx, server, m)
	result.RTT = time.Since(start)
	probeDuration.WithLabelValues(server.Protocol).Observe(result.RTT.Seconds())

	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Rcode = mdns.RcodeToString[resp.Rcode]
	result.Answers = len(resp.Answer)
	return result
}

func (p *Prober) exchange(ctx context.Context, server DNSServer, m *mdns.Msg) (*mdns.Msg, error) {
	endpoint, serverName, err := dialTarget(server)
	if err != nil {
		return nil, err
	}

	var tlsConfig *tls.Config
	if server.Protocol == ProtocolTCPTLS {
		tlsConfig = &tls.Config{ServerName: serverName}
	}

	if !server.Proxied() {
		c := &mdns.Client{Net: server.Protocol, Timeout: p.Timeout, TLSConfig: tlsConfig}
		resp, _, err := c.ExchangeContext(ctx, m, endpoint)
		return resp, err
	}

	// 经 SOCKS5 只能走 TCP
	conn, err := dialSOCKS5(ctx, server.Socks5Address, endpoint)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if tlsConfig != nil {
		tlsConn := tls.Client(conn, tlsConfig)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			return nil, fmt.Errorf("TLS 握手失败: %w", err)
		}
		conn = tlsConn
	}

	c := &mdns.Client{Net: "tcp", Timeout: p.Timeout}
	resp, _, err := c.ExchangeWithConn(m, &mdns.Conn{Conn: conn})
	return resp, err
}

func dialSOCKS5(ctx context.Context, socksAddr, endpoint string) (net.Conn, error) {
	dialer, err := proxy.SOCKS5("tcp", socksAddr, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("创建SOCKS5拨号器失败: %w", err)
	}
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, "tcp", endpoint)
	}
	return dialer.Dial("tcp", endpoint)
}

// dialTarget 将配置中的地址转换为可拨号的 host:port；DoT 写法 tls://name:853@ip 返回 ip:853 与 SNI
func dialTarget(server DNSServer) (endpoint, serverName string, err error) {
	address := server.Address
	if isDoT(address) {
		rest := address[len("tls://"):]
		hostPort, ip, _ := strings.Cut(rest, "@")
		host, port, err := net.SplitHostPort(hostPort)
		if err != nil {
			return "", "", fmt.Errorf("无效的 DoT 地址 %q: %v", address, err)
		}
		return net.JoinHostPort(ip, port), host, nil
	}

	if strings.Contains(address, "://") {
		return "", "", errors.New("不支持的上游地址: " + address)
	}
	if _, _, err := net.SplitHostPort(address); err != nil {
		address = net.JoinHostPort(strings.Trim(address, "[]"), "53")
	}
	host, _, _ := net.SplitHostPort(address)
	return address, host, nil
}
