package dns

// 以下结构与 overture 的 JSON 配置文件字段一一对应

// EDNSClientSubnet ECS 策略
type EDNSClientSubnet struct {
	Policy     string `json:"Policy"`
	ExternalIP string `json:"ExternalIP,omitempty"`
}

// DNSServer 上游 DNS 条目
type DNSServer struct {
	Name             string           `json:"Name"`
	Address          string           `json:"Address"`
	Protocol         string           `json:"Protocol"`
	Socks5Address    string           `json:"Socks5Address,omitempty"`
	Timeout          int              `json:"Timeout"`
	EDNSClientSubnet EDNSClientSubnet `json:"EDNSClientSubnet"`
}

// Proxied 该条目是否经由本地 SOCKS5 代理
func (s DNSServer) Proxied() bool {
	return s.Socks5Address != ""
}

// FilePair 主/备文件引用
type FilePair struct {
	Primary     string `json:"Primary,omitempty"`
	Alternative string `json:"Alternative,omitempty"`
}

// OvertureConfig overture 配置
type OvertureConfig struct {
	BindAddress        string      `json:"BindAddress"`
	RedirectIPv6Record bool        `json:"RedirectIPv6Record"`
	DomainBase64Decode bool        `json:"DomainBase64Decode"`
	HostsFile          string      `json:"HostsFile"`
	MinimumTTL         int         `json:"MinimumTTL"`
	CacheSize          int         `json:"CacheSize"`
	PrimaryDNS         []DNSServer `json:"PrimaryDNS"`
	AlternativeDNS     []DNSServer `json:"AlternativeDNS,omitempty"`
	OnlyPrimaryDNS     bool        `json:"OnlyPrimaryDNS,omitempty"`
	IPNetworkFile      *FilePair   `json:"IPNetworkFile,omitempty"`
	DomainFile         *FilePair   `json:"DomainFile,omitempty"`
}

// Servers 返回主、备全部上游
func (c *OvertureConfig) Servers() []DNSServer {
	out := make([]DNSServer, 0, len(c.PrimaryDNS)+len(c.AlternativeDNS))
	out = append(out, c.PrimaryDNS...)
	return append(out, c.AlternativeDNS...)
}
