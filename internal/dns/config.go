package dns

import (
	"github.com/winspan/boomacl/pkg/config"
)

// Options 生成 overture 配置所需的全部参数
type Options struct {
	ListenAddress string
	LocalDNSPort  int
	ProxyPort     int

	// 路由模式，取值见 acl.Route*
	Route string

	// 逗号分隔的上游列表
	RemoteDNS string
	DirectDNS string

	HostsFile     string
	MinimumTTL    int
	CacheSize     int
	IPNetworkFile string
}

// OptionsFromConfig 从应用配置中提取生成参数
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ListenAddress: cfg.Profile.ListenAddress,
		LocalDNSPort:  cfg.Profile.LocalDNSPort,
		ProxyPort:     cfg.Profile.ProxyPort,
		Route:         cfg.Profile.Route,
		RemoteDNS:     cfg.Profile.RemoteDNS,
		DirectDNS:     cfg.Profile.DirectDNS,
		HostsFile:     cfg.Resolver.HostsFile,
		MinimumTTL:    cfg.Resolver.MinimumTTL,
		CacheSize:     cfg.Resolver.CacheSize,
		IPNetworkFile: cfg.Resolver.IPNetworkFile,
	}
}

// GetListenAddress 获取本地 DNS 监听地址
func (o Options) GetListenAddress() string {
	if o.ListenAddress == "" {
		return "127.0.0.1"
	}
	return o.ListenAddress
}

// GetHostsFile 获取 hosts 文件名
func (o Options) GetHostsFile() string {
	if o.HostsFile == "" {
		return "hosts"
	}
	return o.HostsFile
}

// GetMinimumTTL 获取最小 TTL
func (o Options) GetMinimumTTL() int {
	if o.MinimumTTL <= 0 {
		return 120
	}
	return o.MinimumTTL
}

// GetCacheSize 获取缓存条目数
func (o Options) GetCacheSize() int {
	if o.CacheSize <= 0 {
		return 4096
	}
	return o.CacheSize
}

// GetIPNetworkFile 获取国内 IP 段文件名
func (o Options) GetIPNetworkFile() string {
	if o.IPNetworkFile == "" {
		return "china_ip_list.txt"
	}
	return o.IPNetworkFile
}
