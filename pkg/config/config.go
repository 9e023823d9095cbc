package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 应用配置结构
type Config struct {
	// 基础配置
	App struct {
		Name        string `yaml:"name"`
		Version     string `yaml:"version"`
		Environment string `yaml:"environment"`
		Debug       bool   `yaml:"debug"`
	} `yaml:"app"`

	// 管理接口配置
	Server struct {
		HTTP       string `yaml:"http"`
		AdminToken string `yaml:"admin_token"`
	} `yaml:"server"`

	// 日志配置
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`

	// 代理配置档，对应客户端的路由与 DNS 设置
	Profile struct {
		Route         string `yaml:"route"`
		RemoteDNS     string `yaml:"remote_dns"`
		DirectDNS     string `yaml:"direct_dns"`
		ACLURL        string `yaml:"acl_url"`
		ListenAddress string `yaml:"listen_address"`
		LocalDNSPort  int    `yaml:"local_dns_port"`
		ProxyPort     int    `yaml:"proxy_port"`
	} `yaml:"profile"`

	// 本地解析器 (overture) 配置
	Resolver struct {
		HostsFile     string `yaml:"hosts_file"`
		MinimumTTL    int    `yaml:"minimum_ttl"`
		CacheSize     int    `yaml:"cache_size"`
		IPNetworkFile string `yaml:"ip_network_file"`
		ConfigFile    string `yaml:"config_file"`
	} `yaml:"resolver"`

	// 持久化配置
	Persistence struct {
		DataDir  string `yaml:"data_dir"`
		Database struct {
			Type       string `yaml:"type"`
			SQLiteFile string `yaml:"sqlite_file"`
		} `yaml:"database"`
	} `yaml:"persistence"`

	// 规则下载配置
	Fetch struct {
		Timeout   int    `yaml:"timeout"`
		UserAgent string `yaml:"user_agent"`
		MaxBytes  int64  `yaml:"max_bytes"`
	} `yaml:"fetch"`
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	// 如果未指定配置文件，使用默认路径
	if configPath == "" {
		configPath = getDefaultConfigPath()
	}

	// 检查配置文件是否存在
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("配置文件不存在: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %v", err)
	}

	return Parse(data)
}

// Parse 解析 YAML 配置内容并补全默认值
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %v", err)
	}

	setDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("配置验证失败: %v", err)
	}

	return &config, nil
}

// Default 返回全部取默认值的配置
func Default() *Config {
	var config Config
	setDefaults(&config)
	return &config
}

// getDefaultConfigPath 获取默认配置文件路径
func getDefaultConfigPath() string {
	// 按优先级查找配置文件
	paths := []string{
		"configs/config.yaml",
		"config.yaml",
		"configs/config.dev.yaml",
		"configs/config.prod.yaml",
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return "configs/config.yaml"
}

// setDefaults 设置默认配置值
func setDefaults(config *Config) {
	if config.App.Name == "" {
		config.App.Name = "BoomACL"
	}
	if config.App.Version == "" {
		config.App.Version = "1.0.0"
	}
	if config.App.Environment == "" {
		config.App.Environment = "development"
	}

	if config.Server.HTTP == "" {
		config.Server.HTTP = ":8080"
	}

	// 日志默认值
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.Format == "" {
		config.Logging.Format = "text"
	}
	if config.Logging.Output == "" {
		config.Logging.Output = "stdout"
	}

	// 配置档默认值
	if config.Profile.Route == "" {
		config.Profile.Route = "bypass-lan-china"
	}
	if config.Profile.RemoteDNS == "" {
		config.Profile.RemoteDNS = "8.8.8.8"
	}
	if config.Profile.ListenAddress == "" {
		config.Profile.ListenAddress = "127.0.0.1"
	}
	if config.Profile.LocalDNSPort == 0 {
		config.Profile.LocalDNSPort = 5450
	}
	if config.Profile.ProxyPort == 0 {
		config.Profile.ProxyPort = 1080
	}

	// 解析器默认值
	if config.Resolver.HostsFile == "" {
		config.Resolver.HostsFile = "hosts"
	}
	if config.Resolver.MinimumTTL == 0 {
		config.Resolver.MinimumTTL = 120
	}
	if config.Resolver.CacheSize == 0 {
		config.Resolver.CacheSize = 4096
	}
	if config.Resolver.IPNetworkFile == "" {
		config.Resolver.IPNetworkFile = "china_ip_list.txt"
	}
	if config.Resolver.ConfigFile == "" {
		config.Resolver.ConfigFile = "overture.conf"
	}

	// 持久化默认值
	if config.Persistence.DataDir == "" {
		config.Persistence.DataDir = "data"
	}
	if config.Persistence.Database.Type == "" {
		config.Persistence.Database.Type = "file"
	}
	if config.Persistence.Database.SQLiteFile == "" {
		config.Persistence.Database.SQLiteFile = filepath.Join(config.Persistence.DataDir, "boomacl.db")
	}

	// 下载默认值
	if config.Fetch.Timeout == 0 {
		config.Fetch.Timeout = 30
	}
	if config.Fetch.UserAgent == "" {
		config.Fetch.UserAgent = "BoomACL/" + config.App.Version
	}
	if config.Fetch.MaxBytes == 0 {
		config.Fetch.MaxBytes = 8 << 20
	}
}

// validateConfig 验证配置
func validateConfig(config *Config) error {
	if strings.TrimSpace(config.Profile.Route) == "" {
		return fmt.Errorf("路由模式不能为空")
	}
	if !isValidPort(config.Profile.LocalDNSPort) {
		return fmt.Errorf("无效的本地 DNS 端口: %d", config.Profile.LocalDNSPort)
	}
	if !isValidPort(config.Profile.ProxyPort) {
		return fmt.Errorf("无效的代理端口: %d", config.Profile.ProxyPort)
	}

	switch config.Persistence.Database.Type {
	case "file", "sqlite":
	default:
		return fmt.Errorf("不支持的数据库类型: %s", config.Persistence.Database.Type)
	}

	if !isValidLogLevel(config.Logging.Level) {
		return fmt.Errorf("无效的日志级别: %s", config.Logging.Level)
	}
	switch config.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("无效的日志格式: %s", config.Logging.Format)
	}

	if config.Fetch.Timeout < 0 || config.Fetch.MaxBytes < 0 {
		return fmt.Errorf("下载超时与大小上限不能为负数")
	}

	return nil
}

func isValidPort(port int) bool {
	return port > 0 && port <= 65535
}

// isValidLogLevel 验证日志级别
func isValidLogLevel(level string) bool {
	validLevels := []string{"trace", "debug", "info", "warn", "warning", "error", "fatal"}
	level = strings.ToLower(level)
	for _, valid := range validLevels {
		if level == valid {
			return true
		}
	}
	return false
}

// SaveConfig 保存配置到文件
func SaveConfig(config *Config, configPath string) error {
	if configPath == "" {
		configPath = getDefaultConfigPath()
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建配置目录失败: %v", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("序列化配置失败: %v", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("写入配置文件失败: %v", err)
	}

	return nil
}

// GetConfigPath 获取配置文件路径
func GetConfigPath() string {
	return getDefaultConfigPath()
}

// GetFetchTimeout 获取规则下载超时
func (c *Config) GetFetchTimeout() time.Duration {
	if c.Fetch.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Fetch.Timeout) * time.Second
}

// GetDataDir 获取数据目录
func (c *Config) GetDataDir() string {
	if c.Persistence.DataDir == "" {
		return "data"
	}
	return c.Persistence.DataDir
}

// GetDatabaseType 获取数据库类型
func (c *Config) GetDatabaseType() string {
	if c.Persistence.Database.Type == "" {
		return "file"
	}
	return c.Persistence.Database.Type
}

// IsSQLiteEnabled 检查是否使用 SQLite 存储规则文件
func (c *Config) IsSQLiteEnabled() bool {
	return c.GetDatabaseType() == "sqlite"
}

// GetSQLiteFile 获取 SQLite 数据库文件路径
func (c *Config) GetSQLiteFile() string {
	if c.Persistence.Database.SQLiteFile == "" {
		return filepath.Join(c.GetDataDir(), "boomacl.db")
	}
	return c.Persistence.Database.SQLiteFile
}

// GetResolverConfigFile 获取 overture 配置文件名
func (c *Config) GetResolverConfigFile() string {
	if c.Resolver.ConfigFile == "" {
		return "overture.conf"
	}
	return c.Resolver.ConfigFile
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsDebug 检查是否启用调试模式
func (c *Config) IsDebug() bool {
	return c.App.Debug
}
