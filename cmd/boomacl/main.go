package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/winspan/boomacl/internal/acl"
	"github.com/winspan/boomacl/internal/dns"
	"github.com/winspan/boomacl/internal/storage"
	"github.com/winspan/boomacl/pkg/config"
	"github.com/winspan/boomacl/pkg/logger"
	"github.com/winspan/boomacl/pkg/utils"
)

var (
	configPath string

	cfg *config.Config
	log *logger.Logger
)

var mainCommand = &cobra.Command{
	Use:              "boomacl",
	Short:            "ACL 规则解析与 overture 配置生成",
	PersistentPreRun: preRun,
	SilenceUsage:     true,
}

func init() {
	mainCommand.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径")
}

func main() {
	if err := mainCommand.Execute(); err != nil {
		os.Exit(1)
	}
}

func preRun(cmd *cobra.Command, args []string) {
	var err error
	if configPath == "" && !utils.FileExists(config.GetConfigPath()) {
		cfg = config.Default()
	} else {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			logrus.Fatal("加载配置失败: ", err)
		}
	}

	log, err = logger.NewLogger(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		logrus.Fatal("初始化日志失败: ", err)
	}
	acl.SetLogger(log.WithField("component", "acl"))
}

// newService 按配置装配存储、下载器与服务
func newService() (*dns.Service, storage.Store, error) {
	store, err := storage.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	fetcher := acl.NewHTTPFetcher(cfg.GetFetchTimeout(), cfg.Fetch.UserAgent, cfg.Fetch.MaxBytes)
	return dns.NewService(cfg, store, fetcher, log), store, nil
}

func fatal(err error) {
	log.WithError(err).Error("执行失败")
	_ = log.Close()
	os.Exit(1)
}
