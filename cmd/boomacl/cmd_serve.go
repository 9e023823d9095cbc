package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/winspan/boomacl/internal/dns"
	admin "github.com/winspan/boomacl/internal/web"
)

var commandServe = &cobra.Command{
	Use:   "serve",
	Short: "生成配置并启动管理接口，SIGHUP 重新加载",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := serve(); err != nil {
			fatal(err)
		}
	},
}

func init() {
	mainCommand.AddCommand(commandServe)
}

func serve() error {
	svc, store, err := newService()
	if err != nil {
		return err
	}
	defer store.Close()
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 首次加载失败不退出，管理接口仍可用于上传规则
	if _, err := svc.Reload(ctx); err != nil {
		log.WithError(err).Warn("首次加载规则失败")
	}
	if err := svc.Watch(ctx); err != nil {
		log.WithError(err).Warn("规则文件监听未启动")
	}

	r := chi.NewRouter()
	admin.BindRoutes(r, svc, dns.NewProber(5*time.Second, 8), cfg)

	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTP,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.HTTP).Info("管理接口已启动")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigc)

	for {
		select {
		case err := <-errc:
			return err
		case s := <-sigc:
			if s == syscall.SIGHUP {
				_, _ = svc.Reload(ctx)
				continue
			}
			log.Info("正在退出")
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			return httpSrv.Shutdown(shutdownCtx)
		}
	}
}
