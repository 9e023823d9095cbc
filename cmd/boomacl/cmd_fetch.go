package main

import (
	"context"

	"github.com/spf13/cobra"
)

var commandFetch = &cobra.Command{
	Use:   "fetch",
	Short: "下载自定义规则 (本地已存在则跳过)",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := fetch(); err != nil {
			fatal(err)
		}
	},
}

func init() {
	mainCommand.AddCommand(commandFetch)
}

func fetch() error {
	svc, store, err := newService()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := svc.FetchCustomRules(context.Background()); err != nil {
		return err
	}
	log.WithField("url", cfg.Profile.ACLURL).Info("自定义规则已就绪")
	return nil
}
