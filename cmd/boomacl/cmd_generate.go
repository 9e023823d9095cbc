package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var commandGenerate = &cobra.Command{
	Use:   "generate",
	Short: "加载当前路由的规则并写出 overture 配置",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := generate(); err != nil {
			fatal(err)
		}
	},
}

func init() {
	mainCommand.AddCommand(commandGenerate)
}

func generate() error {
	svc, store, err := newService()
	if err != nil {
		return err
	}
	defer store.Close()

	snapshot, err := svc.Reload(context.Background())
	if err != nil {
		return err
	}
	for _, path := range snapshot.Files {
		fmt.Println(path)
	}
	return nil
}
