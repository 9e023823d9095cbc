package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/winspan/boomacl/internal/acl"
)

var checkBypass bool

var commandCheck = &cobra.Command{
	Use:   "check <file>",
	Short: "解析 ACL 文件并输出统计",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := check(cmd.Context(), args[0]); err != nil {
			fatal(err)
		}
	},
}

func init() {
	commandCheck.Flags().BoolVar(&checkBypass, "default-bypass", false, "未声明时默认直连")
	mainCommand.AddCommand(commandCheck)
}

func check(ctx context.Context, path string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	rules := acl.New()
	if err := rules.FromReader(ctx, file, checkBypass, false); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if _, err := acl.NewMatcher(rules); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	fmt.Printf("bypass_by_default: %v\n", rules.Bypass)
	fmt.Printf("remote_dns:        %v\n", rules.RemoteDNS)
	fmt.Printf("bypass hostnames:  %d\n", rules.BypassHostnames.Len())
	fmt.Printf("proxy hostnames:   %d\n", rules.ProxyHostnames.Len())
	fmt.Printf("subnets:           %d\n", rules.Subnets.Len())
	return nil
}
