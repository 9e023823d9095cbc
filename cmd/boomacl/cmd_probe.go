package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/winspan/boomacl/internal/dns"
)

var (
	probeName    string
	probeTimeout time.Duration
)

var commandProbe = &cobra.Command{
	Use:   "probe",
	Short: "生成配置并探测其中的上游 DNS",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := probe(); err != nil {
			fatal(err)
		}
	},
}

func init() {
	commandProbe.Flags().StringVar(&probeName, "name", "www.example.com", "查询的域名")
	commandProbe.Flags().DurationVar(&probeTimeout, "timeout", 5*time.Second, "单个上游超时")
	mainCommand.AddCommand(commandProbe)
}

func probe() error {
	svc, store, err := newService()
	if err != nil {
		return err
	}
	defer store.Close()

	snapshot, err := svc.Reload(context.Background())
	if err != nil {
		return err
	}

	results := dns.NewProber(probeTimeout, 8).Probe(context.Background(), snapshot.Policy.Config.Servers(), probeName)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tADDRESS\tPROTOCOL\tPROXY\tRTT\tRESULT")
	failed := 0
	for _, r := range results {
		status := fmt.Sprintf("%s (%d)", r.Rcode, r.Answers)
		if !r.OK() {
			status = r.Error
			failed++
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\t%s\n", r.Name, r.Address, r.Protocol, r.Proxied, r.RTT.Round(time.Millisecond), status)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if failed == len(results) && failed > 0 {
		return fmt.Errorf("全部 %d 个上游探测失败", failed)
	}
	return nil
}
