// Package cli 实现 lcdctl：查看内置协议、离线回放抓包数据。
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taoyao-code/lcd-gateway/internal/output"
	"github.com/taoyao-code/lcd-gateway/internal/protocol/adapter"
	"github.com/taoyao-code/lcd-gateway/internal/protocol/registry"
)

// Version 构建时通过 -ldflags 注入
var Version = "dev"

type options struct {
	output  string
	verbose bool

	formatter output.Formatter
	registry  *registry.Registry
	logger    *zap.Logger
}

// NewRootCmd 每次返回新的命令树（便于测试）
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "lcdctl",
		Short: "LCD frame gateway toolkit: inspect protocols and replay captures",
		Long: `lcdctl lists the built-in LCD panel protocols and replays captured
packet dumps through the same frame reassembly engine the gateway runs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			f, err := output.NewFormatter(opts.output)
			if err != nil {
				return err
			}
			opts.formatter = f
			opts.logger = zap.NewNop()
			if opts.verbose {
				l, err := zap.NewDevelopment()
				if err != nil {
					return fmt.Errorf("init logger: %w", err)
				}
				opts.logger = l
			}
			opts.registry = registry.Default(adapter.Options{Logger: opts.logger})
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "table", "output format: table, json, yaml")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log decoder diagnostics to stderr")

	root.AddCommand(newProtocolsCmd(opts), newDecodeCmd(opts), newVersionCmd())
	return root
}

// Execute 运行命令，返回错误由 main 处理退出码
func Execute(args []string, stdout, stderr io.Writer) error {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.Execute()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show lcdctl version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "lcdctl version %s\n", Version)
			return err
		},
	}
}
