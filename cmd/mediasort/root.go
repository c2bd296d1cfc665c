package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "mediasort",
		Short:         "按类型整理图片、视频、音频与其它文件",
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "配置文件路径（默认探测 ./mediasort.{yaml,yml,toml,json}）")

	rootCmd.AddCommand(newRunCommand(&configFlag))
	rootCmd.AddCommand(newConfigCommand(&configFlag))

	return rootCmd
}

// runFlags 是 run 与 config show 共用的覆盖参数。
type runFlags struct {
	apply        bool
	concurrency  int
	logLevel     string
	noThumbnails bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.apply, "apply", false, "执行复制与报表写入（默认 dry-run）；支持 --apply=false 覆盖配置中的 apply: true")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 0, "复制/标签读取并发数（1-32，默认 4）")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "日志级别：trace|debug|info|warn|error")
	cmd.Flags().BoolVar(&f.noThumbnails, "no-thumbnails", false, "图库页不生成缩略图")
}
