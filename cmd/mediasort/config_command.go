package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/mediasort/internal/config"
)

func newConfigCommand(configFlag *string) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "配置相关工具",
	}
	configCmd.AddCommand(newConfigShowCommand(configFlag))
	return configCmd
}

func newConfigShowCommand(configFlag *string) *cobra.Command {
	var (
		flags  runFlags
		format string
	)

	cmd := &cobra.Command{
		Use:   "show [source] [destination]",
		Short: "输出合并后的最终配置",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cwd, err := os.Getwd()
			if err != nil {
				cmd.PrintErrf("读取当前目录失败：%v\n", err)
				return &exitError{code: exitFailed}
			}
			eff, err := config.LoadEffective(cwd, cliArgs(cmd, *configFlag, flags, args))
			if err != nil {
				cmd.PrintErrln(err.Error())
				return &exitError{code: exitFailed}
			}
			b, err := config.Encode(eff, format)
			if err != nil {
				cmd.PrintErrln(err.Error())
				return &exitError{code: exitUsage}
			}
			_, _ = cmd.OutOrStdout().Write(b)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "toml", "输出格式：toml|yaml|json")
	return cmd
}

// cliArgs 把 cobra flag 转为 config.CLIArgs；*Set 字段来自 Changed，保证显式的 false/0 也能覆盖配置。
func cliArgs(cmd *cobra.Command, configFile string, f runFlags, args []string) config.CLIArgs {
	ca := config.CLIArgs{
		ConfigFile:     configFile,
		Apply:          f.apply,
		ApplySet:       cmd.Flags().Changed("apply"),
		Concurrency:    f.concurrency,
		ConcurrencySet: cmd.Flags().Changed("concurrency"),
		LogLevel:       f.logLevel,
		LogLevelSet:    cmd.Flags().Changed("log-level"),
		NoThumbnails:   f.noThumbnails,
	}
	if len(args) > 0 {
		ca.Source = args[0]
	}
	if len(args) > 1 {
		ca.Destination = args[1]
	}
	return ca
}
