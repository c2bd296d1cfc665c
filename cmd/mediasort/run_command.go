package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/mediasort/internal/app/run"
	"github.com/John-Robertt/mediasort/internal/config"
	"github.com/John-Robertt/mediasort/internal/domain"
	"github.com/John-Robertt/mediasort/internal/logging"
)

// lockWait 是 apply 模式下等待目标目录锁的时长。
const lockWait = 2 * time.Second

func newRunCommand(configFlag *string) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run <source> <destination>",
		Short: "扫描 source 并整理到 destination（默认 dry-run）",
		Long: `扫描 source 下的所有文件，按类型规划到 destination：
  images/<YYYY>/<MM-YYYY>/    图片（按创建时间）
  videos/<YYYY>/<MM-YYYY>/    视频（按创建时间）
  audio/<Artist>/<Album>/     音频（按标签）
  other/<相对路径>             其它文件

默认只输出决策，不写入任何文件；加 --apply 才会复制并生成报表。
source 与 destination 也可以来自配置文件或 MEDIASORT_SOURCE / MEDIASORT_DESTINATION。`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			code := runOnce(cmd, cliArgs(cmd, *configFlag, flags, args))
			if code != exitOK {
				return &exitError{code: code}
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func runOnce(cmd *cobra.Command, ca config.CLIArgs) int {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	cwd, err := os.Getwd()
	if err != nil {
		cmd.PrintErrf("读取当前目录失败：%v\n", err)
		return exitFailed
	}
	cwdAbs, _ := filepath.Abs(cwd)

	eff, err := config.LoadEffective(cwd, ca)
	if err != nil {
		emitReport(stdout, stderr, reportForConfigError(cwdAbs, ca, err))
		return exitFailed
	}

	logger, closer, err := logging.New(logging.Config{
		Level:      eff.Log.Level,
		File:       eff.Log.File,
		MaxSizeMB:  eff.Log.MaxSizeMB,
		MaxBackups: eff.Log.MaxBackups,
		MaxAgeDays: eff.Log.MaxAgeDays,
	}, stderr)
	if err != nil {
		emitReport(stdout, stderr, reportForConfigError(cwdAbs, ca, &config.Error{Code: config.ErrCodeInvalid, Err: err}))
		return exitFailed
	}
	defer closer.Close()

	progressW, interactive := pickProgressWriter(stdout, stderr)
	var (
		obs run.Observer
		ui  *progressUI
	)
	if interactive {
		ui = newProgressUI(progressW)
		obs = ui
	}

	rr, _, err := run.Execute(cmd.Context(), eff, run.Deps{
		Logger:   logger,
		LockWait: lockWait,
	}, obs)
	if ui != nil {
		ui.Close()
	}

	emitReport(stdout, stderr, rr)
	if interactive {
		emitLocations(progressW, eff)
	}

	// err 只可能是 *run.FatalError 或取消；两者 RunReport 都已输出。
	if err != nil || rr.Failed() {
		return exitFailed
	}
	return exitOK
}

// reportForConfigError 在配置阶段失败时合成一个 RunReport，保持 stdout 的 JSON 契约不变。
func reportForConfigError(cwdAbs string, ca config.CLIArgs, err error) domain.RunReport {
	now := time.Now().UTC()
	rr := domain.RunReport{
		Source:      absOr(cwdAbs, ca.Source),
		Destination: absOr(cwdAbs, ca.Destination),
		DryRun:      !(ca.ApplySet && ca.Apply),
		StartedAt:   now,
		FinishedAt:  now,
		Errors: []domain.ErrorEntry{{
			Code: config.Code(err),
			Msg:  err.Error(),
		}},
	}
	rr.Finalize()
	return rr
}

func absOr(base, p string) string {
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}
