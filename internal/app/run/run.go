package run

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/John-Robertt/mediasort/internal/app"
	"github.com/John-Robertt/mediasort/internal/app/decision"
	"github.com/John-Robertt/mediasort/internal/config"
	"github.com/John-Robertt/mediasort/internal/domain"
	"github.com/John-Robertt/mediasort/internal/infra/fsx"
	"github.com/John-Robertt/mediasort/internal/infra/lock"
	"github.com/John-Robertt/mediasort/internal/report"
	"github.com/John-Robertt/mediasort/internal/scan"
	"github.com/John-Robertt/mediasort/internal/tags"
)

// FatalError 表示整个运行无法继续（source 不可用、目标目录被锁定等）。
// 除此之外的失败都降级为单个文件/报表级别，不中断运行。
type FatalError struct {
	Code string
	Err  error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s：%v", e.Code, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// CopyFunc 是字节复制协作方；默认 fsx.CopyFile。
type CopyFunc func(src, dst string, overwrite bool) error

// Deps 是 Execute 的可替换依赖；零值可用。
type Deps struct {
	Tags   tags.Extractor
	Copy   CopyFunc
	Logger zerolog.Logger
	// DestFs 是决策阶段查询目标侧已有文件的视图；nil 表示真实文件系统。
	DestFs afero.Fs
	// LockWait 是等待目标目录锁的时长；0 表示只尝试一次。
	LockWait time.Duration
}

// Execute 执行一次 run（dry-run/apply），返回对外稳定的 RunReport 与冻结的决策表。
//
// 阶段严格按顺序执行，每个阶段完成后才开始下一个：
// lock(apply) -> scan -> classify -> enrich -> decide -> copy(apply) -> report(apply)
//
// dry-run 不做任何写入（包括锁文件与报表）。
// 返回的 error 只可能是 *FatalError 或 ctx 取消；此时 RunReport 仍然完整可输出。
func Execute(ctx context.Context, eff config.EffectiveConfig, deps Deps, obs Observer) (domain.RunReport, *decision.Table, error) {
	if obs == nil {
		obs = nopObserver{}
	}
	if deps.Copy == nil {
		deps.Copy = fsx.CopyFile
	}
	if deps.Tags == nil {
		deps.Tags = tags.FileExtractor{}
	}
	if deps.DestFs == nil {
		deps.DestFs = afero.NewOsFs()
	}
	logger := deps.Logger

	obs.OnStart(eff)

	rr := domain.RunReport{
		RunID:       uuid.NewString(),
		Source:      eff.Source,
		Destination: eff.Destination,
		DryRun:      !eff.Apply,
		StartedAt:   time.Now().UTC(),
		Files:       make([]domain.FileResult, 0, 128),
	}
	logger = logger.With().Str("run_id", rr.RunID).Logger()

	fatal := func(code string, err error) (domain.RunReport, *decision.Table, error) {
		rr.Errors = append(rr.Errors, domain.ErrorEntry{Code: code, Msg: err.Error()})
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		logger.Error().Err(err).Str("code", code).Msg("运行中止")
		return rr, nil, &FatalError{Code: code, Err: err}
	}

	if eff.Apply {
		l, err := lock.Acquire(ctx, eff.Destination, deps.LockWait)
		if err != nil {
			if errors.Is(err, lock.ErrLocked) {
				return fatal(domain.ErrCodeDestLocked, err)
			}
			return fatal(domain.ErrCodeDestInvalid, err)
		}
		defer func() {
			if err := l.Release(); err != nil {
				logger.Warn().Err(err).Str("lock", l.Path()).Msg("释放目标目录锁失败")
			}
		}()
	}

	// scan
	started := time.Now()
	excludes := append([]string{}, eff.ExcludeDirs...)
	if scan.IsUnder(eff.Destination, eff.Source) {
		excludes = append(excludes, eff.Destination)
	}
	records, scanErrs, err := scan.Files(eff.Source, excludes)
	if err != nil {
		return fatal(domain.ErrCodeSourceInvalid, err)
	}
	for _, se := range scanErrs {
		logger.Warn().Err(se.Err).Str("path", se.Path).Msg("扫描失败，已跳过")
		rr.Errors = append(rr.Errors, domain.ErrorEntry{Code: domain.ErrCodeScanFailed, Path: se.Path, Msg: se.Err.Error()})
	}
	obs.OnPhaseDone(PhaseScan, map[string]any{
		"files":  len(records),
		"errors": len(scanErrs),
	}, time.Since(started))

	// classify
	started = time.Now()
	app.ClassifyAll(records)
	counts := map[string]any{}
	for _, it := range app.GroupByCategory(records) {
		counts[it.Category.String()] = len(it.FileIdx)
	}
	obs.OnPhaseDone(PhaseClassify, counts, time.Since(started))

	// enrich
	started = time.Now()
	tagged, tagFailed, err := enrich(ctx, records, deps.Tags, eff.Concurrency, logger)
	if err != nil {
		return fatal(domain.ErrCodeCanceled, err)
	}
	obs.OnPhaseDone(PhaseEnrich, map[string]any{
		"audio":    tagged,
		"fallback": tagFailed,
	}, time.Since(started))

	// decide
	started = time.Now()
	tbl, err := decision.Build(ctx, records, decision.Options{
		DestRoot:   eff.Destination,
		SourceRoot: eff.Source,
		Fs:         deps.DestFs,
		Logger:     logger,
		Reserved:   append(report.Reserved(eff.Destination), filepath.Join(eff.Destination, lock.FileName)),
	})
	if err != nil {
		if ctx.Err() != nil {
			return fatal(domain.ErrCodeCanceled, err)
		}
		return fatal(domain.ErrCodeDecideFailed, err)
	}
	decided := tbl.Counts()
	obs.OnPhaseDone(PhaseDecide, map[string]any{
		"copied":  decided[domain.ResultCopied],
		"renamed": decided[domain.ResultRenamed],
		"ignored": decided[domain.ResultIgnored],
	}, time.Since(started))

	outcomes := tbl.Outcomes()
	entries := make([]report.Entry, len(records))
	for i := range records {
		entries[i] = report.Entry{Record: records[i], Outcome: outcomes[i]}
	}

	if !eff.Apply {
		for i, e := range entries {
			res := fileResult(e)
			rr.Files = append(rr.Files, res)
			obs.OnFileDone(i+1, len(entries), res, e.Record.Size, 0)
		}
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		return rr, tbl, nil
	}

	// copy
	started = time.Now()
	failed := copyAll(ctx, entries, deps.Copy, eff.Concurrency, logger, obs)
	for _, e := range entries {
		rr.Files = append(rr.Files, fileResult(e))
	}
	obs.OnPhaseDone(PhaseCopy, map[string]any{
		"workers": max(eff.Concurrency, 1),
		"failed":  failed,
	}, time.Since(started))

	// report
	started = time.Now()
	rerr := report.Write(eff.Destination, entries, report.Options{
		Thumbnails:    eff.Report.Thumbnails,
		ThumbnailSize: eff.Report.ThumbnailSize,
		Concurrency:   eff.Concurrency,
		Logger:        logger,
	})
	for _, f := range report.Failures(rerr) {
		rr.Errors = append(rr.Errors, domain.ErrorEntry{Code: domain.ErrCodeReportFailed, Path: f.Path, Msg: f.Error()})
	}

	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	if err := report.WriteRunJSON(eff.Destination, rr); err != nil {
		logger.Error().Err(err).Msg("写入 report.json 失败")
		rr.Errors = append(rr.Errors, domain.ErrorEntry{Code: domain.ErrCodeReportFailed, Path: report.RunJSONFile, Msg: err.Error()})
	}
	obs.OnPhaseDone(PhaseReport, map[string]any{
		"failed": len(report.Failures(rerr)),
	}, time.Since(started))

	return rr, tbl, nil
}

// enrich 为音频记录读取标签（有界并发）；每个 goroutine 只写自己的记录。
// 读取失败不是错误：回退为 Unknown* 并计入 fallback。
func enrich(ctx context.Context, records []domain.FileRecord, ex tags.Extractor, concurrency int, logger zerolog.Logger) (int, int, error) {
	var (
		mu       sync.Mutex
		total    int
		fallback int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))
	for i := range records {
		if records[i].Category != domain.CategoryAudio {
			continue
		}
		total++
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			t, err := tags.Read(ex, records[i].Path)
			if err != nil {
				logger.Debug().Err(err).Str("file", records[i].Path).Msg("音频标签读取失败，使用默认值")
				mu.Lock()
				fallback++
				mu.Unlock()
			}
			records[i].Extra = t.Extra()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return total, fallback, err
	}
	return total, fallback, nil
}

// copyAll 按决策复制所有需要落盘的文件，返回失败数。
// 决策保证每个目标路径最多一个来源，因此复制可以并发。
func copyAll(ctx context.Context, entries []report.Entry, cp CopyFunc, concurrency int, logger zerolog.Logger, obs Observer) int {
	var (
		mu     sync.Mutex
		done   int
		failed int
	)
	total := len(entries)

	var g errgroup.Group
	g.SetLimit(max(concurrency, 1))
	for i := range entries {
		g.Go(func() error {
			started := time.Now()
			e := &entries[i]
			if e.Outcome.Copied() {
				if err := ctx.Err(); err != nil {
					e.CopyErr = err
				} else if err := cp(e.Record.Path, e.Outcome.Dest, e.Outcome.Overwrite); err != nil {
					e.CopyErr = err
				}
				if e.CopyErr != nil {
					logger.Error().Err(e.CopyErr).
						Str("source", e.Record.Path).
						Str("dest", e.Outcome.Dest).
						Msg("复制失败")
				}
			}

			mu.Lock()
			done++
			n := done
			if e.CopyErr != nil {
				failed++
			}
			mu.Unlock()
			obs.OnFileDone(n, total, fileResult(*e), e.Record.Size, time.Since(started))
			return nil
		})
	}
	_ = g.Wait()
	return failed
}

func fileResult(e report.Entry) domain.FileResult {
	res := domain.FileResult{
		Src:      e.Record.Path,
		Dst:      e.Outcome.Dest,
		Category: e.Outcome.Category.String(),
		Result:   e.Outcome.Result,
		Reason:   e.Outcome.Reason,
	}
	if e.CopyErr != nil {
		res.Error = fmt.Sprintf("%s：%v", domain.ErrCodeCopyFailed, e.CopyErr)
	}
	return res
}
