package decision

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/John-Robertt/mediasort/internal/app"
	"github.com/John-Robertt/mediasort/internal/app/planner"
	"github.com/John-Robertt/mediasort/internal/app/resolver"
	"github.com/John-Robertt/mediasort/internal/domain"
)

type Options struct {
	DestRoot   string
	SourceRoot string

	// Fs 是目标侧的文件系统视图；nil 表示真实文件系统。
	Fs        afero.Fs
	Logger    zerolog.Logger
	MaxSuffix int

	// Reserved 是目标树中保留给报表的路径（文件或目录），任何源文件都不能占据。
	Reserved []string
}

// Table 是冻结后的决策表：每个源文件恰好一条 Outcome，按源列表顺序排列。
// Build 返回后只读，可被多个 goroutine 同时读取。
type Table struct {
	outcomes []domain.Outcome
	index    map[string]int
}

// Build 依次执行 分类 -> 按分类分批 -> 规划 -> 冲突解决，生成决策表。
//
// - records 中尚未分类的记录会被就地写入 Category
// - 不同分类写入互不相交的目标子树，因此按分类并发；分类内严格按源顺序串行
// - 后来的 incoming 顶替了本次运行更早的认领时，更早的那条改为 ignored/superseded
//
// 除存在性检查（Stat）外不做任何 I/O。
func Build(ctx context.Context, records []domain.FileRecord, opts Options) (*Table, error) {
	if opts.DestRoot == "" {
		return nil, fmt.Errorf("决策表构建失败：destination root 为空")
	}
	fsys := opts.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	index := make(map[string]int, len(records))
	for i := range records {
		if _, dup := index[records[i].Path]; dup {
			return nil, fmt.Errorf("决策表构建失败：源路径重复：%s", records[i].Path)
		}
		index[records[i].Path] = i
	}

	app.ClassifyAll(records)
	items := app.GroupByCategory(records)

	// 每个分类只写自己 FileIdx 对应的槽位，goroutine 之间没有共享写。
	outcomes := make([]domain.Outcome, len(records))

	g, gctx := errgroup.WithContext(ctx)
	for _, it := range items {
		g.Go(func() error {
			return decideCategory(gctx, fsys, opts, records, it, outcomes)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Table{outcomes: outcomes, index: index}, nil
}

func decideCategory(ctx context.Context, fsys afero.Fs, opts Options, records []domain.FileRecord, it domain.WorkItem, out []domain.Outcome) error {
	logger := opts.Logger.With().Str("category", it.Category.String()).Logger()
	r := resolver.New(fsys,
		resolver.WithLogger(logger),
		resolver.WithMaxSuffix(opts.MaxSuffix),
		resolver.WithReserved(opts.Reserved...),
	)

	// holder：最终路径 -> 当前占据该路径的 outcome 槽位。
	holder := make(map[string]int, len(it.FileIdx))

	for _, i := range it.FileIdx {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec := records[i]

		p := planner.PlanDetail(rec, opts.DestRoot, opts.SourceRoot)
		if p.Fallback {
			logger.Warn().
				Str("source", rec.Path).
				Str("planned", p.Dest).
				Msg("other 文件的相对路径未基于 source root 计算")
		}

		d := r.Resolve(rec, p.Dest)
		o := domain.Outcome{
			Source:    rec.Path,
			Category:  rec.Category,
			Planned:   filepath.Clean(p.Dest),
			Result:    d.Result,
			Winner:    d.Winner,
			Overwrite: d.Overwrite,
			Reason:    d.Reason,
		}
		if d.Result == domain.ResultIgnored {
			o.Existing = d.Existing
		} else {
			o.Dest = d.Final

			if d.Supersedes {
				if prev, ok := holder[d.Final]; ok {
					out[prev].Dest = ""
					out[prev].Existing = d.Final
					out[prev].Result = domain.ResultIgnored
					out[prev].Winner = domain.WinnerExisting
					out[prev].Overwrite = false
					out[prev].Reason = domain.ReasonSuperseded
					logger.Debug().
						Str("source", out[prev].Source).
						Str("by", rec.Path).
						Str("dest", d.Final).
						Msg("本次运行中的认领被顶替")
				}
			}
			holder[d.Final] = i
		}
		out[i] = o
	}
	return nil
}

// Get 按源路径查询 Outcome。
func (t *Table) Get(src string) (domain.Outcome, bool) {
	i, ok := t.index[src]
	if !ok {
		return domain.Outcome{}, false
	}
	return t.outcomes[i], true
}

// Outcomes 返回所有 Outcome 的拷贝（源列表顺序）。
func (t *Table) Outcomes() []domain.Outcome {
	out := make([]domain.Outcome, len(t.outcomes))
	copy(out, t.outcomes)
	return out
}

// Len 返回决策表条目数（等于输入记录数）。
func (t *Table) Len() int { return len(t.outcomes) }

// Counts 按 Result 统计条目数。
func (t *Table) Counts() map[domain.Result]int {
	m := make(map[domain.Result]int, 3)
	for _, o := range t.outcomes {
		m[o.Result]++
	}
	return m
}
