package resolver

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/John-Robertt/mediasort/internal/domain"
)

// DefaultMaxSuffix 是 _<N> 后缀探测的上限（探测是有界循环，不是递归）。
const DefaultMaxSuffix = 9999

// ReasonPathConflict 表示目标路径被目录占用，无法放置文件。
const ReasonPathConflict = "path_type_conflict"

// Decision 是一次冲突判定的结果。
//
// 约束：
// - Final 永远非空：ignored 时是“保留下来的那份”所在的路径（通常就是候选路径）
// - Existing 只在 ignored 时可能非空：运行结束后代表 incoming 的那份已有文件（目录、后缀耗尽时为空）
// - Supersedes=true 表示 incoming 胜过了本次运行中更早的一条认领（上层需把那条改为 ignored）
type Decision struct {
	Final      string
	Existing   string
	Winner     domain.Winner
	Result     domain.Result
	Overwrite  bool
	Supersedes bool
	Reason     string
}

// occupant 描述目标路径当前（或本次运行结束后）的占用者。
type occupant struct {
	size     int64
	mod      time.Time
	dir      bool
	claimed  bool // 来自本次运行的认领，而不是磁盘
	overDisk bool // 认领覆盖了磁盘上原有的文件
}

// Resolver 按分类策略解决目标路径冲突。
//
// 目标侧的“存在性”由两层组成：
// - fs：目标目录的真实状态（只做 Stat）
// - claims：本次运行中已经分配出去的目标路径（尚未复制，但必须视为已占用）
//
// 这样两个 incoming 之间的冲突与 incoming 对已有文件的冲突走同一套规则。
//
// Resolver 不是并发安全的：同一目标子树必须由同一个 goroutine 串行调用。
type Resolver struct {
	fs        afero.Fs
	logger    zerolog.Logger
	claims    map[string]occupant
	reserved  []string
	maxSuffix int
}

type Option func(*Resolver)

// WithMaxSuffix 覆盖后缀探测上限（<=0 时使用默认值）。
func WithMaxSuffix(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxSuffix = n
		}
	}
}

// WithReserved 登记目标树中保留给报表的路径（文件或目录）。
// 规划到这些路径（或目录之下）的文件改用第一个不保留的 _<N> 变体，再走正常的冲突规则。
func WithReserved(paths ...string) Option {
	return func(r *Resolver) {
		for _, p := range paths {
			if p = strings.TrimSpace(p); p != "" {
				r.reserved = append(r.reserved, filepath.Clean(p))
			}
		}
	}
}

// WithLogger 设置 stat 失败等 warning 的输出目标。
func WithLogger(l zerolog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

func New(fsys afero.Fs, opts ...Option) *Resolver {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	r := &Resolver{
		fs:        fsys,
		logger:    zerolog.Nop(),
		claims:    make(map[string]occupant, 128),
		maxSuffix: DefaultMaxSuffix,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

type strategy func(r *Resolver, rec domain.FileRecord, candidate string, occ occupant) Decision

// strategies 是分类 -> 冲突策略表；每个有效分类必须有一项。
var strategies = map[domain.Category]strategy{
	domain.CategoryImage: keepOrRename,
	domain.CategoryVideo: keepOrRename,
	domain.CategoryAudio: largestWins,
	domain.CategoryOther: newestWins,
}

// Resolve 决定 rec 的最终目标路径以及冲突中的胜者，并把结果记入认领表。
//
// - 候选路径是保留路径：改用 _<N> 变体，copied 记为 renamed（reason=reserved_path）
// - 候选路径无人占用：原样通过，winner=incoming
// - 已有占用者的 Stat 失败（非“不存在”）：记 warning，按无冲突处理
//
// rec.Category 必须是有效分类；缺少策略属于编程错误，直接 panic。
func (r *Resolver) Resolve(rec domain.FileRecord, candidate string) Decision {
	candidate = filepath.Clean(candidate)
	if !r.isReserved(candidate) {
		return r.resolveAt(rec, candidate)
	}

	alt, ok := r.unreserved(candidate)
	if !ok {
		r.logger.Warn().Str("source", rec.Path).Str("dest", candidate).Msg("目标路径保留给报表，且没有可用的后缀变体")
		d := ignored(candidate, domain.ReasonReservedPath)
		d.Existing = ""
		return d
	}
	r.logger.Debug().Str("source", rec.Path).Str("planned", candidate).Str("dest", alt).Msg("目标路径保留给报表，改用后缀变体")
	d := r.resolveAt(rec, alt)
	if d.Result == domain.ResultCopied {
		d.Result = domain.ResultRenamed
		if d.Reason == "" {
			d.Reason = domain.ReasonReservedPath
		}
	}
	return d
}

func (r *Resolver) resolveAt(rec domain.FileRecord, candidate string) Decision {
	s, ok := strategies[rec.Category]
	if !ok {
		panic(fmt.Sprintf("resolver: 分类 %v 没有冲突策略（%s）", rec.Category, rec.Path))
	}

	occ, exists, err := r.occupant(candidate)
	if err != nil {
		r.logger.Warn().
			Err(err).
			Str("source", rec.Path).
			Str("dest", candidate).
			Msg("目标文件 stat 失败，按无冲突处理")
		r.claim(candidate, rec, false)
		return Decision{
			Final:  candidate,
			Winner: domain.WinnerIncoming,
			Result: domain.ResultCopied,
			Reason: domain.ReasonStatFailed,
		}
	}
	if !exists {
		r.claim(candidate, rec, false)
		return Decision{Final: candidate, Winner: domain.WinnerIncoming, Result: domain.ResultCopied}
	}
	return s(r, rec, candidate, occ)
}

// isReserved 报告 p 是否等于某个保留路径或位于保留目录之下。
func (r *Resolver) isReserved(p string) bool {
	for _, x := range r.reserved {
		if p == x || strings.HasPrefix(p, x+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// unreserved 返回 p 的第一个不保留的 _<N> 变体。
func (r *Resolver) unreserved(p string) (string, bool) {
	ext := filepath.Ext(p)
	base := strings.TrimSuffix(p, ext)
	for n := 1; n <= r.maxSuffix; n++ {
		alt := fmt.Sprintf("%s_%d%s", base, n, ext)
		if !r.isReserved(alt) {
			return alt, true
		}
	}
	return "", false
}

// keepOrRename：大小相同视为重复（保留已有），大小不同则 incoming 加 _<N> 后缀，两者都保留。
func keepOrRename(r *Resolver, rec domain.FileRecord, candidate string, occ occupant) Decision {
	if !occ.dir && occ.size == rec.Size {
		return ignored(candidate, domain.ReasonDuplicateSize)
	}

	ext := filepath.Ext(candidate)
	base := strings.TrimSuffix(candidate, ext)
	for n := 1; n <= r.maxSuffix; n++ {
		p := fmt.Sprintf("%s_%d%s", base, n, ext)
		o, exists, err := r.occupant(p)
		if err != nil {
			// 无法确认是否空闲：当作已占用，继续向后探测。
			r.logger.Warn().Err(err).Str("dest", p).Msg("后缀候选 stat 失败，跳过该编号")
			continue
		}
		if !exists {
			r.claim(p, rec, false)
			return Decision{Final: p, Winner: domain.WinnerIncoming, Result: domain.ResultRenamed}
		}
		// 之前的运行已经以 _N 导入过同一份文件：保持幂等，不再生成新编号。
		if !o.dir && o.size == rec.Size {
			return ignored(p, domain.ReasonDuplicateSize)
		}
	}

	r.logger.Warn().
		Str("source", rec.Path).
		Str("dest", candidate).
		Int("max_suffix", r.maxSuffix).
		Msg("后缀编号已耗尽，忽略该文件")
	d := ignored(candidate, domain.ReasonSuffixExhausted)
	d.Existing = ""
	return d
}

// largestWins：体积大的占据规范路径；相等时保留已有占用者。
func largestWins(r *Resolver, rec domain.FileRecord, candidate string, occ occupant) Decision {
	if occ.dir {
		return pathConflict(candidate)
	}
	if rec.Size > occ.size {
		return r.replace(rec, candidate, occ)
	}
	return ignored(candidate, domain.ReasonSmallerAudio)
}

// newestWins：已有文件的 mtime 严格更新时保留已有，否则 incoming 胜出（路径不变，只决定内容）。
func newestWins(r *Resolver, rec domain.FileRecord, candidate string, occ occupant) Decision {
	if occ.dir {
		return pathConflict(candidate)
	}
	if occ.size == rec.Size && sameSecond(occ.mod, rec.Modified) {
		return ignored(candidate, domain.ReasonSameFile)
	}
	if occ.mod.After(rec.Modified) {
		return ignored(candidate, domain.ReasonOlderOther)
	}
	return r.replace(rec, candidate, occ)
}

func (r *Resolver) replace(rec domain.FileRecord, candidate string, occ occupant) Decision {
	overDisk := !occ.claimed || occ.overDisk
	r.claim(candidate, rec, overDisk)
	return Decision{
		Final:      candidate,
		Winner:     domain.WinnerIncoming,
		Result:     domain.ResultCopied,
		Overwrite:  overDisk,
		Supersedes: occ.claimed,
		Reason:     domain.ReasonReplaced,
	}
}

func ignored(final, reason string) Decision {
	return Decision{Final: final, Existing: final, Winner: domain.WinnerExisting, Result: domain.ResultIgnored, Reason: reason}
}

func pathConflict(candidate string) Decision {
	return Decision{Final: candidate, Winner: domain.WinnerExisting, Result: domain.ResultIgnored, Reason: ReasonPathConflict}
}

func (r *Resolver) claim(path string, rec domain.FileRecord, overDisk bool) {
	r.claims[path] = occupant{size: rec.Size, mod: rec.Modified, claimed: true, overDisk: overDisk}
}

// occupant 查询 path 的占用者：先查本次运行的认领，再 Stat 目标文件系统。
func (r *Resolver) occupant(path string) (occupant, bool, error) {
	if c, ok := r.claims[path]; ok {
		return c, true, nil
	}
	fi, err := r.fs.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return occupant{}, false, nil
		}
		return occupant{}, false, err
	}
	return occupant{size: fi.Size(), mod: fi.ModTime(), dir: fi.IsDir()}, true, nil
}

// sameSecond 在秒级比较两个时间（目标文件系统的 mtime 精度可能低于源文件系统）。
func sameSecond(a, b time.Time) bool {
	return a.Truncate(time.Second).Equal(b.Truncate(time.Second))
}
