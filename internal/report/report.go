// Package report 把冻结后的决策表渲染为目标目录下的报表：
// images/videos 的 HTML 图库、audio/other 的 CSV/XLSX、master_report.xlsx 以及 .mediasort/report.json。
//
// 报表只读取决策结果，不改变任何决策；单个报表失败不影响其他报表，也不回滚已复制的文件。
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/mediasort/internal/domain"
	"github.com/John-Robertt/mediasort/internal/infra/fsx"
)

// 报表文件名（相对目标根目录）。
const (
	GalleryFile     = "index.html"
	AudioCSVFile    = "audio_report.csv"
	OtherCSVFile    = "other_report.csv"
	OtherXLSXFile   = "other_report.xlsx"
	MasterXLSXFile  = "master_report.xlsx"
	StateDir        = ".mediasort"
	RunJSONFile     = "report.json"
	ThumbnailsDir   = "thumbnails"
	DefaultThumbPix = 128
)

// Entry 是报表的一行输入：源记录 + 决策 + 复制结果。
type Entry struct {
	Record  domain.FileRecord
	Outcome domain.Outcome
	// CopyErr 非空表示决策要求复制但复制失败。
	CopyErr error
}

// Landed 报告该文件本次运行是否真的落到了 Outcome.Dest。
func (e Entry) Landed() bool {
	return e.CopyErr == nil && e.Outcome.Copied()
}

// Reserved 返回 destRoot 下由报表占用的路径（文件或目录）；决策阶段不得把源文件放到这些位置。
func Reserved(destRoot string) []string {
	destRoot = filepath.Clean(destRoot)
	return []string{
		filepath.Join(destRoot, domain.CategoryImage.Dir(), GalleryFile),
		filepath.Join(destRoot, domain.CategoryVideo.Dir(), GalleryFile),
		filepath.Join(destRoot, domain.CategoryAudio.Dir(), AudioCSVFile),
		filepath.Join(destRoot, domain.CategoryOther.Dir(), OtherCSVFile),
		filepath.Join(destRoot, domain.CategoryOther.Dir(), OtherXLSXFile),
		filepath.Join(destRoot, MasterXLSXFile),
		filepath.Join(destRoot, StateDir),
	}
}

type Options struct {
	Thumbnails    bool
	ThumbnailSize int
	// Concurrency 是缩略图生成的并发上限。
	Concurrency int
	Logger      zerolog.Logger
}

// Error 是单个报表写入失败。
type Error struct {
	Report string
	Path   string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("生成报表 %s 失败（%s）：%v", e.Report, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Failures 从 Write 返回的 error 中取出每个失败的报表。
func Failures(err error) []*Error {
	if err == nil {
		return nil
	}
	var errs []error
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		errs = j.Unwrap()
	} else {
		errs = []error{err}
	}
	out := make([]*Error, 0, len(errs))
	for _, e := range errs {
		var re *Error
		if errors.As(e, &re) {
			out = append(out, re)
		} else {
			out = append(out, &Error{Report: "unknown", Err: e})
		}
	}
	return out
}

// Write 在 destRoot 下生成全部报表。entries 必须按源列表顺序排列。
//
// - 分类报表列出运行结束后目标树中代表各源文件的文件：本次落盘的，以及 ignored 但已有文件仍在的
// - 某分类没有任何可列出的文件时，不生成该分类的报表
// - master_report.xlsx 总是生成（每个源文件一行）
// - 返回值是所有失败报表的 errors.Join；nil 表示全部成功
func Write(destRoot string, entries []Entry, opts Options) error {
	destRoot = filepath.Clean(destRoot)
	if opts.ThumbnailSize <= 0 {
		opts.ThumbnailSize = DefaultThumbPix
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	byCat := make(map[domain.Category][]Entry, len(domain.Categories))
	for _, e := range listed(entries) {
		byCat[e.Outcome.Category] = append(byCat[e.Outcome.Category], e)
	}

	var errs []error
	add := func(name, path string, err error) {
		if err != nil {
			opts.Logger.Error().Err(err).Str("report", name).Str("path", path).Msg("报表生成失败")
			errs = append(errs, &Error{Report: name, Path: path, Err: err})
			return
		}
		opts.Logger.Debug().Str("report", name).Str("path", path).Msg("报表已生成")
	}

	for _, c := range []domain.Category{domain.CategoryImage, domain.CategoryVideo} {
		if es := byCat[c]; len(es) > 0 {
			dir := filepath.Join(destRoot, c.Dir())
			add(c.Dir()+" gallery", filepath.Join(dir, GalleryFile), writeGallery(dir, c, es, opts))
		}
	}

	if es := byCat[domain.CategoryAudio]; len(es) > 0 {
		dir := filepath.Join(destRoot, domain.CategoryAudio.Dir())
		add("audio csv", filepath.Join(dir, AudioCSVFile), writeAudioCSV(dir, es))
	}

	if es := byCat[domain.CategoryOther]; len(es) > 0 {
		dir := filepath.Join(destRoot, domain.CategoryOther.Dir())
		add("other csv", filepath.Join(dir, OtherCSVFile), writeOtherCSV(dir, es))
		add("other xlsx", filepath.Join(dir, OtherXLSXFile), writeOtherXLSX(dir, es))
	}

	add("master xlsx", filepath.Join(destRoot, MasterXLSXFile), writeMasterXLSX(destRoot, entries))

	return errors.Join(errs...)
}

// listed 选出分类报表要列出的条目（保持源顺序），每个目标文件只出现一次。
//
// 返回的条目中 Outcome.Dest 是被列出的文件。ignored 条目改指向 Outcome.Existing，
// 修改时间取自磁盘上的文件。本次落盘的条目优先：同一路径上被顶替的条目不会带着旧标签出现。
func listed(entries []Entry) []Entry {
	chosen := make(map[string]int, len(entries))
	for i, e := range entries {
		if e.Landed() {
			chosen[e.Outcome.Dest] = i
		}
	}

	views := make(map[int]Entry, len(entries))
	for i, e := range entries {
		if e.Landed() {
			views[i] = e
			continue
		}
		if e.Outcome.Result != domain.ResultIgnored || e.Outcome.Existing == "" {
			continue
		}
		if _, taken := chosen[e.Outcome.Existing]; taken {
			continue
		}
		fi, err := os.Stat(e.Outcome.Existing)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		e.Outcome.Dest = e.Outcome.Existing
		e.Record.Modified = fi.ModTime()
		chosen[e.Outcome.Existing] = i
		views[i] = e
	}

	out := make([]Entry, 0, len(views))
	for i := range entries {
		if v, ok := views[i]; ok {
			out = append(out, v)
		}
	}
	return out
}

// WriteRunJSON 把 RunReport 原子写入 <destRoot>/.mediasort/report.json。
func WriteRunJSON(destRoot string, rr domain.RunReport) error {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFileAtomic(filepath.Join(destRoot, StateDir), RunJSONFile, b)
}
