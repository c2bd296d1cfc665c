package report

import (
	"bytes"
	_ "embed"
	"errors"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/John-Robertt/mediasort/internal/domain"
	"github.com/John-Robertt/mediasort/internal/infra/fsx"
	"github.com/John-Robertt/mediasort/internal/infra/imgx"
)

//go:embed templates/gallery.html.tmpl
var galleryHTML string

var galleryTmpl = template.Must(template.New("gallery").Parse(galleryHTML))

type galleryPage struct {
	Title string
	Video bool
	Years []galleryYear
}

type galleryYear struct {
	Year   string
	Months []galleryMonth
}

type galleryMonth struct {
	Month string
	Files []galleryFile
}

type galleryFile struct {
	Name     string
	Href     string
	Thumb    string
	Modified time.Time
}

// writeGallery 生成 <dir>/index.html。
//
// 排列规则：年份倒序；同一年内月份正序；同一月内按修改时间从新到旧（同一时间按文件名）。
// 年/月取自目标路径的上两级目录（<YYYY>/<MM-YYYY>/<file>）。
func writeGallery(dir string, c domain.Category, entries []Entry, opts Options) error {
	video := c == domain.CategoryVideo

	thumbs := map[string]string{}
	if !video && opts.Thumbnails {
		thumbs = makeThumbnails(entries, opts)
	}

	years := map[string]map[string][]galleryFile{}
	for _, e := range entries {
		dest := e.Outcome.Dest
		monthDir := filepath.Dir(dest)
		month := filepath.Base(monthDir)
		year := filepath.Base(filepath.Dir(monthDir))

		href, err := relHref(dir, dest)
		if err != nil {
			return err
		}
		thumb := href
		if t, ok := thumbs[dest]; ok {
			if th, err := relHref(dir, t); err == nil {
				thumb = th
			}
		}

		if years[year] == nil {
			years[year] = map[string][]galleryFile{}
		}
		years[year][month] = append(years[year][month], galleryFile{
			Name:     filepath.Base(dest),
			Href:     href,
			Thumb:    thumb,
			Modified: e.Record.Modified,
		})
	}

	page := galleryPage{Title: cases.Title(language.English).String(c.Dir()), Video: video}
	for _, y := range sortedKeys(years, true) {
		gy := galleryYear{Year: y}
		for _, m := range sortedKeys(years[y], false) {
			files := years[y][m]
			sort.SliceStable(files, func(i, j int) bool {
				if !files[i].Modified.Equal(files[j].Modified) {
					return files[i].Modified.After(files[j].Modified)
				}
				return files[i].Name < files[j].Name
			})
			gy.Months = append(gy.Months, galleryMonth{Month: m, Files: files})
		}
		page.Years = append(page.Years, gy)
	}

	var buf bytes.Buffer
	if err := galleryTmpl.Execute(&buf, page); err != nil {
		return err
	}
	return fsx.WriteFileAtomic(dir, GalleryFile, buf.Bytes())
}

// makeThumbnails 为落盘的图片生成 <month>/thumbnails/<name> 缩略图，返回 dest -> 缩略图路径。
// 单张失败只记 warning，图库回退为引用原图。
func makeThumbnails(entries []Entry, opts Options) map[string]string {
	var (
		mu  sync.Mutex
		out = make(map[string]string, len(entries))
	)

	var g errgroup.Group
	g.SetLimit(opts.Concurrency)
	for _, e := range entries {
		dest := e.Outcome.Dest
		g.Go(func() error {
			p, err := thumbnail(dest, opts.ThumbnailSize)
			if err != nil {
				opts.Logger.Warn().Err(err).Str("file", dest).Msg("缩略图生成失败，图库引用原图")
				return nil
			}
			mu.Lock()
			out[dest] = p
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func thumbnail(dest string, size int) (string, error) {
	dir := filepath.Join(filepath.Dir(dest), ThumbnailsDir)
	name := ThumbnailName(filepath.Base(dest))
	path := filepath.Join(dir, name)

	// 已经生成过的缩略图直接复用。
	if fi, err := os.Stat(path); err == nil && fi.Mode().IsRegular() {
		return path, nil
	}

	src, err := os.ReadFile(dest)
	if err != nil {
		return "", err
	}
	data, err := imgx.ThumbnailJPEG(src, size)
	if err != nil {
		return "", err
	}
	if err := fsx.WriteFileAtomicNoOverwrite(dir, name, data); err != nil && !errors.Is(err, os.ErrExist) {
		return "", err
	}
	return path, nil
}

// ThumbnailName 返回缩略图文件名：缩略图总是 JPEG，非 .jpg/.jpeg 的原名追加 .jpg。
func ThumbnailName(base string) string {
	switch strings.ToLower(filepath.Ext(base)) {
	case ".jpg", ".jpeg":
		return base
	default:
		return base + ".jpg"
	}
}

func relHref(from, to string) (string, error) {
	rel, err := filepath.Rel(from, to)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

func sortedKeys[V any](m map[string]V, desc bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if desc {
			return keys[i] > keys[j]
		}
		return keys[i] < keys[j]
	})
	return keys
}
