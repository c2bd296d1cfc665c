package planner

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/John-Robertt/mediasort/internal/domain"
	"github.com/John-Robertt/mediasort/internal/tags"
)

// Planned 是规划结果。
//
// Fallback=true 表示 other 的相对路径不是基于 source root 计算的
// （source root 未知，或源文件不在基准目录之下）；上层应记录 warning。
type Planned struct {
	Dest     string
	Fallback bool
}

// Plan 基于 FileRecord 生成确定性的候选目标路径（只计算，不做任何 I/O）。
func Plan(rec domain.FileRecord, destRoot, sourceRoot string) string {
	return PlanDetail(rec, destRoot, sourceRoot).Dest
}

// PlanDetail 与 Plan 相同，但额外返回 other 分类是否走了回退规则。
//
// 规则（固定，不可配置）：
// - image/video：<dest>/<images|videos>/<YYYY>/<MM-YYYY>/<basename>，年月取 Created（不是 Modified）
// - audio：<dest>/audio/<artist>/<album>/<basename>，缺失时为 UnknownArtist/UnknownAlbum
// - other：<dest>/other/<相对 sourceRoot 的路径>；sourceRoot 为空时相对 dest 的父目录（兼容旧行为）
func PlanDetail(rec domain.FileRecord, destRoot, sourceRoot string) Planned {
	destRoot = filepath.Clean(destRoot)
	base := filepath.Base(rec.Path)

	switch rec.Category {
	case domain.CategoryImage, domain.CategoryVideo:
		year := rec.Created.Format("2006")
		month := rec.Created.Format("01-2006")
		return Planned{Dest: filepath.Join(destRoot, rec.Category.Dir(), year, month, base)}
	case domain.CategoryAudio:
		artist := pathComponent(rec.ExtraValue(domain.ExtraArtist), tags.UnknownArtist)
		album := pathComponent(rec.ExtraValue(domain.ExtraAlbum), tags.UnknownAlbum)
		return Planned{Dest: filepath.Join(destRoot, rec.Category.Dir(), artist, album, base)}
	default:
		rel, fallback := otherRel(rec.Path, destRoot, sourceRoot)
		return Planned{Dest: filepath.Join(destRoot, domain.CategoryOther.Dir(), rel), Fallback: fallback}
	}
}

// otherRel 计算 other 文件在 other/ 下的相对路径。
// 结果逃逸出基准目录（以 .. 开头）时退化为 basename，避免写到 other/ 之外。
func otherRel(path, destRoot, sourceRoot string) (string, bool) {
	baseDir := strings.TrimSpace(sourceRoot)
	fallback := false
	if baseDir == "" {
		baseDir = filepath.Dir(destRoot)
		fallback = true
	}
	rel, err := filepath.Rel(filepath.Clean(baseDir), path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.Base(path), true
	}
	return rel, fallback
}

// pathComponent 把标签值变成单个安全的目录名：NFC 规范化，分隔符/控制字符替换为 '_'。
func pathComponent(s, def string) string {
	s = norm.NFC.String(strings.TrimSpace(s))
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case unicode.IsControl(r):
			return '_'
		default:
			return r
		}
	}, s)
	s = strings.TrimSpace(s)
	if s == "" || s == "." || s == ".." {
		return def
	}
	return s
}
