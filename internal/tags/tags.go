package tags

import (
	"fmt"
	"os"
	"strings"

	"github.com/dhowden/tag"

	"github.com/John-Robertt/mediasort/internal/domain"
)

// 标签缺失/不可读时的占位值。
const (
	UnknownArtist = "UnknownArtist"
	UnknownAlbum  = "UnknownAlbum"
	UnknownTitle  = "UnknownTitle"
)

// Tags 是音频文件的最小标签集。
type Tags struct {
	Artist string
	Album  string
	Title  string
}

// Extractor 读取单个音频文件的标签。
//
// 约束：实现只读，不修改文件；失败时返回 error，由上层决定回退（不是致命错误）。
type Extractor interface {
	Extract(path string) (Tags, error)
}

// FileExtractor 基于 dhowden/tag 读取 ID3v1/ID3v2/MP4/FLAC/OGG 标签。
type FileExtractor struct{}

func (FileExtractor) Extract(path string) (Tags, error) {
	f, err := os.Open(path)
	if err != nil {
		return Tags{}, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return Tags{}, fmt.Errorf("读取标签失败 %q：%w", path, err)
	}
	artist := strings.TrimSpace(m.Artist())
	if artist == "" {
		artist = strings.TrimSpace(m.AlbumArtist())
	}
	return Tags{
		Artist: artist,
		Album:  strings.TrimSpace(m.Album()),
		Title:  strings.TrimSpace(m.Title()),
	}, nil
}

// WithDefaults 把空字段替换为 Unknown* 占位值。
func (t Tags) WithDefaults() Tags {
	if strings.TrimSpace(t.Artist) == "" {
		t.Artist = UnknownArtist
	}
	if strings.TrimSpace(t.Album) == "" {
		t.Album = UnknownAlbum
	}
	if strings.TrimSpace(t.Title) == "" {
		t.Title = UnknownTitle
	}
	return t
}

// Extra 转成 FileRecord.Extra 使用的键值形式。
func (t Tags) Extra() map[string]string {
	return map[string]string{
		domain.ExtraArtist: t.Artist,
		domain.ExtraAlbum:  t.Album,
		domain.ExtraTitle:  t.Title,
	}
}

// Read 读取标签并总是返回可用的结果：失败时返回全占位值与原始 error。
func Read(ex Extractor, path string) (Tags, error) {
	if ex == nil {
		return Tags{}.WithDefaults(), nil
	}
	t, err := ex.Extract(path)
	if err != nil {
		return Tags{}.WithDefaults(), err
	}
	return t.WithDefaults(), nil
}
