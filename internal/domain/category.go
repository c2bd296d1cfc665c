package domain

import "strings"

// Category 是文件的顶层分类。
//
// 约束：零值 CategoryUnknown 只表示“尚未分类”；分类完成后每条记录必须是四种之一。
type Category int

const (
	CategoryUnknown Category = iota
	CategoryImage
	CategoryVideo
	CategoryAudio
	CategoryOther
)

// Categories 按固定顺序列出全部有效分类（用于分批与报表的稳定输出）。
var Categories = []Category{CategoryImage, CategoryVideo, CategoryAudio, CategoryOther}

func (c Category) String() string {
	switch c {
	case CategoryImage:
		return "image"
	case CategoryVideo:
		return "video"
	case CategoryAudio:
		return "audio"
	case CategoryOther:
		return "other"
	default:
		return ""
	}
}

// Dir 返回目标根目录下该分类的子目录名（images/videos/audio/other）。
func (c Category) Dir() string {
	switch c {
	case CategoryImage:
		return "images"
	case CategoryVideo:
		return "videos"
	case CategoryAudio:
		return "audio"
	default:
		return "other"
	}
}

func (c Category) Valid() bool {
	return c >= CategoryImage && c <= CategoryOther
}

// ParseCategory 解析 "image"/"video"/"audio"/"other"（大小写不敏感）。
func ParseCategory(s string) (Category, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "image":
		return CategoryImage, true
	case "video":
		return CategoryVideo, true
	case "audio":
		return CategoryAudio, true
	case "other":
		return CategoryOther, true
	default:
		return CategoryUnknown, false
	}
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	v, _ := ParseCategory(string(b))
	*c = v
	return nil
}
