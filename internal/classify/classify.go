package classify

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/mediasort/internal/domain"
)

// builtin 是内置的扩展名 -> media type 表。
//
// mime.TypeByExtension 的结果依赖宿主机的 mime.types（不同系统差异很大），
// 因此常见媒体扩展名先查这张固定表，保证同一输入在任何机器上得到同一分类。
var builtin = map[string]string{
	".jpg": "image/jpeg", ".jpeg": "image/jpeg", ".jpe": "image/jpeg",
	".png": "image/png", ".gif": "image/gif", ".bmp": "image/bmp",
	".tif": "image/tiff", ".tiff": "image/tiff", ".webp": "image/webp",
	".heic": "image/heic", ".heif": "image/heif", ".avif": "image/avif",
	".svg": "image/svg+xml", ".ico": "image/x-icon",

	".mp4": "video/mp4", ".m4v": "video/x-m4v", ".mov": "video/quicktime",
	".avi": "video/x-msvideo", ".mkv": "video/x-matroska", ".webm": "video/webm",
	".wmv": "video/x-ms-wmv", ".flv": "video/x-flv", ".mpg": "video/mpeg",
	".mpeg": "video/mpeg", ".3gp": "video/3gpp", ".ts": "video/mp2t",

	".mp3": "audio/mpeg", ".m4a": "audio/mp4", ".aac": "audio/aac",
	".flac": "audio/flac", ".wav": "audio/wav", ".ogg": "audio/ogg",
	".oga": "audio/ogg", ".opus": "audio/opus", ".wma": "audio/x-ms-wma",
	".aif": "audio/aiff", ".aiff": "audio/aiff", ".mid": "audio/midi",
	".midi": "audio/midi",
}

// MediaType 返回 path 的 media type（只看文件名/扩展名，不读内容）；未知返回空串。
func MediaType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return ""
	}
	if t, ok := builtin[ext]; ok {
		return t
	}
	return mime.TypeByExtension(ext)
}

// Classify 把文件归入 image/video/audio/other 之一。
//
// 纯函数：不做 I/O、不返回错误；无法识别的输入一律回退为 other。
func Classify(path string) domain.Category {
	t := MediaType(path)
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = t[:i]
	}
	major, _, _ := strings.Cut(strings.TrimSpace(t), "/")
	switch major {
	case "image":
		return domain.CategoryImage
	case "video":
		return domain.CategoryVideo
	case "audio":
		return domain.CategoryAudio
	default:
		return domain.CategoryOther
	}
}
