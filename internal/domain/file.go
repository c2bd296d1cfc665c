package domain

import "time"

// Extra 中音频标签使用的键。
const (
	ExtraArtist = "artist"
	ExtraAlbum  = "album"
	ExtraTitle  = "title"
)

// FileRecord 描述一次扫描得到的源文件（每个源文件一条，整个运行期间保留）。
//
// 不变量（实现必须遵守）：
// - Path 必须是 clean + absolute，且在一次运行内唯一
// - 扫描阶段只做 stat，不读文件内容
// - Category 只由分类阶段写入；Extra 只由音频补全阶段写入
type FileRecord struct {
	Path     string
	RelPath  string // 相对 source root
	Size     int64
	Created  time.Time
	Modified time.Time

	Category Category
	Extra    map[string]string
}

// ExtraValue 读取 Extra[key]；缺失时返回空串。
func (r FileRecord) ExtraValue(key string) string {
	if r.Extra == nil {
		return ""
	}
	return r.Extra[key]
}
