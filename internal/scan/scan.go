package scan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/John-Robertt/mediasort/internal/domain"
)

// Error 是单个文件/目录在扫描阶段的失败（跳过并记录，不中断扫描）。
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("扫描 %q 失败：%v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// RootError 表示 source root 本身不可读或不存在（唯一的致命扫描错误）。
type RootError struct {
	Root string
	Err  error
}

func (e *RootError) Error() string {
	return fmt.Sprintf("source 目录不可用 %q：%v", e.Root, e.Err)
}

func (e *RootError) Unwrap() error { return e.Err }

// Files 扫描 root 下的全部常规文件，并应用目录排除规则。
//
// 规则（硬约束）：
// - excludeDirs 中的相对路径相对 root；绝对路径按绝对路径处理（目标目录嵌套在 source 内时由上层传入）
// - 单个文件/子目录 stat 失败：记入 errs 并继续，绝不中断整个扫描
// - root 不存在/不是目录/不可读：返回 *RootError
//
// 注意：扫描阶段只做 stat（DirEntry.Info / statx），不读文件内容。
func Files(root string, excludeDirs []string) (records []domain.FileRecord, errs []Error, err error) {
	root = filepath.Clean(root)
	fi, err := os.Stat(root)
	if err != nil {
		return nil, nil, &RootError{Root: root, Err: err}
	}
	if !fi.IsDir() {
		return nil, nil, &RootError{Root: root, Err: fmt.Errorf("不是目录")}
	}
	if _, err := os.ReadDir(root); err != nil {
		return nil, nil, &RootError{Root: root, Err: err}
	}

	excluded := buildExcluded(root, excludeDirs)
	records = make([]domain.FileRecord, 0, 128)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			errs = append(errs, Error{Path: path, Err: walkErr})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		// 统一的排除判断：目录用 SkipDir，文件则直接跳过。
		if isExcluded(path, excluded) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		info, err := fileInfo(path, d)
		if err != nil {
			errs = append(errs, Error{Path: path, Err: err})
			return nil
		}
		if info == nil {
			// socket/device/指向目录的链接等：不是可整理的文件。
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			errs = append(errs, Error{Path: path, Err: err})
			return nil
		}

		records = append(records, domain.FileRecord{
			Path:     path,
			RelPath:  rel,
			Size:     info.Size(),
			Created:  createdTime(path, info),
			Modified: info.ModTime(),
			Extra:    map[string]string{},
		})
		return nil
	})
	if walkErr != nil {
		return nil, errs, &RootError{Root: root, Err: walkErr}
	}

	// 强制稳定输出，避免不同平台/文件系统行为差异带来的不确定性。
	sort.Slice(records, func(i, j int) bool { return records[i].RelPath < records[j].RelPath })
	return records, errs, nil
}

// fileInfo 返回常规文件的 FileInfo；符号链接跟随到目标。非常规文件返回 (nil, nil)。
func fileInfo(path string, d fs.DirEntry) (fs.FileInfo, error) {
	if d.Type()&fs.ModeSymlink != 0 {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.Mode().IsRegular() {
			return nil, nil
		}
		return info, nil
	}
	if !d.Type().IsRegular() {
		return nil, nil
	}
	return d.Info()
}

func buildExcluded(root string, excludeDirs []string) []string {
	excluded := make([]string, 0, len(excludeDirs))
	for _, x := range excludeDirs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		if filepath.IsAbs(x) {
			excluded = append(excluded, filepath.Clean(x))
			continue
		}
		// x 是相对路径：相对 root。
		excluded = append(excluded, filepath.Clean(filepath.Join(root, x)))
	}

	// 排除列表排序后，isExcluded 的行为更可预测（且便于测试）。
	sort.Strings(excluded)
	return excluded
}

func isExcluded(path string, excluded []string) bool {
	path = filepath.Clean(path)
	for _, base := range excluded {
		if IsUnder(path, base) {
			return true
		}
	}
	return false
}

// IsUnder 报告 path 是否等于 base 或位于 base 之下（两者都应是 clean 路径）。
func IsUnder(path, base string) bool {
	if path == base {
		return true
	}
	sep := string(filepath.Separator)
	return strings.HasPrefix(path, strings.TrimSuffix(base, sep)+sep)
}
