package app

import (
	"github.com/John-Robertt/mediasort/internal/classify"
	"github.com/John-Robertt/mediasort/internal/domain"
)

// ClassifyAll 为尚未分类的记录写入 Category（已分类的保持不变）。
func ClassifyAll(files []domain.FileRecord) {
	for i := range files {
		if !files[i].Category.Valid() {
			files[i].Category = classify.Classify(files[i].Path)
		}
	}
}

// GroupByCategory 把文件按分类分批为 WorkItem（WorkItem 只存 file index）。
//
// - items 稳定排序：按 domain.Categories 的固定顺序，空分类不出现
// - item 内 FileIdx 保持源列表顺序（不重新排序）
//
// 调用前所有记录必须已经分类。
func GroupByCategory(files []domain.FileRecord) []domain.WorkItem {
	index := make(map[domain.Category][]int, len(domain.Categories))
	for i := range files {
		c := files[i].Category
		if !c.Valid() {
			c = domain.CategoryOther
		}
		index[c] = append(index[c], i)
	}

	items := make([]domain.WorkItem, 0, len(index))
	for _, c := range domain.Categories {
		if idx, ok := index[c]; ok {
			items = append(items, domain.WorkItem{Category: c, FileIdx: idx})
		}
	}
	return items
}
