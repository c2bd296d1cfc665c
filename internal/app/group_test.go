package app

import (
	"testing"

	"github.com/John-Robertt/mediasort/internal/domain"
)

func TestGroupByCategory_StableOrder(t *testing.T) {
	files := []domain.FileRecord{
		{Path: "/s/z.txt"},
		{Path: "/s/b.jpg"},
		{Path: "/s/song.mp3"},
		{Path: "/s/a.jpg"},
		{Path: "/s/clip.mp4"},
	}
	ClassifyAll(files)

	items := GroupByCategory(files)
	if len(items) != 4 {
		t.Fatalf("期望 4 个分类批次，实际 %d", len(items))
	}

	wantCats := []domain.Category{domain.CategoryImage, domain.CategoryVideo, domain.CategoryAudio, domain.CategoryOther}
	for i, c := range wantCats {
		if items[i].Category != c {
			t.Fatalf("第 %d 批：期望 %v，实际 %v", i, c, items[i].Category)
		}
	}

	// 同一分类内保持源列表顺序：b.jpg(1) 在 a.jpg(3) 之前。
	img := items[0].FileIdx
	if len(img) != 2 || img[0] != 1 || img[1] != 3 {
		t.Fatalf("image 批次顺序不正确：%v", img)
	}
}

func TestClassifyAll_KeepsExistingCategory(t *testing.T) {
	files := []domain.FileRecord{
		{Path: "/s/a.jpg", Category: domain.CategoryOther},
		{Path: "/s/b.jpg"},
	}
	ClassifyAll(files)
	if files[0].Category != domain.CategoryOther {
		t.Fatalf("已分类的记录不应被覆盖")
	}
	if files[1].Category != domain.CategoryImage {
		t.Fatalf("期望 image，实际 %v", files[1].Category)
	}
}

func TestGroupByCategory_Empty(t *testing.T) {
	if items := GroupByCategory(nil); len(items) != 0 {
		t.Fatalf("空输入应得到空批次，实际 %d", len(items))
	}
}
