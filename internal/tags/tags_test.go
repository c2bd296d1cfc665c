package tags

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/John-Robertt/mediasort/internal/domain"
)

type stubExtractor struct {
	t   Tags
	err error
}

func (s stubExtractor) Extract(string) (Tags, error) { return s.t, s.err }

func TestRead_PartialTagsGetDefaults(t *testing.T) {
	got, err := Read(stubExtractor{t: Tags{Artist: "Artist"}}, "/x.mp3")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	want := Tags{Artist: "Artist", Album: UnknownAlbum, Title: UnknownTitle}
	if got != want {
		t.Fatalf("期望 %+v，实际 %+v", want, got)
	}
}

func TestRead_FailureFallsBackToPlaceholders(t *testing.T) {
	got, err := Read(stubExtractor{err: errors.New("corrupt")}, "/x.mp3")
	if err == nil {
		t.Fatalf("期望返回原始错误")
	}
	want := Tags{Artist: UnknownArtist, Album: UnknownAlbum, Title: UnknownTitle}
	if got != want {
		t.Fatalf("期望 %+v，实际 %+v", want, got)
	}
}

func TestFileExtractor_NoTagsIsError(t *testing.T) {
	p := filepath.Join(t.TempDir(), "plain.mp3")
	if err := os.WriteFile(p, []byte("not really an mp3"), 0o644); err != nil {
		t.Fatalf("写入失败：%v", err)
	}

	got, err := Read(FileExtractor{}, p)
	if err == nil {
		t.Fatalf("无标签文件应返回错误")
	}
	if got.Artist != UnknownArtist || got.Album != UnknownAlbum {
		t.Fatalf("失败时应回退占位值，实际 %+v", got)
	}
}

func TestTags_Extra(t *testing.T) {
	m := Tags{Artist: "A", Album: "B", Title: "C"}.Extra()
	if m[domain.ExtraArtist] != "A" || m[domain.ExtraAlbum] != "B" || m[domain.ExtraTitle] != "C" {
		t.Fatalf("Extra 键值不正确：%v", m)
	}
}
