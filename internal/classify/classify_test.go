package classify

import (
	"testing"

	"github.com/John-Robertt/mediasort/internal/domain"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		path string
		want domain.Category
	}{
		{"/src/photo.jpg", domain.CategoryImage},
		{"/src/PHOTO.JPEG", domain.CategoryImage},
		{"/src/shot.heic", domain.CategoryImage},
		{"/src/clip.MP4", domain.CategoryVideo},
		{"/src/movie.mkv", domain.CategoryVideo},
		{"/src/track.mp3", domain.CategoryAudio},
		{"/src/song.flac", domain.CategoryAudio},
		{"/src/notes.txt", domain.CategoryOther},
		{"/src/archive.tar.gz", domain.CategoryOther},
		{"/src/Makefile", domain.CategoryOther},
		{"/src/weird.zzzunknown", domain.CategoryOther},
		{"", domain.CategoryOther},
	}
	for _, tc := range cases {
		if got := Classify(tc.path); got != tc.want {
			t.Fatalf("Classify(%q)：期望 %v，实际 %v", tc.path, tc.want, got)
		}
	}
}

func TestMediaType_BuiltinWinsOverHost(t *testing.T) {
	if got := MediaType("a.mkv"); got != "video/x-matroska" {
		t.Fatalf("期望 video/x-matroska，实际 %q", got)
	}
	if got := MediaType("noext"); got != "" {
		t.Fatalf("无扩展名应返回空串，实际 %q", got)
	}
}
