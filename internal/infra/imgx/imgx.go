package imgx

import (
	"bytes"
	"errors"
	"image"
	_ "image/gif" // 注册 GIF 解码器
	"image/jpeg"
	_ "image/png" // 注册 PNG 解码器

	_ "golang.org/x/image/bmp" // 注册 BMP 解码器
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // 注册 TIFF 解码器
	_ "golang.org/x/image/webp" // 注册 WebP 解码器
)

// ErrEmpty 表示输入图片为空。
var ErrEmpty = errors.New("图片为空")

// ThumbnailJPEG 生成等比缩放的 JPEG 缩略图：结果落在 size×size 的框内。
//
// 约束：
// - 输入允许是 JPEG/PNG/GIF/BMP/TIFF/WebP
// - 输出固定为 JPEG
// - 原图已经小于框时不放大，只重新编码
func ThumbnailJPEG(src []byte, size int) ([]byte, error) {
	if len(src) == 0 {
		return nil, ErrEmpty
	}
	if size <= 0 {
		return nil, errors.New("缩略图尺寸必须为正数")
	}

	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, errors.New("图片尺寸无效")
	}

	w, h := Fit(b.Dx(), b.Dy(), size)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: 85}); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Fit 计算 w×h 等比缩放进 size×size 后的尺寸（不放大，每边至少 1）。
func Fit(w, h, size int) (int, int) {
	if w <= size && h <= size {
		return w, h
	}
	if w >= h {
		nh := h * size / w
		if nh < 1 {
			nh = 1
		}
		return size, nh
	}
	nw := w * size / h
	if nw < 1 {
		nw = 1
	}
	return nw, size
}
