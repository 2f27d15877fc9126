package compose

import (
	"errors"
	"image"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

// DefaultAlphaThreshold alpha 超过 0.8*255 的像素视为主体
const DefaultAlphaThreshold = 0.8

var ErrNoForeground = errors.New("no foreground detected")

// Frame 把抠好的图裁成以主体为中心的正方形，四周不足的部分保持透明
func Frame(img image.Image) (*image.NRGBA, error) {
	src := toNRGBA(img)

	bbox, err := AlphaBBox(src, DefaultAlphaThreshold)
	if err != nil {
		return nil, err
	}

	return CropSquare(src, bbox), nil
}

// AlphaBBox 从 alpha 通道计算主体 bounding box
// 把 alpha > threshold * 255 的像素当作“主体”，返回坐标与 img 的坐标系一致
func AlphaBBox(img *image.NRGBA, threshold float64) (image.Rectangle, error) {
	b := img.Bounds()
	th := uint8(threshold * 255)

	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X-1, b.Min.Y-1

	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.Pix[off+(x-b.Min.X)*4+3] <= th {
				continue
			}
			minX = min(minX, x)
			minY = min(minY, y)
			maxX = max(maxX, x)
			maxY = max(maxY, y)
		}
	}

	if maxX < minX {
		return image.Rectangle{}, ErrNoForeground
	}

	return image.Rect(minX, minY, maxX+1, maxY+1), nil
}

// CropSquare 正方形裁剪（中心对齐）
// 用 bbox 的最长边作为边长，超出原图的部分保持透明，保证输出是正方形
func CropSquare(img *image.NRGBA, bbox image.Rectangle) *image.NRGBA {
	size := max(bbox.Dx(), bbox.Dy())
	origin := image.Pt(
		bbox.Min.X+(bbox.Dx()-size)/2,
		bbox.Min.Y+(bbox.Dy()-size)/2,
	)
	rect := image.Rectangle{Min: origin, Max: origin.Add(image.Pt(size, size))}

	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	visible := rect.Intersect(img.Bounds())
	if visible.Empty() {
		return dst
	}

	target := visible.Sub(rect.Min)
	draw.Draw(dst, target, img, visible.Min, draw.Src)
	return dst
}

// HasUsefulAlpha 检查 alpha 通道是否真的包含透明信息
// 只要存在非 255（非完全不透明），就认为“已有抠图”
func HasUsefulAlpha(img image.Image) bool {
	src := toNRGBA(img)
	b := src.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := src.PixOffset(b.Min.X, y)
		for x := 0; x < b.Dx(); x++ {
			if src.Pix[off+x*4+3] != 255 {
				return true
			}
		}
	}
	return false
}

// ResizeWithinMax 缩放（最长边 <= maxSize），maxSize <= 0 表示不限制
func ResizeWithinMax(img image.Image, maxSize int) *image.NRGBA {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	longest := max(w, h)

	if maxSize <= 0 || longest <= maxSize {
		return toNRGBA(img)
	}

	scale := float64(maxSize) / float64(longest)
	newW := max(1, int(float64(w)*scale))
	newH := max(1, int(float64(h)*scale))

	resized := resize.Resize(uint(newW), uint(newH), img, resize.Lanczos3)
	return toNRGBA(resized)
}

func toNRGBA(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok {
		return nrgba
	}
	return imaging.Clone(img)
}
