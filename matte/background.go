package matte

import (
	"image"
	"image/color"
)

// EstimateBackground 取图像四条边（上下两行、左右两列）像素的平均色作为背景色。
// 角点同时属于一行和一列，会被计入两次；样本数固定为 2w+2h，均值四舍五入。
func EstimateBackground(img *image.NRGBA) color.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return color.NRGBA{A: 255}
	}

	var sum [3]int
	add := func(x, y int) {
		p := img.PixOffset(b.Min.X+x, b.Min.Y+y)
		sum[0] += int(img.Pix[p])
		sum[1] += int(img.Pix[p+1])
		sum[2] += int(img.Pix[p+2])
	}

	for x := 0; x < w; x++ {
		add(x, 0)
		add(x, h-1)
	}
	for y := 0; y < h; y++ {
		add(0, y)
		add(w-1, y)
	}

	count := 2*w + 2*h
	return color.NRGBA{
		R: roundDiv(sum[0], count),
		G: roundDiv(sum[1], count),
		B: roundDiv(sum[2], count),
		A: 255,
	}
}

// roundDiv 计算 sum/n 并四舍五入（.5 向上），sum、n 非负
func roundDiv(sum, n int) uint8 {
	return uint8((2*sum + n) / (2 * n))
}
