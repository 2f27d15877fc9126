// Package matte 实现不依赖模型的本地抠图：边缘检测 + 边框背景色估计 + 边缘邻近判断，
// 生成 alpha 遮罩。
//
// 像素被置为透明当且仅当同时满足：
//   - 与背景色的平均通道差 (|ΔR|+|ΔG|+|ΔB|)/3 小于 ColorThreshold
//   - 以它为中心、半径 EdgeProximity 的方形窗口内没有边缘
//
// 每次调用独立分配缓冲区，没有共享状态，可并发使用。
package matte

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

const (
	DefaultEdgeThreshold  = 30
	DefaultColorThreshold = 35
	DefaultEdgeProximity  = 10
)

type Options struct {
	// 相邻像素任一通道差值超过该值即为边缘
	EdgeThreshold int `yaml:"edge_threshold"`
	// 与背景色的平均通道差小于该值视为背景色
	ColorThreshold int `yaml:"color_threshold"`
	// 边缘邻近半径（切比雪夫距离）
	EdgeProximity int `yaml:"edge_proximity"`
}

func DefaultOptions() Options {
	return Options{
		EdgeThreshold:  DefaultEdgeThreshold,
		ColorThreshold: DefaultColorThreshold,
		EdgeProximity:  DefaultEdgeProximity,
	}
}

// Stats 一次抠图的诊断信息
type Stats struct {
	Background  color.NRGBA
	EdgePixels  int
	Transparent int
}

type Estimator struct {
	opts Options
}

func New(opts Options) *Estimator {
	return &Estimator{opts: opts}
}

func NewDefault() *Estimator {
	return New(DefaultOptions())
}

// Matte 返回一张新的 NRGBA 图像：尺寸、RGB 与输入完全相同，背景像素的 alpha 置 0，
// 其余像素保留输入的 alpha。输入不会被修改。
func (e *Estimator) Matte(src image.Image) (*image.NRGBA, Stats) {
	// imaging.Clone 总是返回新的、原点为 (0,0) 的 NRGBA
	dst := imaging.Clone(src)
	w, h := dst.Rect.Dx(), dst.Rect.Dy()
	if w == 0 || h == 0 {
		return dst, Stats{}
	}

	edges := DetectEdges(dst, e.opts.EdgeThreshold)
	bg := EstimateBackground(dst)
	stats := Stats{Background: bg, EdgePixels: edges.Count()}

	// (ΔR+ΔG+ΔB)/3 < T 等价于 ΔR+ΔG+ΔB < 3T，避免浮点
	limit := 3 * e.opts.ColorThreshold
	for y := 0; y < h; y++ {
		row := y * dst.Stride
		for x := 0; x < w; x++ {
			p := row + x*4
			dist := absDiff(dst.Pix[p], bg.R) + absDiff(dst.Pix[p+1], bg.G) + absDiff(dst.Pix[p+2], bg.B)
			if dist < limit && !edges.NearEdge(x, y, e.opts.EdgeProximity) {
				dst.Pix[p+3] = 0
				stats.Transparent++
			}
		}
	}

	return dst, stats
}

// Remove 使用默认参数抠图
func Remove(src image.Image) *image.NRGBA {
	out, _ := NewDefault().Matte(src)
	return out
}
