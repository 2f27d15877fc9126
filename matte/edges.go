package matte

import "image"

// EdgeMap 记录每个像素是否为边缘，并附带一张积分图（summed-area table），
// 用于 O(1) 判断任意窗口内是否存在边缘。检测完成后只读。
type EdgeMap struct {
	Width  int
	Height int

	edges []bool
	// sat[(y+1)*(Width+1)+(x+1)] 为 [0,x]×[0,y] 内的边缘数
	sat []int
}

// DetectEdges 对相邻像素做有限差分：与右侧或下方像素任一通道差值超过 threshold 即标记为边缘。
// 最后一列没有右邻居、最后一行没有下邻居，对应方向的检测不会标记它们。
func DetectEdges(img *image.NRGBA, threshold int) *EdgeMap {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	m := &EdgeMap{
		Width:  w,
		Height: h,
		edges:  make([]bool, w*h),
	}

	// 水平方向
	for y := 0; y < h; y++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		for x := 0; x < w-1; x++ {
			p := off + x*4
			if channelsDiffer(img.Pix[p:p+3], img.Pix[p+4:p+7], threshold) {
				m.edges[y*w+x] = true
			}
		}
	}

	// 垂直方向
	for y := 0; y < h-1; y++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		next := img.PixOffset(b.Min.X, b.Min.Y+y+1)
		for x := 0; x < w; x++ {
			if channelsDiffer(img.Pix[off+x*4:off+x*4+3], img.Pix[next+x*4:next+x*4+3], threshold) {
				m.edges[y*w+x] = true
			}
		}
	}

	m.buildSAT()
	return m
}

func channelsDiffer(a, b []uint8, threshold int) bool {
	for i := 0; i < 3; i++ {
		if absDiff(a[i], b[i]) > threshold {
			return true
		}
	}
	return false
}

func (m *EdgeMap) buildSAT() {
	stride := m.Width + 1
	m.sat = make([]int, stride*(m.Height+1))
	for y := 0; y < m.Height; y++ {
		rowSum := 0
		for x := 0; x < m.Width; x++ {
			if m.edges[y*m.Width+x] {
				rowSum++
			}
			m.sat[(y+1)*stride+x+1] = m.sat[y*stride+x+1] + rowSum
		}
	}
}

// At 返回 (x, y) 是否为边缘，越界返回 false
func (m *EdgeMap) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.edges[y*m.Width+x]
}

// Count 返回边缘像素总数
func (m *EdgeMap) Count() int {
	return m.sat[len(m.sat)-1]
}

// NearEdge 判断以 (x, y) 为中心、边长 2r+1 的正方形窗口（裁剪到图像范围内）是否含有边缘。
// 结果与逐像素暴力扫描完全一致。
func (m *EdgeMap) NearEdge(x, y, r int) bool {
	if m.Width == 0 || m.Height == 0 || r < 0 {
		return false
	}
	x0, y0 := max(0, x-r), max(0, y-r)
	x1, y1 := min(m.Width-1, x+r), min(m.Height-1, y+r)
	if x0 > x1 || y0 > y1 {
		return false
	}

	stride := m.Width + 1
	sum := m.sat[(y1+1)*stride+x1+1] -
		m.sat[y0*stride+x1+1] -
		m.sat[(y1+1)*stride+x0] +
		m.sat[y0*stride+x0]
	return sum > 0
}

// Gray 把边缘图导出为灰度图，边缘为 255
func (m *EdgeMap) Gray() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, e := range m.edges {
		if e {
			g.Pix[i] = 255
		}
	}
	return g
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
