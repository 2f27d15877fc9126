package matte

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.NRGBA{A: 255}
)

func uniform(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	fill(img, img.Rect, c)
	return img
}

func fill(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}

func alphaAt(img *image.NRGBA, x, y int) uint8 {
	return img.NRGBAAt(x, y).A
}

func TestMatte_PreservesSizeAndRGB(t *testing.T) {
	t.Parallel()

	src := uniform(30, 20, color.NRGBA{R: 240, G: 240, B: 235, A: 255})
	fill(src, image.Rect(12, 6, 18, 14), color.NRGBA{R: 20, G: 90, B: 160, A: 255})
	fill(src, image.Rect(2, 2, 4, 4), color.NRGBA{R: 250, G: 230, B: 240, A: 255})

	out, _ := NewDefault().Matte(src)
	require.Equal(t, src.Rect.Size(), out.Rect.Size())

	for y := 0; y < 20; y++ {
		for x := 0; x < 30; x++ {
			in, got := src.NRGBAAt(x, y), out.NRGBAAt(x, y)
			assert.Equal(t, [3]uint8{in.R, in.G, in.B}, [3]uint8{got.R, got.G, got.B}, "pixel (%d,%d)", x, y)
			assert.Contains(t, []uint8{0, 255}, got.A)
		}
	}
}

func TestMatte_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	src := uniform(8, 8, white)
	before := append([]uint8(nil), src.Pix...)

	out, _ := NewDefault().Matte(src)
	assert.Equal(t, before, src.Pix)
	assert.NotSame(t, src, out)
}

func TestMatte_UniformImageIsFullyTransparent(t *testing.T) {
	t.Parallel()

	for _, c := range []color.NRGBA{white, black, {R: 12, G: 200, B: 99, A: 255}} {
		out, stats := NewDefault().Matte(uniform(25, 17, c))

		assert.Equal(t, c, stats.Background)
		assert.Zero(t, stats.EdgePixels)
		assert.Equal(t, 25*17, stats.Transparent)
		for i := 3; i < len(out.Pix); i += 4 {
			require.Zero(t, out.Pix[i])
		}
	}
}

func TestMatte_SinglePixel(t *testing.T) {
	t.Parallel()

	out, stats := NewDefault().Matte(uniform(1, 1, color.NRGBA{R: 1, G: 2, B: 3, A: 255}))
	require.Equal(t, 1, out.Rect.Dx())
	require.Equal(t, 1, out.Rect.Dy())
	assert.Equal(t, color.NRGBA{R: 1, G: 2, B: 3, A: 0}, out.NRGBAAt(0, 0))
	assert.Equal(t, 1, stats.Transparent)
}

func TestMatte_SingleRowAndColumn(t *testing.T) {
	t.Parallel()

	row := uniform(40, 1, white)
	row.SetNRGBA(20, 0, black)
	out, stats := NewDefault().Matte(row)
	// 只有水平方向的检测生效：19 和 20 是边缘
	assert.Equal(t, 2, stats.EdgePixels)
	assert.Zero(t, alphaAt(out, 0, 0))
	assert.Equal(t, uint8(255), alphaAt(out, 9, 0))
	assert.Equal(t, uint8(255), alphaAt(out, 20, 0))
	assert.Equal(t, uint8(255), alphaAt(out, 30, 0))
	assert.Zero(t, alphaAt(out, 31, 0))

	col := uniform(1, 40, white)
	col.SetNRGBA(0, 20, black)
	out, stats = NewDefault().Matte(col)
	assert.Equal(t, 2, stats.EdgePixels)
	assert.Zero(t, alphaAt(out, 0, 0))
	assert.Equal(t, uint8(255), alphaAt(out, 0, 20))
	assert.Zero(t, alphaAt(out, 0, 39))
}

func TestMatte_ObjectOnSolidBackground(t *testing.T) {
	t.Parallel()

	src := uniform(40, 40, white)
	block := image.Rect(15, 15, 25, 25)
	fill(src, block, black)

	out, stats := NewDefault().Matte(src)
	assert.Equal(t, white, stats.Background)

	// 图像边框离边缘足够远，全部透明
	for i := 0; i < 40; i++ {
		assert.Zero(t, alphaAt(out, i, 0))
		assert.Zero(t, alphaAt(out, i, 39))
		assert.Zero(t, alphaAt(out, 0, i))
		assert.Zero(t, alphaAt(out, 39, i))
	}
	// 物体本身保持不透明
	for y := block.Min.Y; y < block.Max.Y; y++ {
		for x := block.Min.X; x < block.Max.X; x++ {
			require.Equal(t, uint8(255), alphaAt(out, x, y))
		}
	}
	// 边缘附近的背景像素保留（邻近半径内）
	assert.Equal(t, uint8(255), alphaAt(out, 5, 20))
	assert.Zero(t, alphaAt(out, 3, 20))
	assert.Zero(t, alphaAt(out, 3, 3))
}

// 4x4 白色边框 + 2x2 黑色内块
func TestMatte_FourByFourExample(t *testing.T) {
	t.Parallel()

	src := uniform(4, 4, white)
	fill(src, image.Rect(1, 1, 3, 3), black)

	edges := DetectEdges(src, DefaultEdgeThreshold)
	want := map[image.Point]bool{
		{1, 0}: true, {2, 0}: true,
		{0, 1}: true, {2, 1}: true,
		{0, 2}: true, {1, 2}: true, {2, 2}: true,
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			assert.Equal(t, want[image.Pt(x, y)], edges.At(x, y), "edge at (%d,%d)", x, y)
		}
	}
	assert.Equal(t, white, EstimateBackground(src))

	// 默认半径 10 覆盖整张图，所有像素都靠近边缘
	out, stats := NewDefault().Matte(src)
	assert.Zero(t, stats.Transparent)
	for i := 3; i < len(out.Pix); i += 4 {
		assert.Equal(t, uint8(255), out.Pix[i])
	}

	// 半径 0 时只看像素本身：非边缘的白色像素透明，黑色内块不透明
	opts := DefaultOptions()
	opts.EdgeProximity = 0
	out, stats = New(opts).Matte(src)
	assert.Equal(t, 8, stats.Transparent)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			isWhite := src.NRGBAAt(x, y) == white
			wantA := uint8(255)
			if isWhite && !want[image.Pt(x, y)] {
				wantA = 0
			}
			assert.Equal(t, wantA, alphaAt(out, x, y), "alpha at (%d,%d)", x, y)
		}
	}
}

func TestMatte_ColorThresholdBoundary(t *testing.T) {
	t.Parallel()

	bg := color.NRGBA{R: 100, G: 100, B: 100, A: 255}
	// 关闭边缘检测，只验证颜色判断
	opts := Options{EdgeThreshold: 255, ColorThreshold: DefaultColorThreshold, EdgeProximity: DefaultEdgeProximity}

	tests := []struct {
		name  string
		pixel color.NRGBA
		wantA uint8
	}{
		{"sum 104 is background", color.NRGBA{R: 135, G: 135, B: 134, A: 255}, 0},
		{"sum 105 is foreground", color.NRGBA{R: 135, G: 135, B: 135, A: 255}, 255},
		{"darker within threshold", color.NRGBA{R: 70, G: 100, B: 100, A: 255}, 0},
		{"single channel far", color.NRGBA{R: 210, G: 100, B: 100, A: 255}, 255},
	}

	for _, tt := range tests {

		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := uniform(5, 5, bg)
			src.SetNRGBA(2, 2, tt.pixel)

			out, stats := New(opts).Matte(src)
			assert.Equal(t, bg, stats.Background)
			assert.Equal(t, tt.wantA, alphaAt(out, 2, 2))
		})
	}
}

func TestMatte_CheckerboardKeepsEverything(t *testing.T) {
	t.Parallel()

	src := uniform(32, 32, white)
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			if (x/2+y/2)%2 == 1 {
				src.SetNRGBA(x, y, black)
			}
		}
	}

	_, stats := NewDefault().Matte(src)
	assert.Zero(t, stats.Transparent)
}

func TestMatte_RerunOnOutputIsStable(t *testing.T) {
	t.Parallel()

	src := uniform(50, 40, color.NRGBA{R: 230, G: 228, B: 225, A: 255})
	fill(src, image.Rect(18, 14, 32, 27), color.NRGBA{R: 180, G: 40, B: 40, A: 255})

	first, _ := NewDefault().Matte(src)
	second, _ := NewDefault().Matte(first)

	assert.Equal(t, first.Pix, second.Pix)
}

func TestMatte_NonZeroOrigin(t *testing.T) {
	t.Parallel()

	src := image.NewNRGBA(image.Rect(10, 20, 16, 24))
	fill(src, src.Rect, white)

	out, stats := NewDefault().Matte(src)
	assert.Equal(t, image.Rect(0, 0, 6, 4), out.Rect)
	assert.Equal(t, 24, stats.Transparent)
}

func TestMatte_ConvertsOtherImageTypes(t *testing.T) {
	t.Parallel()

	src := image.NewRGBA(image.Rect(0, 0, 6, 6))
	for i := range src.Pix {
		src.Pix[i] = 255
	}

	out := Remove(src)
	require.Equal(t, image.Rect(0, 0, 6, 6), out.Rect)
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 0}, out.NRGBAAt(3, 3))
}

func TestMatte_EmptyImage(t *testing.T) {
	t.Parallel()

	out, stats := NewDefault().Matte(image.NewNRGBA(image.Rectangle{}))
	assert.True(t, out.Rect.Empty())
	assert.Equal(t, Stats{}, stats)
}
