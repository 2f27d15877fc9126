package matte

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateBackground(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		img  func() *image.NRGBA
		want color.NRGBA
	}{
		{
			name: "uniform",
			img:  func() *image.NRGBA { return uniform(7, 5, color.NRGBA{R: 10, G: 20, B: 30, A: 255}) },
			want: color.NRGBA{R: 10, G: 20, B: 30, A: 255},
		},
		{
			name: "interior is ignored",
			img: func() *image.NRGBA {
				img := uniform(5, 5, white)
				fill(img, image.Rect(1, 1, 4, 4), black)
				return img
			},
			want: white,
		},
		{
			// 3x3，12 个样本；左上角同时属于首行和首列，计入两次：240/12 = 20
			name: "corners counted twice",
			img: func() *image.NRGBA {
				img := uniform(3, 3, black)
				img.SetNRGBA(0, 0, color.NRGBA{R: 120, A: 255})
				return img
			},
			want: color.NRGBA{R: 20, A: 255},
		},
		{
			// 2x1：每个像素各计 3 次，(0+1)/2 = 0.5 向上取整
			name: "half rounds up",
			img: func() *image.NRGBA {
				img := uniform(2, 1, black)
				img.SetNRGBA(1, 0, color.NRGBA{R: 1, G: 2, B: 3, A: 255})
				return img
			},
			want: color.NRGBA{R: 1, G: 1, B: 2, A: 255},
		},
		{
			name: "single pixel",
			img:  func() *image.NRGBA { return uniform(1, 1, color.NRGBA{R: 9, G: 8, B: 7, A: 0}) },
			want: color.NRGBA{R: 9, G: 8, B: 7, A: 255},
		},
		{
			name: "empty",
			img:  func() *image.NRGBA { return image.NewNRGBA(image.Rectangle{}) },
			want: color.NRGBA{A: 255},
		},
	}

	for _, tt := range tests {

		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, EstimateBackground(tt.img()))
		})
	}
}

func TestRoundDiv(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint8(0), roundDiv(0, 4))
	assert.Equal(t, uint8(1), roundDiv(2, 4))
	assert.Equal(t, uint8(0), roundDiv(1, 4))
	assert.Equal(t, uint8(255), roundDiv(255*6, 6))
}
