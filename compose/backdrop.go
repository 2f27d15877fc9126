package compose

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/nfnt/resize"
)

var ErrUnknownBackdrop = errors.New("unknown backdrop")

type Kind int

const (
	KindTransparent Kind = iota
	KindColor
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindColor:
		return "color"
	case KindImage:
		return "image"
	default:
		return "transparent"
	}
}

// Backdrop 抠图后要合成的背景：透明、纯色或影棚背景图
type Backdrop struct {
	Kind  Kind
	Name  string
	Color color.NRGBA
	Image image.Image
}

var Transparent = Backdrop{Kind: KindTransparent, Name: "transparent"}

func (b Backdrop) String() string {
	return b.Name
}

// ParseBackdrop 解析背景名称：transparent、white、black、#rrggbb，
// 其余按影棚背景图名称在 lib 中查找
func ParseBackdrop(name string, lib *Library) (Backdrop, error) {
	key := strings.ToLower(strings.TrimSpace(name))

	switch key {
	case "", "transparent", "none":
		return Transparent, nil
	case "white":
		return solid("white", color.NRGBA{R: 255, G: 255, B: 255, A: 255}), nil
	case "black":
		return solid("black", color.NRGBA{A: 255}), nil
	}

	if strings.HasPrefix(key, "#") {
		c, err := colorful.Hex(key)
		if err != nil {
			return Backdrop{}, fmt.Errorf("%w: %q", ErrUnknownBackdrop, name)
		}
		r, g, b := c.RGB255()
		return solid(c.Hex(), color.NRGBA{R: r, G: g, B: b, A: 255}), nil
	}

	if lib == nil {
		return Backdrop{}, fmt.Errorf("%w: %q", ErrUnknownBackdrop, name)
	}
	resolved, img, err := lib.Resolve(key)
	if err != nil {
		return Backdrop{}, err
	}
	return Backdrop{Kind: KindImage, Name: resolved, Image: img}, nil
}

func solid(name string, c color.NRGBA) Backdrop {
	return Backdrop{Kind: KindColor, Name: name, Color: c}
}

// Apply 把抠图结果合成到背景上，返回新图像，尺寸与 cutout 相同
func Apply(cutout image.Image, b Backdrop) *image.NRGBA {
	size := cutout.Bounds().Size()

	var canvas *image.NRGBA
	switch b.Kind {
	case KindColor:
		canvas = imaging.New(size.X, size.Y, b.Color)
	case KindImage:
		if b.Image == nil {
			return imaging.Clone(cutout)
		}
		fitted := resize.Resize(uint(size.X), uint(size.Y), b.Image, resize.Lanczos3)
		canvas = imaging.Clone(fitted)
	default:
		return imaging.Clone(cutout)
	}

	return imaging.Overlay(canvas, cutout, image.Pt(0, 0), 1.0)
}
