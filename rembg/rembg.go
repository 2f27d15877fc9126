// Package rembg 提供背景去除器：本地边缘抠图、远程 U-2-Net 模型服务，以及两者之间的自动降级。
package rembg

import (
	"context"
	"errors"
	"image"
)

const (
	MethodLocal    = "local"
	MethodU2Net    = "u2net"
	MethodFallback = "fallback"
)

var ErrRemoteFailed = errors.New("remote background removal failed")

type Remover interface {
	Remove(ctx context.Context, img image.Image) (image.Image, error)
	Name() string
}
