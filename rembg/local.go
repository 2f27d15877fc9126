package rembg

import (
	"context"
	"image"
	"log/slog"

	"github.com/chaos-io/cutout/matte"
)

// LocalRemover 基于 matte 的本地抠图，不依赖模型
type LocalRemover struct {
	est *matte.Estimator
}

func NewLocalRemover(opts matte.Options) *LocalRemover {
	return &LocalRemover{est: matte.New(opts)}
}

func (l *LocalRemover) Name() string {
	return MethodLocal
}

// Remove 只在开始前检查 ctx，单次处理不可中断
func (l *LocalRemover) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, stats := l.est.Matte(img)
	slog.Debug("Detected background color",
		"r", stats.Background.R, "g", stats.Background.G, "b", stats.Background.B,
		"edges", stats.EdgePixels, "transparent", stats.Transparent)

	return out, nil
}
