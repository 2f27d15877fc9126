package rembg

import (
	"context"
	"errors"
	"image"
	"log/slog"
)

var ErrNoRemover = errors.New("no remover available")

type HealthReporter interface {
	Healthy() bool
}

// FallbackRemover 优先使用 Primary；Primary 不健康或失败时降级到 Secondary
type FallbackRemover struct {
	Primary   Remover
	Secondary Remover
	// Monitor 为 nil 时总是先尝试 Primary
	Monitor HealthReporter
}

func (f *FallbackRemover) Name() string {
	return MethodFallback
}

func (f *FallbackRemover) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	out, _, err := f.RemoveWithMethod(ctx, img)
	return out, err
}

// RemoveWithMethod 返回结果以及实际使用的去除器名称
func (f *FallbackRemover) RemoveWithMethod(ctx context.Context, img image.Image) (image.Image, string, error) {
	var primaryErr error

	if f.Primary != nil && (f.Monitor == nil || f.Monitor.Healthy()) {
		out, err := f.Primary.Remove(ctx, img)
		if err == nil {
			return out, f.Primary.Name(), nil
		}
		if ctx.Err() != nil {
			return nil, "", err
		}

		slog.Warn("primary remover failed, falling back", "primary", f.Primary.Name(), "error", err)
		primaryErr = err
	}

	if f.Secondary == nil {
		if primaryErr != nil {
			return nil, "", primaryErr
		}
		return nil, "", ErrNoRemover
	}

	out, err := f.Secondary.Remove(ctx, img)
	if err != nil {
		return nil, "", err
	}
	return out, f.Secondary.Name(), nil
}
