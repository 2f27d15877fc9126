// 下载影棚背景图到本地背景图库目录
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/nfnt/resize"

	"github.com/chaos-io/cutout/util"
)

const (
	maxSide     = 1200
	jpegQuality = 90
)

var studioBackdrops = map[string]string{
	"studio-light-1": "https://images.unsplash.com/photo-1508615070457-7baeba4003ab?q=80&w=1000&auto=format&fit=crop",
	"studio-light-2": "https://images.unsplash.com/photo-1557682233-43e671455dfa?q=80&w=1000&auto=format&fit=crop",
	"studio-light-3": "https://images.unsplash.com/photo-1557682250-f4a5a50bded7?q=80&w=1000&auto=format&fit=crop",
	"studio-dark-1":  "https://images.unsplash.com/photo-1557682204-7a17d8161a88?q=80&w=1000&auto=format&fit=crop",
	"studio-dark-2":  "https://images.unsplash.com/photo-1557682204-e53932fe5fe0?q=80&w=1000&auto=format&fit=crop",
	"studio-dark-3":  "https://images.unsplash.com/photo-1557682224-5b8590cd9ec5?q=80&w=1000&auto=format&fit=crop",
}

func main() {
	saveDir := flag.String("dir", "public/studio-backgrounds", "Directory to save backdrops into")
	force := flag.Bool("force", false, "Download again even if the file exists")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	failed := downloadAll(ctx, studioBackdrops, *saveDir, *force)
	slog.Info("download finished", "total", len(studioBackdrops), "failed", failed, "dir", *saveDir)
	if failed > 0 {
		os.Exit(1)
	}
}

// downloadAll 按名称顺序下载，返回失败的数量
func downloadAll(ctx context.Context, backdrops map[string]string, saveDir string, force bool) int {
	names := make([]string, 0, len(backdrops))
	for name := range backdrops {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := 0
	for _, name := range names {
		err := downloadBackdrop(ctx, name, backdrops[name], saveDir, force)
		switch {
		case errors.Is(err, os.ErrExist):
			slog.Info("已存在，跳过", "name", name)
		case err != nil:
			slog.Error("失败", "name", name, "error", err)
			failed++
		}
	}
	return failed
}

// downloadBackdrop 下载一张背景图，等比缩放到最长边不超过 1200 后保存为 JPEG
func downloadBackdrop(ctx context.Context, name, imgURL, saveDir string, force bool) error {
	filePath := filepath.Join(saveDir, name+".jpg")
	if !force {
		if _, err := os.Stat(filePath); err == nil {
			return os.ErrExist
		}
	}

	slog.Info("下载", "name", name, "url", imgURL)
	img, err := util.DownloadImage(ctx, imgURL)
	if err != nil {
		return err
	}

	thumb := resize.Thumbnail(maxSide, maxSide, img, resize.Lanczos3)
	if err := util.SaveJPEG(filePath, thumb, jpegQuality); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}

	slog.Info("saved", "path", filePath, "width", thumb.Bounds().Dx(), "height", thumb.Bounds().Dy())
	return nil
}
