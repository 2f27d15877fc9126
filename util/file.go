package util

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/chaos-io/cutout/codec"
)

// 下载图片的最大字节数
const maxDownloadBytes = 50 << 20

// DownloadImage 下载图片
func DownloadImage(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: status code %d", url, resp.StatusCode)
	}

	imgData, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}

	img, _, err := codec.Decode(imgData)
	return img, err
}

// OpenImage 打开本地图片
func OpenImage(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}

	img, _, err := codec.Decode(data)
	return img, err
}

// LoadImage 根据前缀选择下载或打开本地文件
func LoadImage(ctx context.Context, pathOrURL string) (image.Image, error) {
	if strings.HasPrefix(pathOrURL, "http://") || strings.HasPrefix(pathOrURL, "https://") {
		return DownloadImage(ctx, pathOrURL)
	}
	return OpenImage(pathOrURL)
}

// SavePNG 保存为 PNG，自动创建目录
func SavePNG(path string, img image.Image) error {
	data, err := codec.EncodePNG(img)
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

// SaveJPEG 保存为 JPEG，自动创建目录
func SaveJPEG(path string, img image.Image, quality int) error {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return fmt.Errorf("jpeg encode: %w", err)
	}
	return writeFile(path, buf.Bytes())
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
