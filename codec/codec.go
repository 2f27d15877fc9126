// Package codec 在传输层的 base64 / data URL 与内存中的图像之间转换。
//
// 解码失败统一返回 *DecodeError，编码失败返回 *EncodeError，均保留原始错误，
// 调用方通过 errors.As 区分。
package codec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"regexp"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const MimePNG = "image/png"

var (
	ErrNoImageData = errors.New("no image data")
	ErrEmptyImage  = errors.New("image has no pixels")
)

// 与前端上传的 data URL 前缀一致，例如 data:image/jpeg;base64,
var dataURLPrefix = regexp.MustCompile(`^data:image/[\w.+-]+;base64,`)

// DecodeError 输入无法解析为图像
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "decode image: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodeError 结果图像无法序列化
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string {
	return "encode image: " + e.Err.Error()
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// ParseDataURL 去掉 data URL 前缀并解码 base64，也接受裸 base64
func ParseDataURL(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = dataURLPrefix.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, s)
	if s == "" {
		return nil, &DecodeError{Err: ErrNoImageData}
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// 部分客户端会省略补齐的 '='
		raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
		if rawErr != nil {
			return nil, &DecodeError{Err: fmt.Errorf("base64: %w", err)}
		}
		data = raw
	}
	return data, nil
}

// Decode 解码 PNG / JPEG / GIF / WebP / BMP / TIFF，返回图像和格式名
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", &DecodeError{Err: ErrNoImageData}
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", &DecodeError{Err: err}
	}
	if img.Bounds().Empty() {
		return nil, "", &DecodeError{Err: ErrEmptyImage}
	}
	return img, format, nil
}

// DecodeDataURL 解析 data URL 并解码图像
func DecodeDataURL(s string) (image.Image, error) {
	data, err := ParseDataURL(s)
	if err != nil {
		return nil, err
	}
	img, _, err := Decode(data)
	return img, err
}

// EncodePNG 编码为带 alpha 的 PNG
func EncodePNG(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, &EncodeError{Err: errors.New("nil image")}
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, &EncodeError{Err: err}
	}
	return buf.Bytes(), nil
}

func DataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// EncodeDataURL 编码为 PNG data URL
func EncodeDataURL(img image.Image) (string, error) {
	data, err := EncodePNG(img)
	if err != nil {
		return "", err
	}
	return DataURL(MimePNG, data), nil
}
