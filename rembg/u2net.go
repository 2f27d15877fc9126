package rembg

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/chaos-io/cutout/codec"
	nhttp "github.com/chaos-io/cutout/util/http"
)

const (
	healthPath = "/health"
	removePath = "/remove-background"
)

// U2NetRemover 调用 U-2-Net 模型服务去除背景
type U2NetRemover struct {
	baseURL string
	timeout time.Duration
	cli     nhttp.IClient
}

// NewU2NetRemover 的 timeout 同时作为单次请求和底层 http.Client 的超时
func NewU2NetRemover(baseURL string, timeout time.Duration) *U2NetRemover {
	return NewU2NetRemoverWithClient(baseURL, timeout, nhttp.NewHTTPClientWithTimeout(timeout))
}

func NewU2NetRemoverWithClient(baseURL string, timeout time.Duration, cli nhttp.IClient) *U2NetRemover {
	return &U2NetRemover{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		cli:     cli,
	}
}

func (u *U2NetRemover) Name() string {
	return MethodU2Net
}

func (u *U2NetRemover) BaseURL() string {
	return u.baseURL
}

type HealthStatus struct {
	Status         string `json:"status"`
	ModelLoaded    bool   `json:"model_loaded"`
	PytorchVersion string `json:"pytorch_version,omitempty"`
	CudaAvailable  bool   `json:"cuda_available,omitempty"`
}

/*
curl "$BASE_URL/health"

{"status": "ok", "model_loaded": true, "pytorch_version": "2.1.0", "cuda_available": false}
*/
func (u *U2NetRemover) Health(ctx context.Context) (*HealthStatus, error) {
	status := &HealthStatus{}
	reqParam := &nhttp.RequestParam{
		RequestURI: u.baseURL + healthPath,
		Method:     http.MethodGet,
		Response:   status,
		Timeout:    u.timeout,
	}
	if err := u.cli.DoHTTPRequest(ctx, reqParam); err != nil {
		return nil, fmt.Errorf("health check: %w", err)
	}

	slog.Debug("get the health response", "status", status.Status, "model_loaded", status.ModelLoaded)
	return status, nil
}

type removeRequest struct {
	Image string `json:"image"`
}

type removeResponse struct {
	Success           bool   `json:"success"`
	ProcessedImageURL string `json:"processedImageUrl"`
	Error             string `json:"error"`
}

/*
	curl -X POST "$BASE_URL/remove-background" \
	  -H "Content-Type: application/json" \
	  -d '{"image": "data:image/png;base64,..."}'

{"success": true, "processedImageUrl": "data:image/png;base64,..."}
*/
func (u *U2NetRemover) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	dataURL, err := codec.EncodeDataURL(img)
	if err != nil {
		return nil, err
	}

	resp := &removeResponse{}
	reqParam := &nhttp.RequestParam{
		RequestURI: u.baseURL + removePath,
		Method:     http.MethodPost,
		Body:       removeRequest{Image: dataURL},
		Response:   resp,
		Timeout:    u.timeout,
	}
	if err := u.cli.DoHTTPRequest(ctx, reqParam); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRemoteFailed, err)
	}

	slog.Debug("get the remove response", "success", resp.Success, "error", resp.Error)

	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "unsuccessful response"
		}
		return nil, fmt.Errorf("%w: %s", ErrRemoteFailed, msg)
	}
	if resp.ProcessedImageURL == "" {
		return nil, fmt.Errorf("%w: empty processedImageUrl", ErrRemoteFailed)
	}

	out, err := codec.DecodeDataURL(resp.ProcessedImageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRemoteFailed, err)
	}
	return out, nil
}
