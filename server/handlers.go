package server

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chaos-io/cutout/codec"
	"github.com/chaos-io/cutout/compose"
)

type Response struct {
	Success           bool   `json:"success"`
	ProcessedImageURL string `json:"processedImageUrl,omitempty"`
	ProcessingMethod  string `json:"processingMethod,omitempty"`
	BackgroundType    string `json:"backgroundType,omitempty"`
	Error             string `json:"error,omitempty"`
}

type removeRequest struct {
	Image string `json:"image"`
}

type customizeRequest struct {
	Image      string `json:"image"`
	Background string `json:"background"`
	Crop       bool   `json:"crop"`
}

type remoteHealth struct {
	Enabled   bool       `json:"enabled"`
	Healthy   bool       `json:"healthy"`
	CheckedAt *time.Time `json:"checked_at,omitempty"`
	Error     string     `json:"error,omitempty"`
}

type healthResponse struct {
	Status      string       `json:"status"`
	ModelLoaded bool         `json:"model_loaded"`
	Remover     string       `json:"remover"`
	Remote      remoteHealth `json:"remote"`
}

// handleHealth 本地抠图总是可用，model_loaded 恒为 true
func (s *Server) handleHealth(c *gin.Context) {
	slog.Debug("Health endpoint called")

	resp := healthResponse{
		Status:      "ok",
		ModelLoaded: true,
		Remover:     s.remover.Name(),
	}
	if s.health != nil {
		snap := s.health.Snapshot()
		resp.Remote = remoteHealth{
			Enabled: true,
			Healthy: snap.Healthy,
			Error:   snap.Err,
		}
		if !snap.CheckedAt.IsZero() {
			resp.Remote.CheckedAt = &snap.CheckedAt
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleIndex(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": ServiceName,
		"status":  "running",
		"endpoints": gin.H{
			"/health":                 "Check if server is operational",
			"/remove-background":      "Remove background from image",
			"/api/background-removal": "Remove background from a form upload",
			"/customize-product":      "Remove background and apply a backdrop",
		},
	})
}

/*
	curl -X POST "$BASE_URL/remove-background" \
	  -H "Content-Type: application/json" \
	  -d '{"image": "data:image/png;base64,..."}'
*/
func (s *Server) handleRemoveBackground(c *gin.Context) {
	var req removeRequest
	if !s.bindJSON(c, &req) {
		return
	}

	img, ok := s.decodeImage(c, req.Image)
	if !ok {
		return
	}

	out, method, err := s.removeBackground(c.Request.Context(), img)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}

	s.respondImage(c, out, method, compose.Transparent.Name)
}

// handleBackgroundRemovalForm 表单字段 image 为 data URL 或上传文件，background 可选；
// 背景无法合成时退回透明结果
func (s *Server) handleBackgroundRemovalForm(c *gin.Context) {
	img, ok := s.formImage(c)
	if !ok {
		return
	}

	out, method, err := s.removeBackground(c.Request.Context(), img)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}

	name := c.DefaultPostForm("background", compose.Transparent.Name)
	backdrop, err := compose.ParseBackdrop(name, s.library)
	if err != nil {
		slog.Warn("backdrop not applied, returning transparent cutout", "background", name, "error", err)
		backdrop = compose.Transparent
	}

	s.respondImage(c, compose.Apply(out, backdrop), method, backdrop.Name)
}

/*
	curl -X POST "$BASE_URL/customize-product" \
	  -H "Content-Type: application/json" \
	  -d '{"image": "data:image/png;base64,...", "background": "studio-light", "crop": true}'
*/
func (s *Server) handleCustomizeProduct(c *gin.Context) {
	var req customizeRequest
	if !s.bindJSON(c, &req) {
		return
	}

	backdrop, err := compose.ParseBackdrop(req.Background, s.library)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, compose.ErrUnknownBackdrop) {
			status = http.StatusBadRequest
		}
		s.fail(c, status, err)
		return
	}

	img, ok := s.decodeImage(c, req.Image)
	if !ok {
		return
	}

	// 前端传来的通常已是抠好的图
	var cutout image.Image = img
	method := MethodPassthrough
	if !compose.HasUsefulAlpha(img) {
		cutout, method, err = s.removeBackground(c.Request.Context(), img)
		if err != nil {
			s.fail(c, http.StatusInternalServerError, err)
			return
		}
	}

	if req.Crop {
		framed, err := compose.Frame(cutout)
		switch {
		case err == nil:
			cutout = framed
		case errors.Is(err, compose.ErrNoForeground):
			slog.Warn("no foreground to frame, keeping full image")
		default:
			s.fail(c, http.StatusInternalServerError, err)
			return
		}
	}

	s.respondImage(c, compose.Apply(cutout, backdrop), method, backdrop.Name)
}

// 响应中的错误文案沿用前端已依赖的原有字符串，故首字母大写
const (
	errExpectedJSON   = "Expected JSON data"
	errNoImage        = "No image provided"
	errInvalidImageFn = "Invalid image data: %w"
)

// bindJSON 读取 JSON 请求体，失败时已写好错误响应
func (s *Server) bindJSON(c *gin.Context, obj any) bool {
	if c.ContentType() != gin.MIMEJSON {
		slog.Warn("Request is not JSON", "content_type", c.ContentType())
		s.fail(c, http.StatusBadRequest, errors.New(errExpectedJSON))
		return false
	}

	if err := c.ShouldBindJSON(obj); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.fail(c, http.StatusRequestEntityTooLarge, fmt.Errorf("request body exceeds %d bytes", maxErr.Limit))
			return false
		}
		s.fail(c, http.StatusBadRequest, errors.New(errExpectedJSON))
		return false
	}
	return true
}

func (s *Server) decodeImage(c *gin.Context, dataURL string) (image.Image, bool) {
	if dataURL == "" {
		slog.Warn("No image in request")
		s.fail(c, http.StatusBadRequest, errors.New(errNoImage))
		return nil, false
	}

	img, err := codec.DecodeDataURL(dataURL)
	if err != nil {
		s.fail(c, http.StatusBadRequest, fmt.Errorf(errInvalidImageFn, err))
		return nil, false
	}

	slog.Info("Decoded image", "width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	return img, true
}

// formImage 优先读取 data URL 字段，其次读取上传的文件
func (s *Server) formImage(c *gin.Context) (image.Image, bool) {
	if v := c.PostForm("image"); v != "" {
		return s.decodeImage(c, v)
	}

	fh, err := c.FormFile("image")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.fail(c, http.StatusRequestEntityTooLarge, fmt.Errorf("request body exceeds %d bytes", maxErr.Limit))
			return nil, false
		}
		return s.decodeImage(c, "")
	}

	f, err := fh.Open()
	if err != nil {
		s.fail(c, http.StatusBadRequest, fmt.Errorf("open upload: %w", err))
		return nil, false
	}
	defer func() {
		_ = f.Close()
	}()

	data, err := io.ReadAll(f)
	if err != nil {
		s.fail(c, http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
		return nil, false
	}

	img, _, err := codec.Decode(data)
	if err != nil {
		s.fail(c, http.StatusBadRequest, fmt.Errorf(errInvalidImageFn, err))
		return nil, false
	}
	return img, true
}

func (s *Server) respondImage(c *gin.Context, img image.Image, method, background string) {
	url, err := codec.EncodeDataURL(img)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}

	slog.Info("Successfully processed image", "method", method, "background", background)
	c.JSON(http.StatusOK, Response{
		Success:           true,
		ProcessedImageURL: url,
		ProcessingMethod:  method,
		BackgroundType:    background,
	})
}

func (s *Server) fail(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "path", c.Request.URL.Path, "error", err, "request_id", c.GetString(ctxRequestID))
	}
	c.AbortWithStatusJSON(status, Response{Error: err.Error()})
}
