package http

import (
	"context"
	"time"
)

//go:generate mockgen -destination=mocks/http.go -package=mocks . IClient
type IClient interface {
	DoHTTPRequest(ctx context.Context, requestParam *RequestParam) error
}

// RequestParam 描述一次请求
//
// Body 为 nil 时不发送请求体；io.Reader、[]byte、string 原样发送；其他类型按 JSON 序列化。
// Response 非 nil 时，响应体按 JSON 解码到 Response。
type RequestParam struct {
	RequestURI string
	Method     string
	Header     map[string]string
	Body       interface{}
	Response   interface{}

	// Timeout 大于 0 时覆盖客户端默认超时
	Timeout time.Duration
}
