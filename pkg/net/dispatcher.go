package net

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// ==================== 错误分类 ====================

// GatewayError 网关返回的业务失败
type GatewayError struct {
	StatusCode int
	Body       string
	Transient  bool
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway error [%d]: %s", e.StatusCode, e.Body)
}

// IsTransient 是否为可重试的瞬时失败（超时、连接重置、5xx、429）
func IsTransient(err error) bool {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Transient
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	// 非 GatewayError 的传输层错误一律按瞬时处理
	return err != nil
}

// IsAuthError 是否为鉴权失败（凭证过期或签名不匹配，重试无意义）
func IsAuthError(err error) bool {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.StatusCode == http.StatusUnauthorized || ge.StatusCode == http.StatusForbidden
	}
	return false
}

// ==================== Dispatcher 网络调度器 ====================

// RequestBuilder 请求构造回调
// 重试时签名时间戳会变化，所以每次尝试都重新构建请求
type RequestBuilder func(ctx context.Context) (*http.Request, error)

// Dispatcher 网络调度器 (通用组件)
type Dispatcher interface {
	// Send 发送 HTTP 请求，带有界重试
	// dealerID: 业务实体的唯一标识，用于日志与限流维度
	// attempts: 瞬时失败的重试预算（0 表示只尝试一次）
	Send(ctx context.Context, dealerID string, build RequestBuilder, attempts int) ([]byte, error)
}

// httpDispatcher 是 Dispatcher 接口的具体实现
// 注意：它是私有的，外部只能通过 NewDispatcher 获取接口
type httpDispatcher struct {
	client      *http.Client
	baseBackoff time.Duration
}

var _ Dispatcher = (*httpDispatcher)(nil)

// NewDispatcher 创建调度器
// 单次调用的超时由调用方通过 ctx（per-call deadline）控制，client 自身不设超时
func NewDispatcher() Dispatcher {
	return &httpDispatcher{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseBackoff: 500 * time.Millisecond,
	}
}

// Send 发送 HTTP 请求 (自动处理瞬时失败的指数退避重试)
// 4xx（429 除外）不重试，立即上抛；鉴权失败需要人工介入，重试只会加剧限流
func (d *httpDispatcher) Send(ctx context.Context, dealerID string, build RequestBuilder, attempts int) ([]byte, error) {
	if attempts < 0 {
		attempts = 0
	}

	var lastErr error
	for i := 0; i <= attempts; i++ {
		if i > 0 {
			// 指数退避：base * 2^(i-1)
			backoff := d.baseBackoff << (i - 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := build(ctx)
		if err != nil {
			return nil, fmt.Errorf("构建请求失败: %w", err)
		}

		body, err := d.doOnce(req)
		if err == nil {
			return body, nil
		}

		lastErr = err
		if !IsTransient(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("dealer %s 请求重试 %d 次后仍失败: %w", dealerID, attempts, lastErr)
}

// doOnce 执行单次请求并分类失败
func (d *httpDispatcher) doOnce(req *http.Request) ([]byte, error) {
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, &GatewayError{StatusCode: resp.StatusCode, Body: truncate(body), Transient: true}
	}
	if resp.StatusCode >= 400 {
		return nil, &GatewayError{StatusCode: resp.StatusCode, Body: truncate(body), Transient: false}
	}

	return body, nil
}

func truncate(body []byte) string {
	const limit = 512
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
