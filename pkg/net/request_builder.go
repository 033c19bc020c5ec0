package net

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Credentials 网关鉴权三元组
type Credentials struct {
	ApiKey    string // 标识经销商应用
	ApiToken  string // Bearer 凭证
	SecretKey string // 签名密钥
}

// Sign 计算请求签名
// 外部网关约定：signature = hex(HMAC-SHA256(secret_key, api_key + timestamp))
// 注意：拼接顺序、编码方式必须与网关完全一致，错一位就是静默的 401，而不是报文错误
func Sign(apiKey, secretKey string, ts int64) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(apiKey + strconv.FormatInt(ts, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignedHeaders 生成一套签名头 (X-Api-Key, X-Request-Time, X-Signature)
// 和 Bearer 凭证
// 适用方：FetchService、ProbeService 等所有访问经销商网关的服务
// 时间戳每次调用重新生成，重试时必须重新取一套
func SignedHeaders(cred Credentials) map[string]string {
	ts := time.Now().Unix()
	return map[string]string{
		"X-Api-Key":      cred.ApiKey,
		"X-Request-Time": strconv.FormatInt(ts, 10),
		"X-Signature":    Sign(cred.ApiKey, cred.SecretKey, ts),
		"Authorization":  "Bearer " + cred.ApiToken,
	}
}

// BuildGatewayRequest 通用网关请求构建器
func BuildGatewayRequest(ctx context.Context, method, url string, body io.Reader, cred Credentials) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range SignedHeaders(cred) {
		req.Header.Set(k, v)
	}
	return req, nil
}

// BuildGatewayPostRequest 构建网关 POST 请求
func BuildGatewayPostRequest(ctx context.Context, url string, body io.Reader, cred Credentials) (*http.Request, error) {
	return BuildGatewayRequest(ctx, http.MethodPost, url, body, cred)
}
