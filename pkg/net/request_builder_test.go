package net

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"testing"
)

func TestSign_Deterministic(t *testing.T) {
	sig1 := Sign("key-1", "secret-1", 1767945600)
	sig2 := Sign("key-1", "secret-1", 1767945600)

	if sig1 != sig2 {
		t.Fatal("相同输入应得到相同签名")
	}
	// hex(HMAC-SHA256) 固定 64 个字符
	if len(sig1) != 64 {
		t.Fatalf("签名长度错误: %d", len(sig1))
	}
}

func TestSign_InputsChangeSignature(t *testing.T) {
	base := Sign("key-1", "secret-1", 1767945600)

	if Sign("key-2", "secret-1", 1767945600) == base {
		t.Fatal("api_key 变化签名应变化")
	}
	if Sign("key-1", "secret-2", 1767945600) == base {
		t.Fatal("secret_key 变化签名应变化")
	}
	if Sign("key-1", "secret-1", 1767945601) == base {
		t.Fatal("时间戳变化签名应变化")
	}
}

func TestSignedHeaders_SelfConsistent(t *testing.T) {
	cred := Credentials{ApiKey: "key-1", ApiToken: "token-1", SecretKey: "secret-1"}
	headers := SignedHeaders(cred)

	if headers["X-Api-Key"] != "key-1" {
		t.Fatal("缺少 X-Api-Key 头")
	}
	if headers["Authorization"] != "Bearer token-1" {
		t.Fatalf("Bearer 凭证错误: %s", headers["Authorization"])
	}

	sec, err := strconv.ParseInt(headers["X-Request-Time"], 10, 64)
	if err != nil {
		t.Fatalf("时间戳格式错误: %s", headers["X-Request-Time"])
	}
	if headers["X-Signature"] != Sign("key-1", "secret-1", sec) {
		t.Fatal("签名与时间戳不自洽")
	}
}

func TestBuildGatewayRequest_Headers(t *testing.T) {
	cred := Credentials{ApiKey: "key-1", ApiToken: "token-1", SecretKey: "secret-1"}

	req, err := BuildGatewayPostRequest(context.Background(),
		"http://gateway.local/api/sales/prospect", strings.NewReader(`{}`), cred)
	if err != nil {
		t.Fatalf("构建请求失败: %v", err)
	}

	if req.Method != http.MethodPost {
		t.Fatalf("请求方法错误: %s", req.Method)
	}
	if req.Header.Get("X-Api-Key") != "key-1" {
		t.Fatal("缺少 X-Api-Key 头")
	}
	if req.Header.Get("Authorization") != "Bearer token-1" {
		t.Fatalf("Bearer 凭证错误: %s", req.Header.Get("Authorization"))
	}

	ts := req.Header.Get("X-Request-Time")
	if ts == "" {
		t.Fatal("缺少 X-Request-Time 头")
	}

	// 签名必须与头里的时间戳自洽
	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		t.Fatalf("时间戳格式错误: %s", ts)
	}
	if req.Header.Get("X-Signature") != Sign("key-1", "secret-1", sec) {
		t.Fatal("签名与时间戳不自洽")
	}
}
