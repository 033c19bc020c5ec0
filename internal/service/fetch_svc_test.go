package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dms_sync_v1_202608/internal/model"
	"dms_sync_v1_202608/internal/module"
	"dms_sync_v1_202608/pkg/net"
)

func testDealer() *model.Dealer {
	return &model.Dealer{
		DealerID:  "H001",
		ApiKey:    "key-1",
		ApiToken:  "token-1",
		SecretKey: "secret-1",
		Status:    model.DealerStatusActive,
	}
}

func testApiConfig(baseURL string, pageLimit int) *model.ApiConfiguration {
	return &model.ApiConfiguration{
		Name:              "default",
		BaseURL:           baseURL,
		TimeoutSeconds:    5,
		RetryAttempts:     1,
		PageLimit:         pageLimit,
		RunTimeoutMinutes: 1,
	}
}

func testWindow() Window {
	to := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	return Window{From: to.Add(-time.Hour), To: to}
}

// TestFetchWindow_Pagination 翻页到短页为止
func TestFetchWindow_Pagination(t *testing.T) {
	const limit = 3
	// 7 条记录按 limit=3 分三页：3 + 3 + 1
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Page  int `json:"page"`
			Limit int `json:"limit"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Limit != limit {
			t.Errorf("limit 透传错误: %d", req.Limit)
		}

		total := 7
		start := (req.Page - 1) * req.Limit
		var data []map[string]interface{}
		for i := start; i < total && i < start+req.Limit; i++ {
			data = append(data, map[string]interface{}{"idProspect": fmt.Sprintf("P-%d", i)})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"status": 1, "data": data})
	}))
	defer srv.Close()

	desc, _ := module.Get(module.CodeProspect)
	svc := NewFetchService(net.NewDispatcher())

	records, err := svc.FetchWindow(context.Background(),
		testDealer(), testApiConfig(srv.URL, limit), desc, testWindow())
	if err != nil {
		t.Fatalf("拉取失败: %v", err)
	}
	if len(records) != 7 {
		t.Fatalf("分页聚合数量错误: %d", len(records))
	}
	if records[6]["idProspect"] != "P-6" {
		t.Fatalf("分页顺序错误: %v", records[6])
	}
}

// TestFetchWindow_EmptyWindow 空窗口返回空集不报错
func TestFetchWindow_EmptyWindow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"status": 1, "data": []interface{}{}})
	}))
	defer srv.Close()

	desc, _ := module.Get(module.CodeProspect)
	svc := NewFetchService(net.NewDispatcher())

	records, err := svc.FetchWindow(context.Background(),
		testDealer(), testApiConfig(srv.URL, 100), desc, testWindow())
	if err != nil {
		t.Fatalf("空窗口不应报错: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("空窗口应返回空集: %d", len(records))
	}
}

// TestFetchWindow_BusinessFailure 网关业务失败上抛
func TestFetchWindow_BusinessFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"status": 0, "message": "invalid dealer"})
	}))
	defer srv.Close()

	desc, _ := module.Get(module.CodeProspect)
	svc := NewFetchService(net.NewDispatcher())

	_, err := svc.FetchWindow(context.Background(),
		testDealer(), testApiConfig(srv.URL, 100), desc, testWindow())
	if err == nil {
		t.Fatal("业务失败应上抛错误")
	}
}

// TestFetchWindow_EndpointPerModule 端点按模块拼接
func TestFetchWindow_EndpointPerModule(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]interface{}{"status": 1, "data": []interface{}{}})
	}))
	defer srv.Close()

	desc, _ := module.Get(module.CodeWorkOrder)
	svc := NewFetchService(net.NewDispatcher())

	if _, err := svc.FetchWindow(context.Background(),
		testDealer(), testApiConfig(srv.URL+"/", 100), desc, testWindow()); err != nil {
		t.Fatalf("拉取失败: %v", err)
	}
	if gotPath != "/workshop/pkb" {
		t.Fatalf("模块端点错误: %s", gotPath)
	}
}
