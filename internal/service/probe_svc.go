package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dms_sync_v1_202608/internal/repository"
	"dms_sync_v1_202608/pkg/net"

	"github.com/go-resty/resty/v2"
)

// ==================== ProbeService 连通性探测 ====================

// ProbeResult 一次探测的结果
type ProbeResult struct {
	DealerID   string `json:"dealer_id"`
	Reachable  bool   `json:"reachable"`
	StatusCode int    `json:"status_code"`
	LatencyMs  int64  `json:"latency_ms"`
	Message    string `json:"message,omitempty"`
}

// ProbeService 网关连通性探测
// 录入新经销商凭证后先探测一次，避免把坏凭证留给夜间批量同步去发现
type ProbeService struct {
	dealerRepo    repository.DealerRepository
	apiConfigRepo repository.ApiConfigRepository
	client        *resty.Client
}

// NewProbeService 创建探测服务
func NewProbeService(dealerRepo repository.DealerRepository, apiConfigRepo repository.ApiConfigRepository) *ProbeService {
	return &ProbeService{
		dealerRepo:    dealerRepo,
		apiConfigRepo: apiConfigRepo,
		client:        resty.New().SetTimeout(10 * time.Second),
	}
}

// Probe 用经销商凭证访问网关 ping 端点
func (s *ProbeService) Probe(ctx context.Context, dealerID string) (*ProbeResult, error) {
	dealer, err := s.dealerRepo.GetByDealerID(ctx, dealerID)
	if err != nil {
		return nil, fmt.Errorf("加载经销商 %s 失败: %w", dealerID, err)
	}

	name := dealer.ConfigName
	if name == "" {
		name = "default"
	}
	apiCfg, err := s.apiConfigRepo.GetByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("加载 API 配置 %s 失败: %w", name, err)
	}

	headers := net.SignedHeaders(net.Credentials{
		ApiKey:    dealer.ApiKey,
		ApiToken:  dealer.ApiToken,
		SecretKey: dealer.SecretKey,
	})

	start := time.Now()
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeaders(headers).
		Get(strings.TrimRight(apiCfg.BaseURL, "/") + "/ping")

	result := &ProbeResult{DealerID: dealerID, LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		result.Message = err.Error()
		return result, nil
	}

	result.StatusCode = resp.StatusCode()
	result.Reachable = resp.IsSuccess()
	if !result.Reachable {
		result.Message = strings.TrimSpace(string(resp.Body()))
	}
	return result, nil
}

// ProbeAll 探测全部激活经销商
func (s *ProbeService) ProbeAll(ctx context.Context) ([]ProbeResult, error) {
	dealers, err := s.dealerRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]ProbeResult, 0, len(dealers))
	for _, dealer := range dealers {
		r, err := s.Probe(ctx, dealer.DealerID)
		if err != nil {
			results = append(results, ProbeResult{DealerID: dealer.DealerID, Message: err.Error()})
			continue
		}
		results = append(results, *r)
	}
	return results, nil
}
