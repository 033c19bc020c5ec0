package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"dms_sync_v1_202608/internal/model"
	"dms_sync_v1_202608/internal/module"
	"dms_sync_v1_202608/pkg/net"
)

// ==================== 网关报文结构 ====================

// gatewayRequest 网关拉取请求体（所有模块共用同一套分页协议）
type gatewayRequest struct {
	DealerID string `json:"dealer_id"`
	FromTime string `json:"from_time"`
	ToTime   string `json:"to_time"`
	Page     int    `json:"page"`
	Limit    int    `json:"limit"`
}

// gatewayResponse 网关统一响应信封
type gatewayResponse struct {
	Status  int               `json:"status"`
	Message string            `json:"message"`
	Data    []json.RawMessage `json:"data"`
}

// 网关时间窗口的报文格式
const gatewayTimeLayout = "2006-01-02 15:04:05"

// 单次 run 的分页上限，防止网关分页异常时把 run 拖成死循环
const maxPages = 1000

// ==================== FetchService 抓取服务 ====================

// Window 拉取时间窗口
type Window struct {
	From time.Time
	To   time.Time
}

// FetchService 抓取服务接口
// 只负责把某模块在窗口内的原始记录分页拉完，不做任何入库
type FetchService interface {
	FetchWindow(ctx context.Context, dealer *model.Dealer, apiCfg *model.ApiConfiguration,
		desc *module.Descriptor, window Window) ([]map[string]interface{}, error)
}

type fetchService struct {
	dispatcher net.Dispatcher
}

// NewFetchService 创建抓取服务
func NewFetchService(dispatcher net.Dispatcher) FetchService {
	return &fetchService{dispatcher: dispatcher}
}

// FetchWindow 分页拉取窗口内的全部记录
// 翻页到返回条数小于 limit 或 data 为空为止；任何一页失败则整个 run 失败
func (s *fetchService) FetchWindow(ctx context.Context, dealer *model.Dealer, apiCfg *model.ApiConfiguration,
	desc *module.Descriptor, window Window) ([]map[string]interface{}, error) {

	endpoint := strings.TrimRight(apiCfg.BaseURL, "/") + "/" + desc.Endpoint
	cred := net.Credentials{
		ApiKey:    dealer.ApiKey,
		ApiToken:  dealer.ApiToken,
		SecretKey: dealer.SecretKey,
	}

	limit := apiCfg.PageLimit
	if limit <= 0 {
		limit = 100
	}

	var records []map[string]interface{}
	for page := 1; page <= maxPages; page++ {
		reqBody := gatewayRequest{
			DealerID: dealer.DealerID,
			FromTime: window.From.Format(gatewayTimeLayout),
			ToTime:   window.To.Format(gatewayTimeLayout),
			Page:     page,
			Limit:    limit,
		}
		payload, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("编码请求体失败: %w", err)
		}

		// 签名带时间戳，每次尝试（包括同一页的重试）都重新构建请求
		build := func(ctx context.Context) (*http.Request, error) {
			return net.BuildGatewayPostRequest(ctx, endpoint, bytes.NewReader(payload), cred)
		}

		callCtx, cancel := context.WithTimeout(ctx, apiCfg.Timeout())
		body, err := s.dispatcher.Send(callCtx, dealer.DealerID, build, apiCfg.RetryAttempts)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("拉取 %s 第 %d 页失败: %w", desc.Code, page, err)
		}

		var resp gatewayResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("解析 %s 第 %d 页响应失败: %w", desc.Code, page, err)
		}
		if resp.Status != 1 {
			return nil, fmt.Errorf("网关返回业务失败 [%d]: %s", resp.Status, resp.Message)
		}

		for _, item := range resp.Data {
			var raw map[string]interface{}
			if err := json.Unmarshal(item, &raw); err != nil {
				return nil, fmt.Errorf("解析 %s 记录失败: %w", desc.Code, err)
			}
			records = append(records, raw)
		}

		// 短页即最后一页
		if len(resp.Data) < limit {
			return records, nil
		}
		if page == maxPages {
			log.Printf("[FetchService] dealer %s 模块 %s 翻页达到上限 %d 页，提前截断", dealer.DealerID, desc.Code, maxPages)
		}
	}

	return records, nil
}
