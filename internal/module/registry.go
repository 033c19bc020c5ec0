package module

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"
)

// ==================== 模块注册表 ====================

// 模块代码常量
// 外部网关支持的全部单据模块，集合固定，新模块需要改代码接入
const (
	CodeProspect        = "prospect"
	CodeLeasing         = "leasing"
	CodeDocHandling     = "dochandling"
	CodeUnitInbound     = "unitinbound"
	CodeDelivery        = "delivery"
	CodeBilling         = "billing"
	CodeUnitInvoice     = "unitinvoice"
	CodePartsInbound    = "partsinbound"
	CodePartsSales      = "partssales"
	CodeWorkOrder       = "workorder"
	CodeWorkshopInvoice = "workshopinvoice"
	CodeDepositHLO      = "dphlo"
	CodeUnpaidHLO       = "unpaidhlo"
	CodePartsInvoice    = "partsinvoice"
)

// MergeResult 合并分类
type MergeResult int

const (
	MergeNew       MergeResult = iota // 首次入库
	MergeDuplicate                    // modified_time 未变，不写
	MergeUpdated                      // 表头更新 + 行项目整体替换
)

func (r MergeResult) String() string {
	switch r {
	case MergeNew:
		return "new"
	case MergeDuplicate:
		return "duplicate"
	case MergeUpdated:
		return "updated"
	}
	return "unknown"
}

// Record 规范化后的单据记录（表头 + 行项目）
type Record interface{}

// NormalizeFunc 把网关原始报文映射为规范化记录
// 纯函数，不做任何 I/O
type NormalizeFunc func(dealerID string, raw map[string]interface{}) (Record, error)

// MergeFunc 按自然键把规范化记录合并入库
type MergeFunc func(ctx context.Context, db *gorm.DB, rec Record) (MergeResult, error)

// Descriptor 单个模块的描述
// 用映射表登记每个模块的转换函数，不走反射
type Descriptor struct {
	Code      string // 模块代码，调度配置和日志都用它
	Name      string // 展示名
	Endpoint  string // 网关相对路径
	HasLines  bool   // 是否带行项目
	Normalize NormalizeFunc
	Merge     MergeFunc
}

var registry = buildRegistry()

func buildRegistry() map[string]*Descriptor {
	descriptors := []*Descriptor{
		{Code: CodeProspect, Name: "潜客", Endpoint: "sales/prospect", HasLines: true, Normalize: normalizeProspect, Merge: mergeProspect},
		{Code: CodeLeasing, Name: "融资申请", Endpoint: "sales/leasing", HasLines: false, Normalize: normalizeLeasing, Merge: mergeLeasing},
		{Code: CodeDocHandling, Name: "证件交接", Endpoint: "sales/dochandling", HasLines: true, Normalize: normalizeDocHandling, Merge: mergeDocHandling},
		{Code: CodeBilling, Name: "销售收款", Endpoint: "sales/billing", HasLines: false, Normalize: normalizeBilling, Merge: mergeBilling},
		{Code: CodeUnitInbound, Name: "整车入库", Endpoint: "unit/inbound", HasLines: true, Normalize: normalizeUnitInbound, Merge: mergeUnitInbound},
		{Code: CodeDelivery, Name: "整车交付", Endpoint: "unit/delivery", HasLines: true, Normalize: normalizeDelivery, Merge: mergeDelivery},
		{Code: CodeUnitInvoice, Name: "整车发票", Endpoint: "unit/invoice", HasLines: true, Normalize: normalizeUnitInvoice, Merge: mergeUnitInvoice},
		{Code: CodeWorkOrder, Name: "维修工单", Endpoint: "workshop/pkb", HasLines: true, Normalize: normalizeWorkOrder, Merge: mergeWorkOrder},
		{Code: CodeWorkshopInvoice, Name: "车间发票", Endpoint: "workshop/invoice", HasLines: true, Normalize: normalizeWorkshopInvoice, Merge: mergeWorkshopInvoice},
		{Code: CodeDepositHLO, Name: "HLO订金", Endpoint: "workshop/dphlo", HasLines: true, Normalize: normalizeDepositHLO, Merge: mergeDepositHLO},
		{Code: CodeUnpaidHLO, Name: "HLO欠款", Endpoint: "workshop/unpaidhlo", HasLines: true, Normalize: normalizeUnpaidHLO, Merge: mergeUnpaidHLO},
		{Code: CodePartsInbound, Name: "零件入库", Endpoint: "parts/inbound", HasLines: true, Normalize: normalizePartsInbound, Merge: mergePartsInbound},
		{Code: CodePartsSales, Name: "零件销售", Endpoint: "parts/sales", HasLines: true, Normalize: normalizePartsSales, Merge: mergePartsSales},
		{Code: CodePartsInvoice, Name: "零件发票", Endpoint: "parts/invoice", HasLines: true, Normalize: normalizePartsInvoice, Merge: mergePartsInvoice},
	}

	m := make(map[string]*Descriptor, len(descriptors))
	for _, d := range descriptors {
		m[d.Code] = d
	}
	return m
}

// Get 按模块代码取描述
func Get(code string) (*Descriptor, error) {
	d, ok := registry[code]
	if !ok {
		return nil, fmt.Errorf("未知的模块代码: %s", code)
	}
	return d, nil
}

// Exists 模块代码是否有效
func Exists(code string) bool {
	_, ok := registry[code]
	return ok
}

// Codes 返回全部模块代码（稳定顺序）
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// All 返回全部模块描述（按代码排序）
func All() []*Descriptor {
	descriptors := make([]*Descriptor, 0, len(registry))
	for _, code := range Codes() {
		descriptors = append(descriptors, registry[code])
	}
	return descriptors
}
