package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// 售后域单据：工单（PKB）、车间发票（NJB/NSC）、HLO 订金、HLO 欠款

// ==================== WorkOrder 工单 ====================

// WorkOrderStatus 工单状态（外部系统透传值归一化后的集合）
const (
	WorkOrderStatusOpen     = "open"
	WorkOrderStatusProgress = "in_progress"
	WorkOrderStatusClosed   = "closed"
	WorkOrderStatusCanceled = "canceled"
)

// WorkOrder 维修工单表头，行项目分为工时与零件两类
type WorkOrder struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	DealerID    string `gorm:"size:32;not null;uniqueIndex:uk_work_order_key" json:"dealer_id"`
	WorkOrderNo string `gorm:"size:64;not null;uniqueIndex:uk_work_order_key" json:"work_order_no"`

	ServiceAdvisor string     `gorm:"size:64" json:"service_advisor"`
	ServiceDate    *time.Time `json:"service_date"`
	OwnerName      string     `gorm:"size:255" json:"owner_name"`
	PlateNo        string     `gorm:"size:16;index" json:"plate_no"`
	EngineNo       string     `gorm:"size:32" json:"engine_no"`
	FrameNo        string     `gorm:"size:32" json:"frame_no"`
	Mileage        int        `gorm:"default:0" json:"mileage"`
	ComeInType     string     `gorm:"size:32" json:"come_in_type"`
	Status         string     `gorm:"size:32;index" json:"status"`

	TotalServiceFee decimal.Decimal `gorm:"type:numeric(18,2)" json:"total_service_fee"`
	TotalPartsFee   decimal.Decimal `gorm:"type:numeric(18,2)" json:"total_parts_fee"`

	ModifiedTime *time.Time     `gorm:"index" json:"modified_time"`
	RawData      datatypes.JSON `gorm:"type:jsonb" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Services []WorkOrderService `gorm:"foreignKey:WorkOrderID;constraint:OnDelete:CASCADE" json:"services"`
	Parts    []WorkOrderPart    `gorm:"foreignKey:WorkOrderID;constraint:OnDelete:CASCADE" json:"parts"`
}

func (*WorkOrder) TableName() string {
	return "work_orders"
}

// WorkOrderService 工单工时行
type WorkOrderService struct {
	ID          int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	WorkOrderID int64 `gorm:"index;not null" json:"work_order_id"`

	JobID    string          `gorm:"size:64" json:"job_id"`
	JobName  string          `gorm:"size:255" json:"job_name"`
	Fee      decimal.Decimal `gorm:"type:numeric(18,2)" json:"fee"`
	PromoID  string          `gorm:"size:64" json:"promo_id"`
	Discount decimal.Decimal `gorm:"type:numeric(18,2)" json:"discount"`
	Total    decimal.Decimal `gorm:"type:numeric(18,2)" json:"total"`

	CreatedAt time.Time `json:"created_at"`
}

func (*WorkOrderService) TableName() string {
	return "work_order_services"
}

// WorkOrderPart 工单零件行
type WorkOrderPart struct {
	ID          int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	WorkOrderID int64 `gorm:"index;not null" json:"work_order_id"`

	JobID    string          `gorm:"size:64" json:"job_id"`
	PartsNo  string          `gorm:"size:64;index" json:"parts_no"`
	Quantity int             `gorm:"default:1" json:"quantity"`
	Price    decimal.Decimal `gorm:"type:numeric(18,2)" json:"price"`
	Discount decimal.Decimal `gorm:"type:numeric(18,2)" json:"discount"`
	Total    decimal.Decimal `gorm:"type:numeric(18,2)" json:"total"`

	CreatedAt time.Time `json:"created_at"`
}

func (*WorkOrderPart) TableName() string {
	return "work_order_parts"
}

// ==================== WorkshopInvoice 车间发票 ====================

// 车间发票行类型
const (
	WorkshopLineService = "service" // 工时（NJB）
	WorkshopLinePart    = "part"    // 零件（NSC）
)

// WorkshopInvoice 车间发票表头，NJB（工时）与 NSC（零件）合并为一张单据
type WorkshopInvoice struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	DealerID string `gorm:"size:32;not null;uniqueIndex:uk_workshop_inv_key" json:"dealer_id"`
	NJBNo    string `gorm:"size:64;not null;uniqueIndex:uk_workshop_inv_key" json:"njb_no"`

	NSCNo        string          `gorm:"size:64" json:"nsc_no"`
	WorkOrderNo  string          `gorm:"size:64;index" json:"work_order_no"`
	NJBDate      *time.Time      `json:"njb_date"`
	NSCDate      *time.Time      `json:"nsc_date"`
	TotalService decimal.Decimal `gorm:"type:numeric(18,2)" json:"total_service"`
	TotalParts   decimal.Decimal `gorm:"type:numeric(18,2)" json:"total_parts"`

	ModifiedTime *time.Time     `gorm:"index" json:"modified_time"`
	RawData      datatypes.JSON `gorm:"type:jsonb" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Lines []WorkshopInvoiceLine `gorm:"foreignKey:WorkshopInvoiceID;constraint:OnDelete:CASCADE" json:"lines"`
}

func (*WorkshopInvoice) TableName() string {
	return "workshop_invoices"
}

// WorkshopInvoiceLine 车间发票行，line_type 区分工时与零件
type WorkshopInvoiceLine struct {
	ID                int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	WorkshopInvoiceID int64 `gorm:"index;not null" json:"workshop_invoice_id"`

	LineType string          `gorm:"size:16;not null" json:"line_type"`
	ItemID   string          `gorm:"size:64" json:"item_id"` // 工时为 job id，零件为 parts no
	ItemName string          `gorm:"size:255" json:"item_name"`
	Quantity int             `gorm:"default:1" json:"quantity"`
	Price    decimal.Decimal `gorm:"type:numeric(18,2)" json:"price"`
	Discount decimal.Decimal `gorm:"type:numeric(18,2)" json:"discount"`
	Total    decimal.Decimal `gorm:"type:numeric(18,2)" json:"total"`

	CreatedAt time.Time `json:"created_at"`
}

func (*WorkshopInvoiceLine) TableName() string {
	return "workshop_invoice_lines"
}

// ==================== DepositHLO HLO 订金 ====================

// DepositHLO HLO 订金发票表头
type DepositHLO struct {
	ID               int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	DealerID         string `gorm:"size:32;not null;uniqueIndex:uk_dp_hlo_key" json:"dealer_id"`
	DepositInvoiceNo string `gorm:"size:64;not null;uniqueIndex:uk_dp_hlo_key" json:"deposit_invoice_no"`

	HLODocumentID string          `gorm:"size:64;index" json:"hlo_document_id"`
	InvoiceDate   *time.Time      `json:"invoice_date"`
	TotalDeposit  decimal.Decimal `gorm:"type:numeric(18,2)" json:"total_deposit"`

	ModifiedTime *time.Time     `gorm:"index" json:"modified_time"`
	RawData      datatypes.JSON `gorm:"type:jsonb" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Parts []DepositHLOPart `gorm:"foreignKey:DepositHLOID;constraint:OnDelete:CASCADE" json:"parts"`
}

func (*DepositHLO) TableName() string {
	return "deposit_hlos"
}

// DepositHLOPart 订金对应的零件
type DepositHLOPart struct {
	ID           int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	DepositHLOID int64 `gorm:"index;not null" json:"deposit_hlo_id"`

	PartsNo  string          `gorm:"size:64;index" json:"parts_no"`
	Quantity int             `gorm:"default:1" json:"quantity"`
	Price    decimal.Decimal `gorm:"type:numeric(18,2)" json:"price"`
	Deposit  decimal.Decimal `gorm:"type:numeric(18,2)" json:"deposit"`

	CreatedAt time.Time `json:"created_at"`
}

func (*DepositHLOPart) TableName() string {
	return "deposit_hlo_parts"
}

// ==================== UnpaidHLO HLO 欠款 ====================

// UnpaidHLO 尚未结清的 HLO 单据表头
type UnpaidHLO struct {
	ID            int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	DealerID      string `gorm:"size:32;not null;uniqueIndex:uk_unpaid_hlo_key" json:"dealer_id"`
	HLODocumentID string `gorm:"size:64;not null;uniqueIndex:uk_unpaid_hlo_key" json:"hlo_document_id"`

	OrderDate    *time.Time      `json:"order_date"`
	WorkOrderNo  string          `gorm:"size:64;index" json:"work_order_no"`
	CustomerID   string          `gorm:"size:64" json:"customer_id"`
	CustomerName string          `gorm:"size:255" json:"customer_name"`
	TotalAmount  decimal.Decimal `gorm:"type:numeric(18,2)" json:"total_amount"`
	DownPayment  decimal.Decimal `gorm:"type:numeric(18,2)" json:"down_payment"`
	Remaining    decimal.Decimal `gorm:"type:numeric(18,2)" json:"remaining"`

	ModifiedTime *time.Time     `gorm:"index" json:"modified_time"`
	RawData      datatypes.JSON `gorm:"type:jsonb" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Parts []UnpaidHLOPart `gorm:"foreignKey:UnpaidHLOID;constraint:OnDelete:CASCADE" json:"parts"`
}

func (*UnpaidHLO) TableName() string {
	return "unpaid_hlos"
}

// UnpaidHLOPart 欠款单据中的零件
type UnpaidHLOPart struct {
	ID          int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UnpaidHLOID int64 `gorm:"index;not null" json:"unpaid_hlo_id"`

	PartsNo  string          `gorm:"size:64;index" json:"parts_no"`
	Quantity int             `gorm:"default:1" json:"quantity"`
	Price    decimal.Decimal `gorm:"type:numeric(18,2)" json:"price"`
	Total    decimal.Decimal `gorm:"type:numeric(18,2)" json:"total"`

	CreatedAt time.Time `json:"created_at"`
}

func (*UnpaidHLOPart) TableName() string {
	return "unpaid_hlo_parts"
}
