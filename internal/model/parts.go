package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// 零件域单据：零件入库、零件销售、零件发票

// ==================== PartsInbound 零件入库 ====================

// PartsInbound 零件入库表头（按收货单号去重）
type PartsInbound struct {
	ID             int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	DealerID       string `gorm:"size:32;not null;uniqueIndex:uk_parts_inbound_key" json:"dealer_id"`
	GoodsReceiptNo string `gorm:"size:64;not null;uniqueIndex:uk_parts_inbound_key" json:"goods_receipt_no"`

	ReceiveDate    *time.Time `json:"receive_date"`
	ShippingListNo string     `gorm:"size:64" json:"shipping_list_no"`
	PONo           string     `gorm:"size:64" json:"po_no"`

	ModifiedTime *time.Time     `gorm:"index" json:"modified_time"`
	RawData      datatypes.JSON `gorm:"type:jsonb" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Parts []PartsInboundPart `gorm:"foreignKey:PartsInboundID;constraint:OnDelete:CASCADE" json:"parts"`
}

func (*PartsInbound) TableName() string {
	return "parts_inbounds"
}

// PartsInboundPart 入库的单个零件
type PartsInboundPart struct {
	ID             int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	PartsInboundID int64 `gorm:"index;not null" json:"parts_inbound_id"`

	PartsNo   string `gorm:"size:64;index" json:"parts_no"`
	Quantity  int    `gorm:"default:1" json:"quantity"`
	UOM       string `gorm:"size:16" json:"uom"`
	BinningNo string `gorm:"size:64" json:"binning_no"`

	CreatedAt time.Time `json:"created_at"`
}

func (*PartsInboundPart) TableName() string {
	return "parts_inbound_parts"
}

// ==================== PartsSales 零件销售 ====================

// PartsSales 零件销售单表头
type PartsSales struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	DealerID string `gorm:"size:32;not null;uniqueIndex:uk_parts_sales_key" json:"dealer_id"`
	SONo     string `gorm:"size:64;not null;uniqueIndex:uk_parts_sales_key" json:"so_no"`

	SODate       *time.Time      `json:"so_date"`
	CustomerID   string          `gorm:"size:64" json:"customer_id"`
	CustomerName string          `gorm:"size:255" json:"customer_name"`
	Status       string          `gorm:"size:32" json:"status"`
	TotalAmount  decimal.Decimal `gorm:"type:numeric(18,2)" json:"total_amount"`

	ModifiedTime *time.Time     `gorm:"index" json:"modified_time"`
	RawData      datatypes.JSON `gorm:"type:jsonb" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Parts []PartsSalesPart `gorm:"foreignKey:PartsSalesID;constraint:OnDelete:CASCADE" json:"parts"`
}

func (*PartsSales) TableName() string {
	return "parts_sales"
}

// PartsSalesPart 销售单中的单个零件
type PartsSalesPart struct {
	ID           int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	PartsSalesID int64 `gorm:"index;not null" json:"parts_sales_id"`

	PartsNo     string          `gorm:"size:64;index" json:"parts_no"`
	Quantity    int             `gorm:"default:1" json:"quantity"`
	Price       decimal.Decimal `gorm:"type:numeric(18,2)" json:"price"`
	PromoID     string          `gorm:"size:64" json:"promo_id"`
	Discount    decimal.Decimal `gorm:"type:numeric(18,2)" json:"discount"`
	Total       decimal.Decimal `gorm:"type:numeric(18,2)" json:"total"`
	DownPayment decimal.Decimal `gorm:"type:numeric(18,2)" json:"down_payment"`
	BookingRef  string          `gorm:"size:64" json:"booking_ref"`

	CreatedAt time.Time `json:"created_at"`
}

func (*PartsSalesPart) TableName() string {
	return "parts_sales_parts"
}

// ==================== PartsInvoice 零件发票 ====================

// PartsInvoice 零件发票表头（主代理开给经销商）
type PartsInvoice struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	DealerID  string `gorm:"size:32;not null;uniqueIndex:uk_parts_invoice_key" json:"dealer_id"`
	InvoiceNo string `gorm:"size:64;not null;uniqueIndex:uk_parts_invoice_key" json:"invoice_no"`

	InvoiceDate   *time.Time      `json:"invoice_date"`
	OrderNo       string          `gorm:"size:64" json:"order_no"`
	DueDate       *time.Time      `json:"due_date"`
	TotalBefore   decimal.Decimal `gorm:"type:numeric(18,2)" json:"total_before_discount"`
	TotalDiscount decimal.Decimal `gorm:"type:numeric(18,2)" json:"total_discount"`
	TotalVAT      decimal.Decimal `gorm:"type:numeric(18,2)" json:"total_vat"`
	TotalNet      decimal.Decimal `gorm:"type:numeric(18,2)" json:"total_net"`

	ModifiedTime *time.Time     `gorm:"index" json:"modified_time"`
	RawData      datatypes.JSON `gorm:"type:jsonb" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Parts []PartsInvoicePart `gorm:"foreignKey:PartsInvoiceID;constraint:OnDelete:CASCADE" json:"parts"`
}

func (*PartsInvoice) TableName() string {
	return "parts_invoices"
}

// PartsInvoicePart 发票中的单个零件
type PartsInvoicePart struct {
	ID             int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	PartsInvoiceID int64 `gorm:"index;not null" json:"parts_invoice_id"`

	PONo     string          `gorm:"size:64" json:"po_no"`
	PartsNo  string          `gorm:"size:64;index" json:"parts_no"`
	Quantity int             `gorm:"default:1" json:"quantity"`
	UOM      string          `gorm:"size:16" json:"uom"`
	Price    decimal.Decimal `gorm:"type:numeric(18,2)" json:"price"`
	Discount decimal.Decimal `gorm:"type:numeric(18,2)" json:"discount"`

	CreatedAt time.Time `json:"created_at"`
}

func (*PartsInvoicePart) TableName() string {
	return "parts_invoice_parts"
}
