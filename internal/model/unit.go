package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// 整车域单据：整车入库、整车交付、整车发票

// ==================== UnitInbound 整车入库 ====================

// UnitInbound 整车入库表头（按装运清单号去重）
type UnitInbound struct {
	ID             int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	DealerID       string `gorm:"size:32;not null;uniqueIndex:uk_unit_inbound_key" json:"dealer_id"`
	ShippingListNo string `gorm:"size:64;not null;uniqueIndex:uk_unit_inbound_key" json:"shipping_list_no"`

	ReceiveDate *time.Time `json:"receive_date"`
	InvoiceNo   string     `gorm:"size:64" json:"invoice_no"`
	Status      string     `gorm:"size:32" json:"status"`

	ModifiedTime *time.Time     `gorm:"index" json:"modified_time"`
	RawData      datatypes.JSON `gorm:"type:jsonb" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Units []UnitInboundUnit `gorm:"foreignKey:UnitInboundID;constraint:OnDelete:CASCADE" json:"units"`
}

func (*UnitInbound) TableName() string {
	return "unit_inbounds"
}

// UnitInboundUnit 入库的单台整车
type UnitInboundUnit struct {
	ID            int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UnitInboundID int64 `gorm:"index;not null" json:"unit_inbound_id"`

	UnitTypeCode string `gorm:"size:32" json:"unit_type_code"`
	ColorCode    string `gorm:"size:16" json:"color_code"`
	Quantity     int    `gorm:"default:1" json:"quantity"`
	EngineNo     string `gorm:"size:32;index" json:"engine_no"`
	FrameNo      string `gorm:"size:32;index" json:"frame_no"`
	RFSStatus    string `gorm:"size:16" json:"rfs_status"`
	POID         string `gorm:"size:64" json:"po_id"`

	CreatedAt time.Time `json:"created_at"`
}

func (*UnitInboundUnit) TableName() string {
	return "unit_inbound_units"
}

// ==================== Delivery 整车交付 ====================

// Delivery 整车交付表头
type Delivery struct {
	ID         int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	DealerID   string `gorm:"size:32;not null;uniqueIndex:uk_delivery_key" json:"dealer_id"`
	DeliveryID string `gorm:"size:64;not null;uniqueIndex:uk_delivery_key" json:"delivery_id"`

	DeliveryDate *time.Time `json:"delivery_date"`
	DriverID     string     `gorm:"size:64" json:"driver_id"`
	Status       string     `gorm:"size:32" json:"status"`

	ModifiedTime *time.Time     `gorm:"index" json:"modified_time"`
	RawData      datatypes.JSON `gorm:"type:jsonb" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Units []DeliveryUnit `gorm:"foreignKey:DeliveryHeaderID;constraint:OnDelete:CASCADE" json:"units"`
}

func (*Delivery) TableName() string {
	return "deliveries"
}

// DeliveryUnit 交付的单台整车
type DeliveryUnit struct {
	ID               int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	DeliveryHeaderID int64 `gorm:"index;not null" json:"delivery_header_id"`

	SONo         string `gorm:"size:64" json:"so_no"`
	SPKID        string `gorm:"size:64" json:"spk_id"`
	EngineNo     string `gorm:"size:32;index" json:"engine_no"`
	FrameNo      string `gorm:"size:32;index" json:"frame_no"`
	CustomerID   string `gorm:"size:64" json:"customer_id"`
	ReceiverName string `gorm:"size:255" json:"receiver_name"`
	Latitude     string `gorm:"size:32" json:"latitude"`
	Longitude    string `gorm:"size:32" json:"longitude"`

	CreatedAt time.Time `json:"created_at"`
}

func (*DeliveryUnit) TableName() string {
	return "delivery_units"
}

// ==================== UnitInvoice 整车发票 ====================

// UnitInvoice 整车发票表头
type UnitInvoice struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	DealerID  string `gorm:"size:32;not null;uniqueIndex:uk_unit_invoice_key" json:"dealer_id"`
	InvoiceNo string `gorm:"size:64;not null;uniqueIndex:uk_unit_invoice_key" json:"invoice_no"`

	SPKID       string          `gorm:"size:64;index" json:"spk_id"`
	InvoiceDate *time.Time      `json:"invoice_date"`
	DueDate     *time.Time      `json:"due_date"`
	TotalPrice  decimal.Decimal `gorm:"type:numeric(18,2)" json:"total_price"`
	Discount    decimal.Decimal `gorm:"type:numeric(18,2)" json:"discount"`
	TotalBilled decimal.Decimal `gorm:"type:numeric(18,2)" json:"total_billed"`

	ModifiedTime *time.Time     `gorm:"index" json:"modified_time"`
	RawData      datatypes.JSON `gorm:"type:jsonb" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Units []UnitInvoiceUnit `gorm:"foreignKey:UnitInvoiceID;constraint:OnDelete:CASCADE" json:"units"`
}

func (*UnitInvoice) TableName() string {
	return "unit_invoices"
}

// UnitInvoiceUnit 发票中的单台整车
type UnitInvoiceUnit struct {
	ID            int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UnitInvoiceID int64 `gorm:"index;not null" json:"unit_invoice_id"`

	UnitTypeCode string          `gorm:"size:32" json:"unit_type_code"`
	ColorCode    string          `gorm:"size:16" json:"color_code"`
	Quantity     int             `gorm:"default:1" json:"quantity"`
	EngineNo     string          `gorm:"size:32;index" json:"engine_no"`
	FrameNo      string          `gorm:"size:32;index" json:"frame_no"`
	Price        decimal.Decimal `gorm:"type:numeric(18,2)" json:"price"`
	Discount     decimal.Decimal `gorm:"type:numeric(18,2)" json:"discount"`

	CreatedAt time.Time `json:"created_at"`
}

func (*UnitInvoiceUnit) TableName() string {
	return "unit_invoice_units"
}
