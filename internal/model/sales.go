package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// 销售域单据：潜客、融资申请、证件交接、销售收款
// 所有表头都以 (dealer_id, 业务单号) 做全局唯一键，由合并引擎负责去重

// ==================== Prospect 潜客 ====================

// Prospect 潜客表头
type Prospect struct {
	ID         int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	DealerID   string `gorm:"size:32;not null;uniqueIndex:uk_prospect_key" json:"dealer_id"`
	ProspectID string `gorm:"size:64;not null;uniqueIndex:uk_prospect_key" json:"prospect_id"`

	CustomerName string     `gorm:"size:255" json:"customer_name"`
	Phone        string     `gorm:"size:32" json:"phone"`
	Address      string     `gorm:"type:text" json:"address"`
	Source       string     `gorm:"size:64" json:"source"`
	FollowUpStat string     `gorm:"size:32" json:"follow_up_status"`
	SalesPeople  string     `gorm:"size:64" json:"sales_people"`
	ProspectDate *time.Time `json:"prospect_date"`

	ModifiedTime *time.Time     `gorm:"index" json:"modified_time"`
	RawData      datatypes.JSON `gorm:"type:jsonb" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Units []ProspectUnit `gorm:"foreignKey:ProspectHeaderID;constraint:OnDelete:CASCADE" json:"units"`
}

func (*Prospect) TableName() string {
	return "prospects"
}

// ProspectUnit 潜客意向车型
type ProspectUnit struct {
	ID               int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	ProspectHeaderID int64 `gorm:"index;not null" json:"prospect_header_id"`

	UnitTypeCode string     `gorm:"size:32" json:"unit_type_code"`
	ColorCode    string     `gorm:"size:16" json:"color_code"`
	Quantity     int        `gorm:"default:1" json:"quantity"`
	IntentDate   *time.Time `json:"intent_date"`

	CreatedAt time.Time `json:"created_at"`
}

func (*ProspectUnit) TableName() string {
	return "prospect_units"
}

// ==================== Leasing 融资申请 ====================

// Leasing 融资（leasing）申请单，无行项目
type Leasing struct {
	ID           int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	DealerID     string `gorm:"size:32;not null;uniqueIndex:uk_leasing_key" json:"dealer_id"`
	SubmissionID string `gorm:"size:64;not null;uniqueIndex:uk_leasing_key" json:"submission_id"`

	SPKID          string          `gorm:"size:64;index" json:"spk_id"`
	CustomerName   string          `gorm:"size:255" json:"customer_name"`
	FinanceCompany string          `gorm:"size:64" json:"finance_company"`
	TenorMonths    int             `gorm:"default:0" json:"tenor_months"`
	DownPayment    decimal.Decimal `gorm:"type:numeric(18,2)" json:"down_payment"`
	Installment    decimal.Decimal `gorm:"type:numeric(18,2)" json:"installment"`
	SubmitDate     *time.Time      `json:"submit_date"`
	Status         string          `gorm:"size:32" json:"status"`

	ModifiedTime *time.Time     `gorm:"index" json:"modified_time"`
	RawData      datatypes.JSON `gorm:"type:jsonb" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (*Leasing) TableName() string {
	return "leasings"
}

// ==================== DocHandling 证件交接 ====================

// DocHandling 证件（STNK/BPKB）交接表头
type DocHandling struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	DealerID string `gorm:"size:32;not null;uniqueIndex:uk_doch_key" json:"dealer_id"`
	SPKID    string `gorm:"size:64;not null;uniqueIndex:uk_doch_key" json:"spk_id"`

	SOID string `gorm:"size:64" json:"so_id"`

	ModifiedTime *time.Time     `gorm:"index" json:"modified_time"`
	RawData      datatypes.JSON `gorm:"type:jsonb" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Units []DocHandlingUnit `gorm:"foreignKey:DocHandlingID;constraint:OnDelete:CASCADE" json:"units"`
}

func (*DocHandling) TableName() string {
	return "doc_handlings"
}

// DocHandlingUnit 交接单中的单台车辆证件状态
type DocHandlingUnit struct {
	ID            int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	DocHandlingID int64 `gorm:"index;not null" json:"doc_handling_id"`

	FrameNo          string     `gorm:"size:32;index" json:"frame_no"`
	STNKStatus       string     `gorm:"size:32" json:"stnk_status"`
	STNKNo           string     `gorm:"size:32" json:"stnk_no"`
	STNKReceiveDate  *time.Time `json:"stnk_receive_date"`
	PlateNo          string     `gorm:"size:16" json:"plate_no"`
	PlateReceiveDate *time.Time `json:"plate_receive_date"`
	BPKBNo           string     `gorm:"size:32" json:"bpkb_no"`
	BPKBReceiveDate  *time.Time `json:"bpkb_receive_date"`

	CreatedAt time.Time `json:"created_at"`
}

func (*DocHandlingUnit) TableName() string {
	return "doc_handling_units"
}

// ==================== Billing 销售收款 ====================

// Billing 销售收款单，无行项目
type Billing struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	DealerID  string `gorm:"size:32;not null;uniqueIndex:uk_billing_key" json:"dealer_id"`
	InvoiceID string `gorm:"size:64;not null;uniqueIndex:uk_billing_key" json:"invoice_id"`

	SPKID       string          `gorm:"size:64;index" json:"spk_id"`
	CustomerID  string          `gorm:"size:64" json:"customer_id"`
	Amount      decimal.Decimal `gorm:"type:numeric(18,2)" json:"amount"`
	PaymentType string          `gorm:"size:32" json:"payment_type"`
	PayMethod   string          `gorm:"size:32" json:"pay_method"`
	Status      string          `gorm:"size:32" json:"status"`
	PaidAt      *time.Time      `json:"paid_at"`

	ModifiedTime *time.Time     `gorm:"index" json:"modified_time"`
	RawData      datatypes.JSON `gorm:"type:jsonb" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (*Billing) TableName() string {
	return "billings"
}
