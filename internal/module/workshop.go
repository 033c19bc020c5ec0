package module

import (
	"context"
	"errors"
	"fmt"

	"dms_sync_v1_202608/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ==================== WorkOrder 维修工单 ====================

func normalizeWorkOrder(dealerID string, raw map[string]interface{}) (Record, error) {
	f := flatten(raw)

	workOrderNo, err := requireString(f, "no_work_order", "noworkorder", "workorderno")
	if err != nil {
		return nil, err
	}

	doc := &model.WorkOrder{
		DealerID:        dealerID,
		WorkOrderNo:     workOrderNo,
		ServiceAdvisor:  pickString(f, "nosa", "serviceadvisor"),
		ServiceDate:     pickTime(f, "tanggalservis", "servicedate"),
		OwnerName:       pickString(f, "namapemilik", "ownername"),
		PlateNo:         pickString(f, "nopolisi", "plateno"),
		EngineNo:        pickString(f, "nomesin", "engineno"),
		FrameNo:         pickString(f, "norangka", "frameno"),
		Mileage:         pickInt(f, "kmterakhir", "mileage"),
		ComeInType:      pickString(f, "tipecomein", "comeintype"),
		Status:          normalizeWorkOrderStatus(pickString(f, "statusworkorder", "status")),
		TotalServiceFee: pickDecimal(f, "totalbiayaservice", "totalservicefee"),
		TotalPartsFee:   pickDecimal(f, "totalbiayaparts", "totalpartsfee"),
		ModifiedTime:    pickTime(f, "modifiedtime", "lastmodified"),
		RawData:         encodeRaw(raw),
	}

	for _, item := range pickList(f, "services", "jasa") {
		sf := flatten(item)
		doc.Services = append(doc.Services, model.WorkOrderService{
			JobID:    pickString(sf, "idjob", "jobid"),
			JobName:  pickString(sf, "namapekerjaan", "jobname"),
			Fee:      pickDecimal(sf, "biayaservice", "fee"),
			PromoID:  pickString(sf, "promoidjasa", "promoid"),
			Discount: pickDecimal(sf, "diskonservice", "discount"),
			Total:    pickDecimal(sf, "totalhargaservis", "total"),
		})
	}

	for _, item := range pickList(f, "parts") {
		pf := flatten(item)
		doc.Parts = append(doc.Parts, model.WorkOrderPart{
			JobID:    pickString(pf, "idjob", "jobid"),
			PartsNo:  pickString(pf, "nopartsnumber", "partsnumber", "partsno"),
			Quantity: pickInt(pf, "kuantitas", "quantity"),
			Price:    pickDecimal(pf, "hargaparts", "price"),
			Discount: pickDecimal(pf, "diskonparts", "discount"),
			Total:    pickDecimal(pf, "totalhargaparts", "total"),
		})
	}

	return doc, nil
}

// normalizeWorkOrderStatus 外部状态值归一化
// 未识别的状态原样透传，报表层可以按原值排查
func normalizeWorkOrderStatus(s string) string {
	switch s {
	case "1", "start", "open":
		return model.WorkOrderStatusOpen
	case "2", "proses", "progress":
		return model.WorkOrderStatusProgress
	case "3", "selesai", "closed":
		return model.WorkOrderStatusClosed
	case "4", "batal", "cancel", "canceled":
		return model.WorkOrderStatusCanceled
	}
	return s
}

func mergeWorkOrder(ctx context.Context, db *gorm.DB, rec Record) (MergeResult, error) {
	doc, ok := rec.(*model.WorkOrder)
	if !ok {
		return MergeNew, fmt.Errorf("记录类型错误: %T", rec)
	}

	result := MergeNew
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.WorkOrder
		err := tx.Where("dealer_id = ? AND work_order_no = ?", doc.DealerID, doc.WorkOrderNo).
			First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			result = MergeNew
			return tx.Create(doc).Error
		}
		if err != nil {
			return err
		}

		if !newerThan(doc.ModifiedTime, existing.ModifiedTime) {
			result = MergeDuplicate
			return nil
		}

		result = MergeUpdated
		doc.ID = existing.ID
		doc.CreatedAt = existing.CreatedAt
		if err := tx.Omit(clause.Associations).Save(doc).Error; err != nil {
			return err
		}
		// 工时行和零件行都整体替换
		if err := tx.Where("work_order_id = ?", existing.ID).
			Delete(&model.WorkOrderService{}).Error; err != nil {
			return err
		}
		if err := tx.Where("work_order_id = ?", existing.ID).
			Delete(&model.WorkOrderPart{}).Error; err != nil {
			return err
		}
		for i := range doc.Services {
			doc.Services[i].ID = 0
			doc.Services[i].WorkOrderID = existing.ID
		}
		if len(doc.Services) > 0 {
			if err := tx.Create(&doc.Services).Error; err != nil {
				return err
			}
		}
		for i := range doc.Parts {
			doc.Parts[i].ID = 0
			doc.Parts[i].WorkOrderID = existing.ID
		}
		if len(doc.Parts) > 0 {
			return tx.Create(&doc.Parts).Error
		}
		return nil
	})

	return result, err
}

// ==================== WorkshopInvoice 车间发票 ====================

func normalizeWorkshopInvoice(dealerID string, raw map[string]interface{}) (Record, error) {
	f := flatten(raw)

	njbNo, err := requireString(f, "no_njb", "nonjb", "njbno")
	if err != nil {
		return nil, err
	}

	doc := &model.WorkshopInvoice{
		DealerID:     dealerID,
		NJBNo:        njbNo,
		NSCNo:        pickString(f, "nonsc", "nscno"),
		WorkOrderNo:  pickString(f, "noworkorder", "workorderno"),
		NJBDate:      pickTime(f, "tanggalnjb", "njbdate"),
		NSCDate:      pickTime(f, "tanggalnsc", "nscdate"),
		TotalService: pickDecimal(f, "totalharganjb", "totalservice"),
		TotalParts:   pickDecimal(f, "totalhargansc", "totalparts"),
		ModifiedTime: pickTime(f, "modifiedtime", "lastmodified"),
		RawData:      encodeRaw(raw),
	}

	for _, item := range pickList(f, "services", "jasa") {
		sf := flatten(item)
		doc.Lines = append(doc.Lines, model.WorkshopInvoiceLine{
			LineType: model.WorkshopLineService,
			ItemID:   pickString(sf, "idjob", "jobid"),
			ItemName: pickString(sf, "namapekerjaan", "jobname"),
			Quantity: 1,
			Price:    pickDecimal(sf, "hargaservis", "price"),
			Discount: pickDecimal(sf, "diskonservice", "discount"),
			Total:    pickDecimal(sf, "totalhargaservis", "total"),
		})
	}

	for _, item := range pickList(f, "parts") {
		pf := flatten(item)
		doc.Lines = append(doc.Lines, model.WorkshopInvoiceLine{
			LineType: model.WorkshopLinePart,
			ItemID:   pickString(pf, "nopartsnumber", "partsnumber", "partsno"),
			Quantity: pickInt(pf, "kuantitas", "quantity"),
			Price:    pickDecimal(pf, "hargaparts", "price"),
			Discount: pickDecimal(pf, "diskonparts", "discount"),
			Total:    pickDecimal(pf, "totalhargaparts", "total"),
		})
	}

	return doc, nil
}

func mergeWorkshopInvoice(ctx context.Context, db *gorm.DB, rec Record) (MergeResult, error) {
	doc, ok := rec.(*model.WorkshopInvoice)
	if !ok {
		return MergeNew, fmt.Errorf("记录类型错误: %T", rec)
	}

	result := MergeNew
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.WorkshopInvoice
		err := tx.Where("dealer_id = ? AND njb_no = ?", doc.DealerID, doc.NJBNo).
			First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			result = MergeNew
			return tx.Create(doc).Error
		}
		if err != nil {
			return err
		}

		if !newerThan(doc.ModifiedTime, existing.ModifiedTime) {
			result = MergeDuplicate
			return nil
		}

		result = MergeUpdated
		doc.ID = existing.ID
		doc.CreatedAt = existing.CreatedAt
		if err := tx.Omit(clause.Associations).Save(doc).Error; err != nil {
			return err
		}
		if err := tx.Where("workshop_invoice_id = ?", existing.ID).
			Delete(&model.WorkshopInvoiceLine{}).Error; err != nil {
			return err
		}
		for i := range doc.Lines {
			doc.Lines[i].ID = 0
			doc.Lines[i].WorkshopInvoiceID = existing.ID
		}
		if len(doc.Lines) > 0 {
			return tx.Create(&doc.Lines).Error
		}
		return nil
	})

	return result, err
}

// ==================== DepositHLO HLO 订金 ====================

func normalizeDepositHLO(dealerID string, raw map[string]interface{}) (Record, error) {
	f := flatten(raw)

	depositInvoiceNo, err := requireString(f, "no_invoice_uang_jaminan", "noinvoiceuangjaminan", "depositinvoiceno")
	if err != nil {
		return nil, err
	}

	doc := &model.DepositHLO{
		DealerID:         dealerID,
		DepositInvoiceNo: depositInvoiceNo,
		HLODocumentID:    pickString(f, "idhlodocument", "hlodocumentid"),
		InvoiceDate:      pickTime(f, "tanggalinvoiceuangjaminan", "invoicedate"),
		TotalDeposit:     pickDecimal(f, "totaluangjaminan", "totaldeposit"),
		ModifiedTime:     pickTime(f, "modifiedtime", "lastmodified"),
		RawData:          encodeRaw(raw),
	}

	for _, item := range pickList(f, "parts", "part") {
		pf := flatten(item)
		doc.Parts = append(doc.Parts, model.DepositHLOPart{
			PartsNo:  pickString(pf, "nopartsnumber", "partsnumber", "partsno"),
			Quantity: pickInt(pf, "kuantitas", "quantity"),
			Price:    pickDecimal(pf, "hargaparts", "price"),
			Deposit:  pickDecimal(pf, "uangmuka", "deposit"),
		})
	}

	return doc, nil
}

func mergeDepositHLO(ctx context.Context, db *gorm.DB, rec Record) (MergeResult, error) {
	doc, ok := rec.(*model.DepositHLO)
	if !ok {
		return MergeNew, fmt.Errorf("记录类型错误: %T", rec)
	}

	result := MergeNew
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.DepositHLO
		err := tx.Where("dealer_id = ? AND deposit_invoice_no = ?", doc.DealerID, doc.DepositInvoiceNo).
			First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			result = MergeNew
			return tx.Create(doc).Error
		}
		if err != nil {
			return err
		}

		if !newerThan(doc.ModifiedTime, existing.ModifiedTime) {
			result = MergeDuplicate
			return nil
		}

		result = MergeUpdated
		doc.ID = existing.ID
		doc.CreatedAt = existing.CreatedAt
		if err := tx.Omit(clause.Associations).Save(doc).Error; err != nil {
			return err
		}
		if err := tx.Where("deposit_hlo_id = ?", existing.ID).
			Delete(&model.DepositHLOPart{}).Error; err != nil {
			return err
		}
		for i := range doc.Parts {
			doc.Parts[i].ID = 0
			doc.Parts[i].DepositHLOID = existing.ID
		}
		if len(doc.Parts) > 0 {
			return tx.Create(&doc.Parts).Error
		}
		return nil
	})

	return result, err
}

// ==================== UnpaidHLO HLO 欠款 ====================

func normalizeUnpaidHLO(dealerID string, raw map[string]interface{}) (Record, error) {
	f := flatten(raw)

	hloDocumentID, err := requireString(f, "id_hlo_document", "idhlodocument", "hlodocumentid")
	if err != nil {
		return nil, err
	}

	doc := &model.UnpaidHLO{
		DealerID:      dealerID,
		HLODocumentID: hloDocumentID,
		OrderDate:     pickTime(f, "tanggalpemesananhlo", "orderdate"),
		WorkOrderNo:   pickString(f, "noworkorder", "workorderno"),
		CustomerID:    pickString(f, "idcustomer", "customerid"),
		CustomerName:  pickString(f, "namacustomer", "customername"),
		TotalAmount:   pickDecimal(f, "totalamounthlo", "totalamount"),
		DownPayment:   pickDecimal(f, "uangmuka", "downpayment", "dp"),
		Remaining:     pickDecimal(f, "sisabayar", "remaining"),
		ModifiedTime:  pickTime(f, "modifiedtime", "lastmodified"),
		RawData:       encodeRaw(raw),
	}

	for _, item := range pickList(f, "parts", "part") {
		pf := flatten(item)
		doc.Parts = append(doc.Parts, model.UnpaidHLOPart{
			PartsNo:  pickString(pf, "nopartsnumber", "partsnumber", "partsno"),
			Quantity: pickInt(pf, "kuantitas", "quantity"),
			Price:    pickDecimal(pf, "hargaparts", "price"),
			Total:    pickDecimal(pf, "totalhargaparts", "total"),
		})
	}

	return doc, nil
}

func mergeUnpaidHLO(ctx context.Context, db *gorm.DB, rec Record) (MergeResult, error) {
	doc, ok := rec.(*model.UnpaidHLO)
	if !ok {
		return MergeNew, fmt.Errorf("记录类型错误: %T", rec)
	}

	result := MergeNew
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.UnpaidHLO
		err := tx.Where("dealer_id = ? AND hlo_document_id = ?", doc.DealerID, doc.HLODocumentID).
			First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			result = MergeNew
			return tx.Create(doc).Error
		}
		if err != nil {
			return err
		}

		if !newerThan(doc.ModifiedTime, existing.ModifiedTime) {
			result = MergeDuplicate
			return nil
		}

		result = MergeUpdated
		doc.ID = existing.ID
		doc.CreatedAt = existing.CreatedAt
		if err := tx.Omit(clause.Associations).Save(doc).Error; err != nil {
			return err
		}
		if err := tx.Where("unpaid_hlo_id = ?", existing.ID).
			Delete(&model.UnpaidHLOPart{}).Error; err != nil {
			return err
		}
		for i := range doc.Parts {
			doc.Parts[i].ID = 0
			doc.Parts[i].UnpaidHLOID = existing.ID
		}
		if len(doc.Parts) > 0 {
			return tx.Create(&doc.Parts).Error
		}
		return nil
	})

	return result, err
}
