package module

import (
	"context"
	"errors"
	"fmt"

	"dms_sync_v1_202608/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ==================== PartsInbound 零件入库 ====================

func normalizePartsInbound(dealerID string, raw map[string]interface{}) (Record, error) {
	f := flatten(raw)

	goodsReceiptNo, err := requireString(f, "no_penerimaan", "nopenerimaan", "goodsreceiptno")
	if err != nil {
		return nil, err
	}

	doc := &model.PartsInbound{
		DealerID:       dealerID,
		GoodsReceiptNo: goodsReceiptNo,
		ReceiveDate:    pickTime(f, "tglpenerimaan", "tanggalpenerimaan", "receivedate"),
		ShippingListNo: pickString(f, "noshippinglist", "shippinglistno"),
		PONo:           pickString(f, "nopo", "pono"),
		ModifiedTime:   pickTime(f, "modifiedtime", "lastmodified"),
		RawData:        encodeRaw(raw),
	}

	for _, item := range pickList(f, "parts", "part") {
		pf := flatten(item)
		doc.Parts = append(doc.Parts, model.PartsInboundPart{
			PartsNo:   pickString(pf, "nopartsnumber", "partsnumber", "partsno"),
			Quantity:  pickInt(pf, "kuantitas", "quantity"),
			UOM:       pickString(pf, "uom", "satuan"),
			BinningNo: pickString(pf, "nobinning", "binningno"),
		})
	}

	return doc, nil
}

func mergePartsInbound(ctx context.Context, db *gorm.DB, rec Record) (MergeResult, error) {
	doc, ok := rec.(*model.PartsInbound)
	if !ok {
		return MergeNew, fmt.Errorf("记录类型错误: %T", rec)
	}

	result := MergeNew
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.PartsInbound
		err := tx.Where("dealer_id = ? AND goods_receipt_no = ?", doc.DealerID, doc.GoodsReceiptNo).
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
		if err := tx.Where("parts_inbound_id = ?", existing.ID).
			Delete(&model.PartsInboundPart{}).Error; err != nil {
			return err
		}
		for i := range doc.Parts {
			doc.Parts[i].ID = 0
			doc.Parts[i].PartsInboundID = existing.ID
		}
		if len(doc.Parts) > 0 {
			return tx.Create(&doc.Parts).Error
		}
		return nil
	})

	return result, err
}

// ==================== PartsSales 零件销售 ====================

func normalizePartsSales(dealerID string, raw map[string]interface{}) (Record, error) {
	f := flatten(raw)

	soNo, err := requireString(f, "no_so", "noso", "sono")
	if err != nil {
		return nil, err
	}

	doc := &model.PartsSales{
		DealerID:     dealerID,
		SONo:         soNo,
		SODate:       pickTime(f, "tglso", "tanggalso", "sodate"),
		CustomerID:   pickString(f, "idcustomer", "customerid"),
		CustomerName: pickString(f, "namacustomer", "customername"),
		Status:       pickString(f, "statusso", "status"),
		TotalAmount:  pickDecimal(f, "totalhargaso", "totalamount"),
		ModifiedTime: pickTime(f, "modifiedtime", "lastmodified"),
		RawData:      encodeRaw(raw),
	}

	for _, item := range pickList(f, "parts", "part") {
		pf := flatten(item)
		doc.Parts = append(doc.Parts, model.PartsSalesPart{
			PartsNo:     pickString(pf, "nopartsnumber", "partsnumber", "partsno"),
			Quantity:    pickInt(pf, "kuantitas", "quantity"),
			Price:       pickDecimal(pf, "hargaparts", "price"),
			PromoID:     pickString(pf, "promoidparts", "promoid"),
			Discount:    pickDecimal(pf, "diskonparts", "discount"),
			Total:       pickDecimal(pf, "totalhargaparts", "total"),
			DownPayment: pickDecimal(pf, "uangmuka", "downpayment"),
			BookingRef:  pickString(pf, "bookingidreference", "bookingref"),
		})
	}

	return doc, nil
}

func mergePartsSales(ctx context.Context, db *gorm.DB, rec Record) (MergeResult, error) {
	doc, ok := rec.(*model.PartsSales)
	if !ok {
		return MergeNew, fmt.Errorf("记录类型错误: %T", rec)
	}

	result := MergeNew
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.PartsSales
		err := tx.Where("dealer_id = ? AND so_no = ?", doc.DealerID, doc.SONo).
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
		if err := tx.Where("parts_sales_id = ?", existing.ID).
			Delete(&model.PartsSalesPart{}).Error; err != nil {
			return err
		}
		for i := range doc.Parts {
			doc.Parts[i].ID = 0
			doc.Parts[i].PartsSalesID = existing.ID
		}
		if len(doc.Parts) > 0 {
			return tx.Create(&doc.Parts).Error
		}
		return nil
	})

	return result, err
}

// ==================== PartsInvoice 零件发票 ====================

func normalizePartsInvoice(dealerID string, raw map[string]interface{}) (Record, error) {
	f := flatten(raw)

	invoiceNo, err := requireString(f, "no_invoice", "noinvoice", "invoiceno")
	if err != nil {
		return nil, err
	}

	doc := &model.PartsInvoice{
		DealerID:      dealerID,
		InvoiceNo:     invoiceNo,
		InvoiceDate:   pickTime(f, "tglinvoice", "tanggalinvoice", "invoicedate"),
		OrderNo:       pickString(f, "noorder", "orderno"),
		DueDate:       pickTime(f, "tgljatuhtempo", "duedate"),
		TotalBefore:   pickDecimal(f, "totalhargasebelumdiskon", "totalbeforediscount"),
		TotalDiscount: pickDecimal(f, "totaldiskonpersediaan", "totaldiskon", "totaldiscount"),
		TotalVAT:      pickDecimal(f, "totalppn", "totalvat"),
		TotalNet:      pickDecimal(f, "totalhargatermasukppn", "totalnet"),
		ModifiedTime:  pickTime(f, "modifiedtime", "lastmodified"),
		RawData:       encodeRaw(raw),
	}

	for _, item := range pickList(f, "parts", "part") {
		pf := flatten(item)
		doc.Parts = append(doc.Parts, model.PartsInvoicePart{
			PONo:     pickString(pf, "nopo", "pono"),
			PartsNo:  pickString(pf, "nopartsnumber", "partsnumber", "partsno"),
			Quantity: pickInt(pf, "kuantitas", "quantity"),
			UOM:      pickString(pf, "uom", "satuan"),
			Price:    pickDecimal(pf, "hargasatuansebelumdiskon", "price"),
			Discount: pickDecimal(pf, "diskon", "discount"),
		})
	}

	return doc, nil
}

func mergePartsInvoice(ctx context.Context, db *gorm.DB, rec Record) (MergeResult, error) {
	doc, ok := rec.(*model.PartsInvoice)
	if !ok {
		return MergeNew, fmt.Errorf("记录类型错误: %T", rec)
	}

	result := MergeNew
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.PartsInvoice
		err := tx.Where("dealer_id = ? AND invoice_no = ?", doc.DealerID, doc.InvoiceNo).
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
		if err := tx.Where("parts_invoice_id = ?", existing.ID).
			Delete(&model.PartsInvoicePart{}).Error; err != nil {
			return err
		}
		for i := range doc.Parts {
			doc.Parts[i].ID = 0
			doc.Parts[i].PartsInvoiceID = existing.ID
		}
		if len(doc.Parts) > 0 {
			return tx.Create(&doc.Parts).Error
		}
		return nil
	})

	return result, err
}
