package module

import (
	"context"
	"errors"
	"fmt"

	"dms_sync_v1_202608/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ==================== UnitInbound 整车入库 ====================

func normalizeUnitInbound(dealerID string, raw map[string]interface{}) (Record, error) {
	f := flatten(raw)

	shippingListNo, err := requireString(f, "no_shipping_list", "noshippinglist", "shippinglistno")
	if err != nil {
		return nil, err
	}

	doc := &model.UnitInbound{
		DealerID:       dealerID,
		ShippingListNo: shippingListNo,
		ReceiveDate:    pickTime(f, "tanggalterima", "receivedate"),
		InvoiceNo:      pickString(f, "noinvoice", "invoiceno"),
		Status:         pickString(f, "statusshippinglist", "status"),
		ModifiedTime:   pickTime(f, "modifiedtime", "lastmodified"),
		RawData:        encodeRaw(raw),
	}

	for _, item := range pickList(f, "unit", "units") {
		uf := flatten(item)
		doc.Units = append(doc.Units, model.UnitInboundUnit{
			UnitTypeCode: pickString(uf, "kodetipeunit", "unittypecode"),
			ColorCode:    pickString(uf, "kodewarna", "colorcode"),
			Quantity:     pickInt(uf, "kuantitasterkirim", "kuantitas", "quantity"),
			EngineNo:     pickString(uf, "nomesin", "engineno"),
			FrameNo:      pickString(uf, "norangka", "frameno"),
			RFSStatus:    pickString(uf, "statusrfs", "rfsstatus"),
			POID:         pickString(uf, "poid", "noid"),
		})
	}

	return doc, nil
}

func mergeUnitInbound(ctx context.Context, db *gorm.DB, rec Record) (MergeResult, error) {
	doc, ok := rec.(*model.UnitInbound)
	if !ok {
		return MergeNew, fmt.Errorf("记录类型错误: %T", rec)
	}

	result := MergeNew
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.UnitInbound
		err := tx.Where("dealer_id = ? AND shipping_list_no = ?", doc.DealerID, doc.ShippingListNo).
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
		if err := tx.Where("unit_inbound_id = ?", existing.ID).
			Delete(&model.UnitInboundUnit{}).Error; err != nil {
			return err
		}
		for i := range doc.Units {
			doc.Units[i].ID = 0
			doc.Units[i].UnitInboundID = existing.ID
		}
		if len(doc.Units) > 0 {
			return tx.Create(&doc.Units).Error
		}
		return nil
	})

	return result, err
}

// ==================== Delivery 整车交付 ====================

func normalizeDelivery(dealerID string, raw map[string]interface{}) (Record, error) {
	f := flatten(raw)

	deliveryID, err := requireString(f, "delivery_document_id", "deliverydocumentid", "iddeliverydocument")
	if err != nil {
		return nil, err
	}

	doc := &model.Delivery{
		DealerID:     dealerID,
		DeliveryID:   deliveryID,
		DeliveryDate: pickTime(f, "tanggalpengiriman", "deliverydate"),
		DriverID:     pickString(f, "iddriver", "driverid"),
		Status:       pickString(f, "statusdeliverydocument", "status"),
		ModifiedTime: pickTime(f, "modifiedtime", "lastmodified"),
		RawData:      encodeRaw(raw),
	}

	for _, item := range pickList(f, "detail", "unit", "units") {
		uf := flatten(item)
		doc.Units = append(doc.Units, model.DeliveryUnit{
			SONo:         pickString(uf, "noso", "sono"),
			SPKID:        pickString(uf, "idspk", "spkid"),
			EngineNo:     pickString(uf, "nomesin", "engineno"),
			FrameNo:      pickString(uf, "norangka", "frameno"),
			CustomerID:   pickString(uf, "idcustomer", "customerid"),
			ReceiverName: pickString(uf, "namapenerima", "receivername"),
			Latitude:     pickString(uf, "latitude"),
			Longitude:    pickString(uf, "longitude"),
		})
	}

	return doc, nil
}

func mergeDelivery(ctx context.Context, db *gorm.DB, rec Record) (MergeResult, error) {
	doc, ok := rec.(*model.Delivery)
	if !ok {
		return MergeNew, fmt.Errorf("记录类型错误: %T", rec)
	}

	result := MergeNew
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Delivery
		err := tx.Where("dealer_id = ? AND delivery_id = ?", doc.DealerID, doc.DeliveryID).
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
		if err := tx.Where("delivery_header_id = ?", existing.ID).
			Delete(&model.DeliveryUnit{}).Error; err != nil {
			return err
		}
		for i := range doc.Units {
			doc.Units[i].ID = 0
			doc.Units[i].DeliveryHeaderID = existing.ID
		}
		if len(doc.Units) > 0 {
			return tx.Create(&doc.Units).Error
		}
		return nil
	})

	return result, err
}

// ==================== UnitInvoice 整车发票 ====================

func normalizeUnitInvoice(dealerID string, raw map[string]interface{}) (Record, error) {
	f := flatten(raw)

	invoiceNo, err := requireString(f, "no_invoice", "noinvoice", "invoiceno")
	if err != nil {
		return nil, err
	}

	doc := &model.UnitInvoice{
		DealerID:     dealerID,
		InvoiceNo:    invoiceNo,
		SPKID:        pickString(f, "idspk", "spkid"),
		InvoiceDate:  pickTime(f, "tanggalinvoice", "invoicedate"),
		DueDate:      pickTime(f, "tanggaljatuhtempo", "duedate"),
		TotalPrice:   pickDecimal(f, "hargajualtotal", "totalprice"),
		Discount:     pickDecimal(f, "diskontotal", "discount"),
		TotalBilled:  pickDecimal(f, "totaltagihan", "totalbilled"),
		ModifiedTime: pickTime(f, "modifiedtime", "lastmodified"),
		RawData:      encodeRaw(raw),
	}

	for _, item := range pickList(f, "unit", "units") {
		uf := flatten(item)
		doc.Units = append(doc.Units, model.UnitInvoiceUnit{
			UnitTypeCode: pickString(uf, "kodetipeunit", "unittypecode"),
			ColorCode:    pickString(uf, "kodewarna", "colorcode"),
			Quantity:     pickInt(uf, "kuantitas", "quantity"),
			EngineNo:     pickString(uf, "nomesin", "engineno"),
			FrameNo:      pickString(uf, "norangka", "frameno"),
			Price:        pickDecimal(uf, "hargajualsebelumdiskon", "price"),
			Discount:     pickDecimal(uf, "diskon", "discount"),
		})
	}

	return doc, nil
}

func mergeUnitInvoice(ctx context.Context, db *gorm.DB, rec Record) (MergeResult, error) {
	doc, ok := rec.(*model.UnitInvoice)
	if !ok {
		return MergeNew, fmt.Errorf("记录类型错误: %T", rec)
	}

	result := MergeNew
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.UnitInvoice
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
		if err := tx.Where("unit_invoice_id = ?", existing.ID).
			Delete(&model.UnitInvoiceUnit{}).Error; err != nil {
			return err
		}
		for i := range doc.Units {
			doc.Units[i].ID = 0
			doc.Units[i].UnitInvoiceID = existing.ID
		}
		if len(doc.Units) > 0 {
			return tx.Create(&doc.Units).Error
		}
		return nil
	})

	return result, err
}
