package module

import (
	"context"
	"errors"
	"fmt"

	"dms_sync_v1_202608/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ==================== Prospect 潜客 ====================

func normalizeProspect(dealerID string, raw map[string]interface{}) (Record, error) {
	f := flatten(raw)

	prospectID, err := requireString(f, "id_prospect", "idprospect")
	if err != nil {
		return nil, err
	}

	doc := &model.Prospect{
		DealerID:     dealerID,
		ProspectID:   prospectID,
		CustomerName: pickString(f, "namalengkap", "customername", "nama"),
		Phone:        pickString(f, "nohp", "notelepon", "phone"),
		Address:      pickString(f, "alamat", "address"),
		Source:       pickString(f, "sumberprospect", "source"),
		FollowUpStat: pickString(f, "statusfollowup", "followupstatus"),
		SalesPeople:  pickString(f, "idsalespeople", "salespeople"),
		ProspectDate: pickTime(f, "tanggalprospect", "prospectdate"),
		ModifiedTime: pickTime(f, "modifiedtime", "lastmodified"),
		RawData:      encodeRaw(raw),
	}

	for _, item := range pickList(f, "unit", "units") {
		uf := flatten(item)
		doc.Units = append(doc.Units, model.ProspectUnit{
			UnitTypeCode: pickString(uf, "kodetipeunit", "unittypecode"),
			ColorCode:    pickString(uf, "kodewarna", "colorcode"),
			Quantity:     pickInt(uf, "kuantitas", "quantity", "qty"),
			IntentDate:   pickTime(uf, "tanggalminat", "intentdate"),
		})
	}

	return doc, nil
}

func mergeProspect(ctx context.Context, db *gorm.DB, rec Record) (MergeResult, error) {
	doc, ok := rec.(*model.Prospect)
	if !ok {
		return MergeNew, fmt.Errorf("记录类型错误: %T", rec)
	}

	result := MergeNew
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Prospect
		err := tx.Where("dealer_id = ? AND prospect_id = ?", doc.DealerID, doc.ProspectID).
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
		// 行项目整体替换：先删后插，同一事务内完成
		if err := tx.Where("prospect_header_id = ?", existing.ID).
			Delete(&model.ProspectUnit{}).Error; err != nil {
			return err
		}
		for i := range doc.Units {
			doc.Units[i].ID = 0
			doc.Units[i].ProspectHeaderID = existing.ID
		}
		if len(doc.Units) > 0 {
			return tx.Create(&doc.Units).Error
		}
		return nil
	})

	return result, err
}

// ==================== Leasing 融资申请 ====================

func normalizeLeasing(dealerID string, raw map[string]interface{}) (Record, error) {
	f := flatten(raw)

	submissionID, err := requireString(f, "id_dokumen_pengajuan", "iddokumenpengajuan", "submissionid")
	if err != nil {
		return nil, err
	}

	doc := &model.Leasing{
		DealerID:       dealerID,
		SubmissionID:   submissionID,
		SPKID:          pickString(f, "idspk", "spkid"),
		CustomerName:   pickString(f, "namacustomer", "customername"),
		FinanceCompany: pickString(f, "kodefinancecompany", "financecompany"),
		TenorMonths:    pickInt(f, "tenor", "tenormonths"),
		DownPayment:    pickDecimal(f, "jumlahdp", "downpayment", "dp"),
		Installment:    pickDecimal(f, "jumlahcicilan", "installment", "angsuran"),
		SubmitDate:     pickTime(f, "tanggalpengajuan", "submitdate"),
		Status:         pickString(f, "statuspengajuan", "status"),
		ModifiedTime:   pickTime(f, "modifiedtime", "lastmodified"),
		RawData:        encodeRaw(raw),
	}

	return doc, nil
}

func mergeLeasing(ctx context.Context, db *gorm.DB, rec Record) (MergeResult, error) {
	doc, ok := rec.(*model.Leasing)
	if !ok {
		return MergeNew, fmt.Errorf("记录类型错误: %T", rec)
	}

	result := MergeNew
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Leasing
		err := tx.Where("dealer_id = ? AND submission_id = ?", doc.DealerID, doc.SubmissionID).
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
		return tx.Save(doc).Error
	})

	return result, err
}

// ==================== DocHandling 证件交接 ====================

func normalizeDocHandling(dealerID string, raw map[string]interface{}) (Record, error) {
	f := flatten(raw)

	spkID, err := requireString(f, "id_spk", "idspk", "spkid")
	if err != nil {
		return nil, err
	}

	doc := &model.DocHandling{
		DealerID:     dealerID,
		SPKID:        spkID,
		SOID:         pickString(f, "idso", "soid"),
		ModifiedTime: pickTime(f, "modifiedtime", "lastmodified"),
		RawData:      encodeRaw(raw),
	}

	for _, item := range pickList(f, "unit", "units") {
		uf := flatten(item)
		doc.Units = append(doc.Units, model.DocHandlingUnit{
			FrameNo:          pickString(uf, "norangka", "frameno"),
			STNKStatus:       pickString(uf, "statusfakturstnk", "stnkstatus"),
			STNKNo:           pickString(uf, "nomorstnk", "stnkno"),
			STNKReceiveDate:  pickTime(uf, "tanggalterimastnk", "stnkreceivedate"),
			PlateNo:          pickString(uf, "platnomor", "plateno"),
			PlateReceiveDate: pickTime(uf, "tanggalterimaplat", "platereceivedate"),
			BPKBNo:           pickString(uf, "nomorbpkb", "bpkbno"),
			BPKBReceiveDate:  pickTime(uf, "tanggalterimabpkb", "bpkbreceivedate"),
		})
	}

	return doc, nil
}

func mergeDocHandling(ctx context.Context, db *gorm.DB, rec Record) (MergeResult, error) {
	doc, ok := rec.(*model.DocHandling)
	if !ok {
		return MergeNew, fmt.Errorf("记录类型错误: %T", rec)
	}

	result := MergeNew
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.DocHandling
		err := tx.Where("dealer_id = ? AND spk_id = ?", doc.DealerID, doc.SPKID).
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
		if err := tx.Where("doc_handling_id = ?", existing.ID).
			Delete(&model.DocHandlingUnit{}).Error; err != nil {
			return err
		}
		for i := range doc.Units {
			doc.Units[i].ID = 0
			doc.Units[i].DocHandlingID = existing.ID
		}
		if len(doc.Units) > 0 {
			return tx.Create(&doc.Units).Error
		}
		return nil
	})

	return result, err
}

// ==================== Billing 销售收款 ====================

func normalizeBilling(dealerID string, raw map[string]interface{}) (Record, error) {
	f := flatten(raw)

	invoiceID, err := requireString(f, "id_invoice", "idinvoice", "invoiceid")
	if err != nil {
		return nil, err
	}

	doc := &model.Billing{
		DealerID:     dealerID,
		InvoiceID:    invoiceID,
		SPKID:        pickString(f, "idspk", "spkid"),
		CustomerID:   pickString(f, "idcustomer", "customerid"),
		Amount:       pickDecimal(f, "amount", "jumlahbayar"),
		PaymentType:  pickString(f, "tipepembayaran", "paymenttype"),
		PayMethod:    pickString(f, "carabayar", "paymethod"),
		Status:       pickString(f, "status"),
		PaidAt:       pickTime(f, "tanggalpembayaran", "paidat"),
		ModifiedTime: pickTime(f, "modifiedtime", "lastmodified"),
		RawData:      encodeRaw(raw),
	}

	return doc, nil
}

func mergeBilling(ctx context.Context, db *gorm.DB, rec Record) (MergeResult, error) {
	doc, ok := rec.(*model.Billing)
	if !ok {
		return MergeNew, fmt.Errorf("记录类型错误: %T", rec)
	}

	result := MergeNew
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Billing
		err := tx.Where("dealer_id = ? AND invoice_id = ?", doc.DealerID, doc.InvoiceID).
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
		return tx.Save(doc).Error
	})

	return result, err
}
