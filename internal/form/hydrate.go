package form

import (
	"time"

	"softetsolutions/mattax/internal/dateutils"
	"softetsolutions/mattax/internal/models"
)

// EntityLookup reads cached entities without network calls.
type EntityLookup interface {
	ByID(kind models.EntityKind, id models.ID) (models.ReferenceEntity, bool)
	Lookup(kind models.EntityKind, label string, parentID models.ID) (models.ReferenceEntity, bool)
}

// DraftFromTransaction builds an edit draft from a stored transaction. Entity
// ids are turned back into resolved references through lookup; ids missing
// from the cache leave the field empty, except accounts and vendors, which keep
// the stored text so the user sees what was recorded.
func DraftFromTransaction(tx models.Transaction, lookup EntityLookup, now time.Time) models.Draft {
	d := models.NewDraft(now)
	d.TransactionID = tx.ID
	d.Type = models.MoneyOut
	if tx.Type == string(models.MoneyIn) {
		d.Type = models.MoneyIn
	}
	d.Description = tx.Description
	d.Amounts = models.Amounts{
		Cash:       amountText(tx.AmountCash),
		Bank:       amountText(tx.AmountBank),
		CreditCard: amountText(tx.AmountCreditCard),
	}

	percent, hasPercent := nonZero(tx.VATPercentage)
	amount, hasAmount := nonZero(tx.VATAmount)
	switch {
	case hasPercent:
		d.VAT = models.VAT{Enabled: true, Mode: models.VATModePercent, Percent: percent}
	case hasAmount:
		d.VAT = models.VAT{Enabled: true, Mode: models.VATModeAmount, Amount: amount, Percent: models.DefaultVATPercent}
	}

	d.Invoice.Amount = amountText(tx.InvoiceAmount)
	if tx.InvoiceDate != "" {
		if date, _, err := dateutils.ParseDate(tx.InvoiceDate); err == nil {
			d.Invoice.Date = date
		}
	}
	d.Invoice.Invoiced = models.Bool(tx.IsInvoiced())

	if e, ok := byID(lookup, models.KindCategory, tx.CategoryID); ok {
		d.Category = models.Resolved(e)
	}
	if e, ok := byID(lookup, models.KindSubcategory, tx.SubcategoryID); ok {
		d.Subcategory = models.Resolved(e)
	}

	if e, ok := byID(lookup, models.KindAccount, tx.AccountID); ok {
		d.Account = models.Resolved(e)
	} else {
		d.Account = models.Unresolved(tx.AccountID.String())
	}

	switch name := tx.VendorLabel(); {
	case tx.VendorID != "":
		if e, ok := byID(lookup, models.KindVendor, tx.VendorID); ok {
			d.Vendor = models.Resolved(e)
		}
	case name != "":
		if e, ok := lookup.Lookup(models.KindVendor, name, ""); ok {
			d.Vendor = models.Resolved(e)
		} else {
			d.Vendor = models.Unresolved(name)
		}
	}
	return d
}

func byID(lookup EntityLookup, kind models.EntityKind, id models.ID) (models.ReferenceEntity, bool) {
	if id == "" {
		return models.ReferenceEntity{}, false
	}
	return lookup.ByID(kind, id)
}

func amountText(a models.Amount) string {
	if a.IsZero() {
		return ""
	}
	return a.String()
}

func nonZero(s models.LooseString) (string, bool) {
	v, ok := s.Value()
	if !ok || models.ParseAmount(v).IsZero() {
		return "", false
	}
	return v, true
}
