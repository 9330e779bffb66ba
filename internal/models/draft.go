package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType is the direction of money for a transaction.
type TransactionType string

const (
	MoneyIn  TransactionType = "moneyIn"
	MoneyOut TransactionType = "moneyOut"
)

// ParseTransactionType accepts the wire values and the short forms "in"/"out".
// Anything unrecognised is money in.
func ParseTransactionType(s string) TransactionType {
	switch s {
	case string(MoneyOut), "out":
		return MoneyOut
	}
	return MoneyIn
}

// VATMode selects which of the VAT amount or percentage is authoritative.
type VATMode string

const (
	VATModeAmount  VATMode = "amount"
	VATModePercent VATMode = "percent"
)

// DefaultVATPercent is the percentage pre-filled in a new draft.
const DefaultVATPercent = "20"

// Amounts are the raw per-channel amounts as typed by the user.
type Amounts struct {
	Cash       string `yaml:"cash"`
	Bank       string `yaml:"bank"`
	CreditCard string `yaml:"credit_card"`
}

// Total sums the three channels; unparseable or empty inputs count as zero.
func (a Amounts) Total() decimal.Decimal {
	return ParseAmount(a.Cash).Add(ParseAmount(a.Bank)).Add(ParseAmount(a.CreditCard))
}

// VAT holds the VAT/GST state of a draft.
type VAT struct {
	Enabled bool    `yaml:"enabled"`
	Mode    VATMode `yaml:"mode"`
	Amount  string  `yaml:"amount"`
	Percent string  `yaml:"percent"`
}

// DerivedAmount returns round2(total * percent / 100). It reports false when
// the percentage is empty or the total is zero.
func (v VAT) DerivedAmount(total decimal.Decimal) (decimal.Decimal, bool) {
	if v.Percent == "" || total.IsZero() {
		return decimal.Zero, false
	}
	return Percentage(total, ParseAmount(v.Percent)), true
}

// Invoice holds the invoice fields of a draft. A nil Invoiced means the user
// never answered.
type Invoice struct {
	Amount   string    `yaml:"amount"`
	Date     time.Time `yaml:"date"`
	Invoiced *bool     `yaml:"invoiced"`
}

// ReceiptFile is a receipt image attached to a draft.
type ReceiptFile struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Draft is the in-progress, user-editable state of one transaction form.
type Draft struct {
	ID            uuid.UUID
	TransactionID ID
	Type          TransactionType
	Description   string
	Amounts       Amounts
	VAT           VAT
	Invoice       Invoice
	Category      Reference
	Subcategory   Reference
	Vendor        Reference
	Account       Reference
	Receipt       *ReceiptFile
}

// NewDraft returns an empty draft with the form defaults.
func NewDraft(now time.Time) Draft {
	return Draft{
		ID:   uuid.New(),
		Type: MoneyIn,
		VAT: VAT{
			Mode:    VATModeAmount,
			Percent: DefaultVATPercent,
		},
		Invoice: Invoice{Date: now},
	}
}

// Total returns the sum of the cash, bank and credit card amounts.
func (d Draft) Total() decimal.Decimal {
	return d.Amounts.Total()
}

// Clone returns a deep copy of d.
func (d Draft) Clone() Draft {
	c := d
	if d.Invoice.Invoiced != nil {
		v := *d.Invoice.Invoiced
		c.Invoice.Invoiced = &v
	}
	if d.Receipt != nil {
		r := *d.Receipt
		r.Data = append([]byte(nil), d.Receipt.Data...)
		c.Receipt = &r
	}
	return c
}

// Reference returns the draft's reference field for kind.
func (d Draft) Reference(kind EntityKind) Reference {
	switch kind {
	case KindCategory:
		return d.Category
	case KindSubcategory:
		return d.Subcategory
	case KindVendor:
		return d.Vendor
	case KindAccount:
		return d.Account
	}
	return nil
}

// SetReference replaces the draft's reference field for kind.
func (d *Draft) SetReference(kind EntityKind, ref Reference) {
	switch kind {
	case KindCategory:
		d.Category = ref
	case KindSubcategory:
		d.Subcategory = ref
	case KindVendor:
		d.Vendor = ref
	case KindAccount:
		d.Account = ref
	}
}

// Bool returns a pointer to v, for Invoice.Invoiced.
func Bool(v bool) *bool {
	return &v
}
