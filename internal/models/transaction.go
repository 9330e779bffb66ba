package models

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Transaction is a stored transaction as returned by the backend.
type Transaction struct {
	ID               ID          `json:"id"`
	Type             string      `json:"type"`
	Amount           Amount      `json:"amount"`
	AmountCash       Amount      `json:"amount_cash"`
	AmountBank       Amount      `json:"amount_bank"`
	AmountCreditCard Amount      `json:"amount_creditcard"`
	CategoryID       ID          `json:"category"`
	SubcategoryID    ID          `json:"sub_category1"`
	VendorID         ID          `json:"vendorId"`
	VendorName       string      `json:"vendorName"`
	LegacyVendorName string      `json:"vendorname"`
	AccountID        ID          `json:"accountNo"`
	Description      string      `json:"desc3"`
	VATAmount        LooseString `json:"vat_gst_amount"`
	VATPercentage    LooseString `json:"vat_gst_percentage"`
	InvoiceAmount    Amount      `json:"invoice_amount"`
	InvoiceDate      string      `json:"invoice_date"`
	Invoiced         LooseString `json:"invoiced"`
	ReceiptID        ID          `json:"receipt"`
	CreatedAt        string      `json:"created_at"`
	IsDeleted        bool        `json:"isDeleted"`
}

// TransactionType returns the parsed direction.
func (t Transaction) TransactionType() TransactionType {
	return ParseTransactionType(t.Type)
}

// VendorLabel returns the vendor name carried on the transaction, if any.
func (t Transaction) VendorLabel() string {
	if t.VendorName != "" {
		return t.VendorName
	}
	return t.LegacyVendorName
}

// IsInvoiced reports the stored invoiced flag; only "yes" counts.
func (t Transaction) IsInvoiced() bool {
	return strings.EqualFold(string(t.Invoiced), "yes")
}

// FieldChange is one field edit in a transaction's history.
type FieldChange struct {
	Field    string      `json:"field_changed"`
	NewValue LooseString `json:"new_value"`
}

// TransactionLogEntry groups the field changes of one edit.
type TransactionLogEntry struct {
	Timestamp string        `json:"timestamp"`
	EditedBy  string        `json:"edited_by"`
	Changes   []FieldChange `json:"changes"`
}

// PageSize is the fixed number of transactions requested per feed page.
const PageSize = 10

// FeedPage is one page of the transaction feed.
type FeedPage struct {
	Items      []Transaction
	PageNumber int
	TotalPages int
	TotalItems int
}

// ReceiptImage is a stored receipt image, base64 encoded by the backend.
type ReceiptImage struct {
	Base64 string `json:"data"`
}

// Bytes decodes the image. A data URL prefix is tolerated.
func (r ReceiptImage) Bytes() ([]byte, error) {
	s := r.Base64
	if i := strings.Index(s, ";base64,"); i >= 0 && strings.HasPrefix(s, "data:") {
		s = s[i+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("failed to decode receipt image: %w", err)
	}
	return data, nil
}
