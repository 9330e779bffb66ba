// Package common contains shared functionality for command handlers
package common

import (
	"fmt"
	"os"
	"strings"
	"time"

	"softetsolutions/mattax/internal/dateutils"
	"softetsolutions/mattax/internal/form"
	"softetsolutions/mattax/internal/models"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// DraftFile is the editable form of a draft, read from YAML files and command
// flags. Empty fields leave the draft unchanged.
type DraftFile struct {
	Type          string `yaml:"type,omitempty"`
	Description   string `yaml:"description,omitempty"`
	Cash          string `yaml:"cash,omitempty"`
	Bank          string `yaml:"bank,omitempty"`
	CreditCard    string `yaml:"credit_card,omitempty"`
	VATAmount     string `yaml:"vat_amount,omitempty"`
	VATPercent    string `yaml:"vat_percent,omitempty"`
	InvoiceAmount string `yaml:"invoice_amount,omitempty"`
	InvoiceDate   string `yaml:"invoice_date,omitempty"`
	Invoiced      string `yaml:"invoiced,omitempty"`
	Category      string `yaml:"category,omitempty"`
	Subcategory   string `yaml:"subcategory,omitempty"`
	Vendor        string `yaml:"vendor,omitempty"`
	Account       string `yaml:"account,omitempty"`
}

// LoadDraftFile reads a DraftFile from YAML.
func LoadDraftFile(path string) (DraftFile, error) {
	var f DraftFile
	data, err := os.ReadFile(path)
	if err != nil {
		return f, fmt.Errorf("error reading draft file: %w", err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("error parsing draft file %s: %w", path, err)
	}
	return f, nil
}

// Marshal renders f as YAML.
func (f DraftFile) Marshal() ([]byte, error) {
	return yaml.Marshal(f)
}

// Override returns f with every non-empty field of o applied on top.
func (f DraftFile) Override(o DraftFile) DraftFile {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&f.Type, o.Type)
	set(&f.Description, o.Description)
	set(&f.Cash, o.Cash)
	set(&f.Bank, o.Bank)
	set(&f.CreditCard, o.CreditCard)
	set(&f.VATAmount, o.VATAmount)
	set(&f.VATPercent, o.VATPercent)
	set(&f.InvoiceAmount, o.InvoiceAmount)
	set(&f.InvoiceDate, o.InvoiceDate)
	set(&f.Invoiced, o.Invoiced)
	set(&f.Category, o.Category)
	set(&f.Subcategory, o.Subcategory)
	set(&f.Vendor, o.Vendor)
	set(&f.Account, o.Account)
	return f
}

// DraftFileFrom renders the editable fields of d.
func DraftFileFrom(d models.Draft) DraftFile {
	f := DraftFile{
		Type:          string(d.Type),
		Description:   d.Description,
		Cash:          d.Amounts.Cash,
		Bank:          d.Amounts.Bank,
		CreditCard:    d.Amounts.CreditCard,
		InvoiceAmount: d.Invoice.Amount,
		Category:      models.LabelOf(d.Category),
		Subcategory:   models.LabelOf(d.Subcategory),
		Vendor:        models.LabelOf(d.Vendor),
		Account:       models.LabelOf(d.Account),
	}
	if d.VAT.Enabled {
		if d.VAT.Mode == models.VATModePercent {
			f.VATPercent = d.VAT.Percent
		} else {
			f.VATAmount = d.VAT.Amount
		}
	}
	if !d.Invoice.Date.IsZero() {
		f.InvoiceDate = dateutils.ToISODate(d.Invoice.Date)
	}
	if d.Invoice.Invoiced != nil {
		f.Invoiced = "no"
		if *d.Invoice.Invoiced {
			f.Invoiced = "yes"
		}
	}
	return f
}

// ApplyDraftFile writes the non-empty fields of f into the form's draft.
// Reference fields go through the form so cached entities are selected; the
// category is applied before the subcategory.
func ApplyDraftFile(c *form.Controller, f DraftFile) error {
	var invoiceDate time.Time
	var invoiced *bool
	if f.InvoiceDate != "" {
		t, _, err := dateutils.ParseDate(f.InvoiceDate)
		if err != nil {
			return fmt.Errorf("invalid invoice date: %w", err)
		}
		invoiceDate = t
	}
	if f.Invoiced != "" {
		switch strings.ToLower(f.Invoiced) {
		case "yes", "true":
			invoiced = models.Bool(true)
		case "no", "false":
			invoiced = models.Bool(false)
		default:
			return fmt.Errorf("invalid invoiced value %q (use yes or no)", f.Invoiced)
		}
	}

	err := c.Edit(func(d *models.Draft) {
		if f.Type != "" {
			d.Type = models.ParseTransactionType(f.Type)
		}
		if f.Description != "" {
			d.Description = f.Description
		}
		if f.Cash != "" {
			d.Amounts.Cash = f.Cash
		}
		if f.Bank != "" {
			d.Amounts.Bank = f.Bank
		}
		if f.CreditCard != "" {
			d.Amounts.CreditCard = f.CreditCard
		}
		switch {
		case f.VATPercent != "":
			d.VAT.Enabled = true
			d.VAT.Mode = models.VATModePercent
			d.VAT.Percent = f.VATPercent
		case f.VATAmount != "":
			d.VAT.Enabled = true
			d.VAT.Mode = models.VATModeAmount
			d.VAT.Amount = f.VATAmount
		}
		if f.InvoiceAmount != "" {
			d.Invoice.Amount = f.InvoiceAmount
		}
		if !invoiceDate.IsZero() {
			d.Invoice.Date = invoiceDate
		}
		if invoiced != nil {
			d.Invoice.Invoiced = invoiced
		}
	})
	if err != nil {
		return err
	}

	refs := []struct {
		kind models.EntityKind
		text string
	}{
		{models.KindCategory, f.Category},
		{models.KindSubcategory, f.Subcategory},
		{models.KindVendor, f.Vendor},
		{models.KindAccount, f.Account},
	}
	for _, r := range refs {
		if r.text == "" {
			continue
		}
		if err := c.SetReferenceText(r.kind, r.text); err != nil {
			return err
		}
	}
	return nil
}

// DraftFlags binds the DraftFile fields to command flags.
func DraftFlags(cmd *cobra.Command, f *DraftFile) {
	fl := cmd.Flags()
	fl.StringVar(&f.Type, "type", "", "Transaction type: moneyIn or moneyOut")
	fl.StringVar(&f.Description, "desc", "", "Description")
	fl.StringVar(&f.Cash, "cash", "", "Cash amount")
	fl.StringVar(&f.Bank, "bank", "", "Bank amount")
	fl.StringVar(&f.CreditCard, "credit-card", "", "Credit card amount")
	fl.StringVar(&f.VATAmount, "vat-amount", "", "VAT/GST amount")
	fl.StringVar(&f.VATPercent, "vat-percent", "", "VAT/GST percentage; the amount is derived from the total")
	fl.StringVar(&f.InvoiceAmount, "invoice-amount", "", "Invoice amount")
	fl.StringVar(&f.InvoiceDate, "invoice-date", "", "Invoice date")
	fl.StringVar(&f.Invoiced, "invoiced", "", "Whether the transaction is invoiced: yes or no")
	fl.StringVar(&f.Category, "category", "", "Category name")
	fl.StringVar(&f.Subcategory, "subcategory", "", "Subcategory name")
	fl.StringVar(&f.Vendor, "vendor", "", "Vendor name")
	fl.StringVar(&f.Account, "account", "", "Account number")
}
