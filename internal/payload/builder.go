package payload

import (
	"fmt"

	"softetsolutions/mattax/internal/dateutils"
	"softetsolutions/mattax/internal/logging"
	"softetsolutions/mattax/internal/models"
	"softetsolutions/mattax/internal/txerror"
)

// Field names shared by both modes.
const (
	FieldAccount       = "accountNo"
	FieldVendor        = "vendorId"
	FieldVATAmount     = "vat_gst_amount"
	FieldVATPercentage = "vat_gst_percentage"
)

// fieldNames maps a logical field to its wire name in each mode. The backend
// uses different names for create and update.
type fieldNames struct {
	Amount, Bank, Cash, CreditCard string
	Category, Subcategory, Desc    string
	InvoiceAmount, InvoiceDate     string
	Invoiced, Type                 string
}

var names = map[Mode]fieldNames{
	ModeCreate: {
		Amount:        "amount",
		Bank:          "amount_bank",
		Cash:          "amount_cash",
		CreditCard:    "amount_creditcard",
		Category:      "category",
		Subcategory:   "sub_category1",
		Desc:          "desc3",
		InvoiceAmount: "invoice_amount",
		InvoiceDate:   "invoice_date",
		Invoiced:      "isInvoiced",
		Type:          "type",
	},
	ModeUpdate: {
		Amount:        "newAmount",
		Bank:          "newAmountbank",
		Cash:          "newAmountcash",
		CreditCard:    "newAmountcreditcard",
		Category:      "newCategory",
		Subcategory:   "newsubCategory1",
		Desc:          "newDesc3",
		InvoiceAmount: "newInvoiceamount",
		InvoiceDate:   "newInvoicedate",
		Invoiced:      "newInvoiced",
		Type:          "newType",
	},
}

// Builder turns a draft into a Payload. It has no side effects.
type Builder struct {
	logger logging.Logger
}

// NewBuilder creates a Builder. A nil logger falls back to the default logger.
func NewBuilder(logger logging.Logger) *Builder {
	return &Builder{logger: logging.OrDefault(logger)}
}

// Build assembles the payload for draft in mode. Reference fields carry the ids
// of resolved entities; unresolved references are sent empty.
func (b *Builder) Build(draft models.Draft, mode Mode, userID string) (*Payload, error) {
	n, ok := names[mode]
	if !ok {
		return nil, fmt.Errorf("unknown payload mode %q", mode)
	}
	if mode == ModeUpdate && draft.TransactionID == "" {
		return nil, txerror.ErrMissingTransactionID
	}

	total := draft.Total()
	f := map[string]string{
		n.Amount:        total.String(),
		n.Bank:          number(draft.Amounts.Bank),
		n.Cash:          number(draft.Amounts.Cash),
		n.CreditCard:    number(draft.Amounts.CreditCard),
		n.Category:      models.IDOf(draft.Category).String(),
		n.Subcategory:   models.IDOf(draft.Subcategory).String(),
		n.Desc:          draft.Description,
		n.InvoiceAmount: number(draft.Invoice.Amount),
		n.InvoiceDate:   "",
		n.Type:          string(draft.Type),
		FieldVendor:     models.IDOf(draft.Vendor).String(),
		FieldAccount:    models.IDOf(draft.Account).String(),
	}
	if !draft.Invoice.Date.IsZero() {
		f[n.InvoiceDate] = dateutils.FormatTimestamp(draft.Invoice.Date)
	}
	if draft.Invoice.Invoiced != nil {
		f[n.Invoiced] = yesNo(*draft.Invoice.Invoiced)
	}

	switch mode {
	case ModeCreate:
		f["userId"] = userID
		f["isDeleted"] = "false"
	case ModeUpdate:
		f["transactionId"] = draft.TransactionID.String()
	}

	if draft.VAT.Enabled {
		switch draft.VAT.Mode {
		case models.VATModePercent:
			if draft.VAT.Percent != "" {
				f[FieldVATPercentage] = number(draft.VAT.Percent)
				if amount, ok := draft.VAT.DerivedAmount(total); ok {
					f[FieldVATAmount] = amount.String()
				}
			}
		default:
			if draft.VAT.Amount != "" {
				f[FieldVATAmount] = number(draft.VAT.Amount)
			}
		}
	}

	p := &Payload{Mode: mode, Fields: f}
	if r := draft.Receipt; r != nil {
		file := *r
		p.File = &file
	}

	b.logger.Debug("Built transaction payload",
		logging.F(logging.FieldMode, string(mode)),
		logging.F(logging.FieldDraftID, draft.ID.String()),
		logging.F(logging.FieldCount, len(f)))
	return p, nil
}

// number renders user input the way the backend expects numeric fields:
// unparseable or empty text is sent as 0.
func number(s string) string {
	return models.ParseAmount(s).String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
