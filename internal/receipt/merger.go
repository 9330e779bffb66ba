// Package receipt reads receipt images through an extractor and merges the
// extracted fields into a transaction draft.
package receipt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"softetsolutions/mattax/internal/dateutils"
	"softetsolutions/mattax/internal/logging"
	"softetsolutions/mattax/internal/models"
	"softetsolutions/mattax/internal/txerror"

	"golang.org/x/sync/errgroup"
)

// DescriptionSeparator joins the secondary description lines of a receipt.
const DescriptionSeparator = " | "

// EntityResolver resolves labels to reference entities.
type EntityResolver interface {
	Resolve(ctx context.Context, sess models.Session, kind models.EntityKind, label string, parentID models.ID) (models.ReferenceEntity, error)
}

// FieldFailure records a field that could not be merged.
type FieldFailure struct {
	Field string
	Value string
	Err   error
}

func (f FieldFailure) Error() string {
	return fmt.Sprintf("%s %q: %v", f.Field, f.Value, f.Err)
}

func (f FieldFailure) Unwrap() error {
	return f.Err
}

// MergeReport lists what a merge applied and which fields failed.
type MergeReport struct {
	Applied  []string
	Failures []FieldFailure
}

// Err joins the field failures, or returns nil when there are none.
func (r *MergeReport) Err() error {
	if r == nil || len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Patch is the outcome of preparing a merge. Applying it is pure.
type Patch struct {
	cash        *string
	refs        map[models.EntityKind]models.Reference
	desc1       *string
	extraDesc   []string
	invoiceDate *time.Time
	txType      *models.TransactionType
}

// Apply returns a copy of draft with the patch applied. draft is not modified.
func (p *Patch) Apply(draft models.Draft) models.Draft {
	out := draft.Clone()
	if p == nil {
		return out
	}
	if p.cash != nil {
		out.Amounts.Cash = *p.cash
	}
	for _, kind := range models.AllKinds {
		if ref, ok := p.refs[kind]; ok {
			out.SetReference(kind, ref)
		}
	}
	if p.desc1 != nil {
		out.Description = *p.desc1
	}
	if len(p.extraDesc) > 0 {
		parts := make([]string, 0, len(p.extraDesc)+1)
		if out.Description != "" {
			parts = append(parts, out.Description)
		}
		parts = append(parts, p.extraDesc...)
		out.Description = strings.Join(parts, DescriptionSeparator)
	}
	if p.invoiceDate != nil {
		out.Invoice.Date = *p.invoiceDate
	}
	if p.txType != nil {
		out.Type = *p.txType
	}
	return out
}

// Empty reports whether the patch changes nothing.
func (p *Patch) Empty() bool {
	return p == nil || (p.cash == nil && len(p.refs) == 0 && p.desc1 == nil &&
		len(p.extraDesc) == 0 && p.invoiceDate == nil && p.txType == nil)
}

// Merger folds receipt extractions into drafts without discarding fields the
// extraction does not carry.
type Merger struct {
	resolver EntityResolver
	logger   logging.Logger
}

// NewMerger creates a Merger that resolves labels with resolver.
func NewMerger(resolver EntityResolver, logger logging.Logger) *Merger {
	return &Merger{resolver: resolver, logger: logging.OrDefault(logger)}
}

// Merge resolves the extraction's labels and applies them to current.
// current is never mutated.
func (m *Merger) Merge(ctx context.Context, sess models.Session, current models.Draft, ex models.ReceiptExtraction) (models.Draft, *MergeReport) {
	patch, report := m.Prepare(ctx, sess, current, ex)
	return patch.Apply(current), report
}

// Prepare resolves the extraction's labels against base and returns the patch
// to apply. Entity resolution happens here; the patch itself is pure so it can
// be applied to a newer version of the draft.
func (m *Merger) Prepare(ctx context.Context, sess models.Session, base models.Draft, ex models.ReceiptExtraction) (*Patch, *MergeReport) {
	p := &Patch{refs: make(map[models.EntityKind]models.Reference)}
	report := &MergeReport{}
	var mu sync.Mutex

	record := func(field string, value string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			report.Failures = append(report.Failures, FieldFailure{Field: field, Value: value, Err: err})
			return
		}
		report.Applied = append(report.Applied, field)
	}
	resolve := func(kind models.EntityKind, label string, parentID models.ID) models.Reference {
		e, err := m.resolver.Resolve(ctx, sess, kind, label, parentID)
		record(string(kind), label, err)
		if err != nil {
			return models.Unresolved(label)
		}
		return models.Resolved(e)
	}
	setRef := func(kind models.EntityKind, ref models.Reference) {
		mu.Lock()
		p.refs[kind] = ref
		mu.Unlock()
	}

	if v, ok := ex.Amount.Value(); ok {
		p.cash = &v
		record("amount", v, nil)
	}

	var g errgroup.Group
	g.Go(func() error {
		category, hasCategory := ex.Category.Value()
		parentID := models.IDOf(base.Category)
		if hasCategory {
			ref := resolve(models.KindCategory, category, "")
			setRef(models.KindCategory, ref)
			parentID = models.IDOf(ref)
		}
		sub, ok := ex.Subcategory.Value()
		if !ok {
			return nil
		}
		if parentID == "" {
			record(string(models.KindSubcategory), sub, txerror.ErrMissingParent)
			setRef(models.KindSubcategory, models.Unresolved(sub))
			return nil
		}
		setRef(models.KindSubcategory, resolve(models.KindSubcategory, sub, parentID))
		return nil
	})
	g.Go(func() error {
		if v, ok := ex.Vendor.Value(); ok {
			setRef(models.KindVendor, resolve(models.KindVendor, v, ""))
		}
		return nil
	})
	g.Go(func() error {
		if v, ok := ex.Account.Value(); ok {
			setRef(models.KindAccount, resolve(models.KindAccount, v, ""))
		}
		return nil
	})
	_ = g.Wait()

	if v, ok := ex.Desc1.Value(); ok {
		p.desc1 = &v
		record("desc1", v, nil)
	}
	for _, d := range []models.LooseString{ex.Desc2, ex.Desc3} {
		if v, ok := d.Value(); ok {
			p.extraDesc = append(p.extraDesc, v)
		}
	}
	if len(p.extraDesc) > 0 {
		record("description", strings.Join(p.extraDesc, DescriptionSeparator), nil)
	}

	if v, ok := ex.InvoiceDate.Value(); ok {
		date, _, err := dateutils.ParseDate(v)
		if err == nil {
			p.invoiceDate = &date
		}
		record("invoice_date", v, err)
	}

	if v, ok := ex.Type.Value(); ok {
		t := models.MoneyIn
		if strings.EqualFold(v, "debit") {
			t = models.MoneyOut
		}
		p.txType = &t
		record("type", v, nil)
	}

	if len(report.Failures) > 0 {
		m.logger.WithError(report.Err()).Warn("Receipt merge completed with failures",
			logging.F(logging.FieldDraftID, base.ID.String()),
			logging.F(logging.FieldCount, len(report.Failures)))
	} else {
		m.logger.Debug("Receipt merge prepared",
			logging.F(logging.FieldDraftID, base.ID.String()),
			logging.F(logging.FieldCount, len(report.Applied)))
	}
	return p, report
}
