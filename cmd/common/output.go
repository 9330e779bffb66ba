package common

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"softetsolutions/mattax/internal/feed"
	"softetsolutions/mattax/internal/models"
	"softetsolutions/mattax/internal/receipt"
)

// EntityNames resolves entity ids for display.
type EntityNames interface {
	ByID(kind models.EntityKind, id models.ID) (models.ReferenceEntity, bool)
}

// NewTable returns a tab-aligned writer over w. Callers must Flush it.
func NewTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// WriteTransactions prints txs as a table. names may be nil.
func WriteTransactions(w io.Writer, txs []models.Transaction, names EntityNames) error {
	tw := NewTable(w)
	fmt.Fprintln(tw, "ID\tCREATED\tTYPE\tAMOUNT\tVENDOR\tCATEGORY\tDESCRIPTION")
	for _, tx := range txs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			tx.ID,
			tx.CreatedAt,
			tx.TransactionType(),
			tx.Amount.StringFixed(2),
			vendorName(tx, names),
			entityName(names, models.KindCategory, tx.CategoryID),
			tx.Description)
	}
	return tw.Flush()
}

func vendorName(tx models.Transaction, names EntityNames) string {
	if name := entityName(names, models.KindVendor, tx.VendorID); name != "" {
		return name
	}
	return tx.VendorLabel()
}

func entityName(names EntityNames, kind models.EntityKind, id models.ID) string {
	if id == "" {
		return ""
	}
	if names != nil {
		if e, ok := names.ByID(kind, id); ok {
			return e.Label
		}
	}
	return id.String()
}

// WriteEntities prints entities as a table.
func WriteEntities(w io.Writer, entities []models.ReferenceEntity) error {
	tw := NewTable(w)
	fmt.Fprintln(tw, "ID\tLABEL\tPARENT")
	for _, e := range entities {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.ID, e.Label, e.ParentID)
	}
	return tw.Flush()
}

// WriteLogs prints a transaction's change history.
func WriteLogs(w io.Writer, entries []models.TransactionLogEntry) error {
	tw := NewTable(w)
	fmt.Fprintln(tw, "TIMESTAMP\tEDITED BY\tFIELD\tNEW VALUE")
	for _, e := range entries {
		for _, ch := range e.Changes {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Timestamp, e.EditedBy, ch.Field, string(ch.NewValue))
		}
	}
	return tw.Flush()
}

// WriteMergeReport lists the fields a receipt scan could not apply.
func WriteMergeReport(w io.Writer, r *receipt.MergeReport) {
	if r == nil {
		return
	}
	for _, f := range r.Failures {
		fmt.Fprintf(w, "warning: %s %q: %v\n", f.Field, f.Value, f.Err)
	}
}

// FindTransaction pages through source until it finds id.
func FindTransaction(ctx context.Context, source feed.Source, sess models.Session, id models.ID) (models.Transaction, error) {
	c := feed.NewController(source, sess, nil)
	if err := c.LoadFirstPage(ctx); err != nil {
		return models.Transaction{}, err
	}
	seen := 0
	for {
		items := c.Items()
		for _, tx := range items[seen:] {
			if tx.ID == id {
				return tx, nil
			}
		}
		seen = len(items)
		if !c.HasMore() {
			return models.Transaction{}, fmt.Errorf("transaction %s not found", id)
		}
		if err := c.LoadNextPage(ctx); err != nil {
			return models.Transaction{}, err
		}
	}
}
