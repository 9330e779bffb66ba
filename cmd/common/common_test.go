package common

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"softetsolutions/mattax/internal/backend"
	"softetsolutions/mattax/internal/form"
	"softetsolutions/mattax/internal/models"
	"softetsolutions/mattax/internal/payload"
	"softetsolutions/mattax/internal/receipt"
	"softetsolutions/mattax/internal/resolver"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sess = models.Session{UserID: "u1"}

func newForm(t *testing.T, svc *backend.MockService) (*form.Controller, *resolver.Resolver) {
	t.Helper()
	res := resolver.New(svc, nil)
	require.NoError(t, res.Load(context.Background(), sess))
	deps := form.Deps{
		Resolver:  res,
		Merger:    receipt.NewMerger(res, nil),
		Extractor: svc,
		Builder:   payload.NewBuilder(nil),
		Writer:    svc,
		Now:       func() time.Time { return time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC) },
	}
	return form.NewCreate(sess, deps), res
}

func TestLoadDraftFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draft.yaml")
	content := `type: moneyOut
description: Team lunch
cash: "12.50"
vat_percent: "20"
invoice_date: "2024-03-01"
invoiced: "yes"
category: Food
subcategory: Lunch
vendor: Cafe
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	f, err := LoadDraftFile(path)
	require.NoError(t, err)
	assert.Equal(t, DraftFile{
		Type:        "moneyOut",
		Description: "Team lunch",
		Cash:        "12.50",
		VATPercent:  "20",
		InvoiceDate: "2024-03-01",
		Invoiced:    "yes",
		Category:    "Food",
		Subcategory: "Lunch",
		Vendor:      "Cafe",
	}, f)

	_, err = LoadDraftFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestOverride(t *testing.T) {
	base := DraftFile{Cash: "1", Vendor: "Cafe", Description: "x"}
	got := base.Override(DraftFile{Cash: "2", Account: "ACC"})
	assert.Equal(t, DraftFile{Cash: "2", Vendor: "Cafe", Description: "x", Account: "ACC"}, got)
}

func TestApplyDraftFile(t *testing.T) {
	svc := backend.NewMockService()
	food := svc.AddEntity(models.KindCategory, "Food", "")
	lunch := svc.AddEntity(models.KindSubcategory, "Lunch", food.ID)
	c, _ := newForm(t, svc)

	err := ApplyDraftFile(c, DraftFile{
		Type:        "out",
		Cash:        "12.50",
		VATPercent:  "20",
		InvoiceDate: "2024-03-01",
		Invoiced:    "no",
		Category:    "Food",
		Subcategory: "Lunch",
		Vendor:      "Cafe",
	})
	require.NoError(t, err)

	d := c.Draft()
	assert.Equal(t, models.MoneyOut, d.Type)
	assert.Equal(t, "12.50", d.Amounts.Cash)
	assert.Equal(t, models.VAT{Enabled: true, Mode: models.VATModePercent, Percent: "20"}, d.VAT)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), d.Invoice.Date)
	require.NotNil(t, d.Invoice.Invoiced)
	assert.False(t, *d.Invoice.Invoiced)
	assert.Equal(t, models.Resolved(food), d.Category)
	assert.Equal(t, models.Resolved(lunch), d.Subcategory)
	assert.Equal(t, models.Unresolved("Cafe"), d.Vendor)
}

func TestApplyDraftFileErrors(t *testing.T) {
	c, _ := newForm(t, backend.NewMockService())
	assert.ErrorContains(t, ApplyDraftFile(c, DraftFile{InvoiceDate: "soon"}), "invalid invoice date")
	assert.ErrorContains(t, ApplyDraftFile(c, DraftFile{Invoiced: "maybe"}), "invalid invoiced value")
}

func TestDraftFileFromRoundTrip(t *testing.T) {
	d := models.NewDraft(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC))
	d.Description = "Lunch | Client X"
	d.Amounts.Cash = "18"
	d.VAT = models.VAT{Enabled: true, Mode: models.VATModeAmount, Amount: "3"}
	d.Invoice.Invoiced = models.Bool(true)
	d.Vendor = models.Resolved(models.ReferenceEntity{ID: "v1", Kind: models.KindVendor, Label: "Cafe"})

	f := DraftFileFrom(d)
	assert.Equal(t, DraftFile{
		Type:        "moneyIn",
		Description: "Lunch | Client X",
		Cash:        "18",
		VATAmount:   "3",
		InvoiceDate: "2024-03-01",
		Invoiced:    "yes",
		Vendor:      "Cafe",
	}, f)

	out, err := f.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(out), "vendor: Cafe")
}

func TestWriteTransactions(t *testing.T) {
	svc := backend.NewMockService()
	cafe := svc.AddEntity(models.KindVendor, "Cafe", "")
	_, res := newForm(t, svc)

	var buf bytes.Buffer
	require.NoError(t, WriteTransactions(&buf, []models.Transaction{
		{ID: "t1", Type: "moneyOut", Amount: models.NewAmount(models.ParseAmount("4.5")), VendorID: cafe.ID, CategoryID: "c9", Description: "Coffee"},
		{ID: "t2", Type: "moneyIn", VendorName: "Client X"},
	}, res))

	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "moneyOut")
	assert.Contains(t, out, "4.50")
	assert.Contains(t, out, "Cafe")
	assert.Contains(t, out, "c9")
	assert.Contains(t, out, "Client X")
}

func TestWriteLogsAndEntities(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLogs(&buf, []models.TransactionLogEntry{{
		Timestamp: "2024-03-01T10:00:00.000Z",
		EditedBy:  "alice",
		Changes:   []models.FieldChange{{Field: "amount", NewValue: "12"}},
	}}))
	assert.Contains(t, buf.String(), "alice")
	assert.Contains(t, buf.String(), "amount")

	buf.Reset()
	require.NoError(t, WriteEntities(&buf, []models.ReferenceEntity{{ID: "s1", Label: "Lunch", ParentID: "c1"}}))
	assert.Contains(t, buf.String(), "Lunch")
	assert.Contains(t, buf.String(), "c1")
}

func TestWriteMergeReport(t *testing.T) {
	var buf bytes.Buffer
	WriteMergeReport(&buf, &receipt.MergeReport{Failures: []receipt.FieldFailure{{Field: "vendor", Value: "Cafe", Err: fmt.Errorf("boom")}}})
	assert.Equal(t, "warning: vendor \"Cafe\": boom\n", buf.String())

	buf.Reset()
	WriteMergeReport(&buf, nil)
	assert.Empty(t, buf.String())
}

func TestFindTransaction(t *testing.T) {
	svc := backend.NewMockService()
	for i := 0; i < 25; i++ {
		svc.Transactions = append(svc.Transactions, models.Transaction{ID: models.ID(fmt.Sprintf("t%d", i))})
	}

	tx, err := FindTransaction(context.Background(), svc.ListTransactions, sess, "t21")
	require.NoError(t, err)
	assert.Equal(t, models.ID("t21"), tx.ID)
	assert.Equal(t, 3, svc.Count(backend.OpListTransactions))

	_, err = FindTransaction(context.Background(), svc.ListTransactions, sess, "nope")
	assert.EqualError(t, err, "transaction nope not found")
}
