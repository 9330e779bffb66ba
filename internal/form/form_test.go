package form

import (
	"context"
	"errors"
	"testing"
	"time"

	"softetsolutions/mattax/internal/backend"
	"softetsolutions/mattax/internal/logging"
	"softetsolutions/mattax/internal/models"
	"softetsolutions/mattax/internal/payload"
	"softetsolutions/mattax/internal/receipt"
	"softetsolutions/mattax/internal/resolver"
	"softetsolutions/mattax/internal/txerror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	sess     = models.Session{Token: "tok", UserID: "u1"}
	fixedNow = time.Date(2024, time.June, 3, 9, 0, 0, 0, time.UTC)
)

type fixture struct {
	svc      *backend.MockService
	resolver *resolver.Resolver
	deps     Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	svc := backend.NewMockService()
	logger := logging.NewMockLogger()
	res := resolver.New(svc, logger)
	return &fixture{
		svc:      svc,
		resolver: res,
		deps: Deps{
			Resolver:  res,
			Merger:    receipt.NewMerger(res, logger),
			Extractor: svc,
			Builder:   payload.NewBuilder(logger),
			Writer:    svc,
			Logger:    logger,
			Now:       func() time.Time { return fixedNow },
		},
	}
}

func (f *fixture) load(t *testing.T) {
	t.Helper()
	require.NoError(t, f.resolver.Load(context.Background(), sess))
}

func TestNewCreateDefaults(t *testing.T) {
	f := newFixture(t)
	c := NewCreate(sess, f.deps)
	d := c.Draft()

	assert.Equal(t, payload.ModeCreate, c.Mode())
	assert.Equal(t, models.MoneyIn, d.Type)
	assert.Equal(t, "20", d.VAT.Percent)
	assert.Equal(t, fixedNow, d.Invoice.Date)
	assert.False(t, c.Closed())
}

func TestSubmitCreatesMissingEntitiesInOrder(t *testing.T) {
	f := newFixture(t)
	food := f.svc.AddEntity(models.KindCategory, "Food", "")
	f.load(t)

	c := NewCreate(sess, f.deps)
	require.NoError(t, c.Edit(func(d *models.Draft) {
		d.Amounts.Cash = "12"
		d.Category = models.Unresolved("Food")
		d.Subcategory = models.Unresolved("Lunch")
		d.Vendor = models.Unresolved("Cafe")
		d.Account = models.Unresolved("ACC-1")
		d.Invoice.Invoiced = models.Bool(false)
	}))

	require.NoError(t, c.Submit(context.Background()))
	assert.True(t, c.Closed())

	// Vendor, account, then subcategory are created; the category existed.
	assert.Equal(t, 3, f.svc.Count(backend.OpCreateEntity))
	var order []models.EntityKind
	for _, e := range f.svc.Entities[1:] {
		order = append(order, e.Kind)
	}
	assert.Equal(t, []models.EntityKind{models.KindVendor, models.KindAccount, models.KindSubcategory}, order)

	written := f.svc.Payloads()
	require.Len(t, written, 1)
	p := written[0]
	assert.Equal(t, payload.ModeCreate, p.Mode)
	assert.Equal(t, food.ID.String(), p.Fields["category"])
	assert.NotEmpty(t, p.Fields["vendorId"])
	assert.NotEmpty(t, p.Fields["accountNo"])
	assert.NotEmpty(t, p.Fields["sub_category1"])
	assert.Equal(t, "no", p.Fields["isInvoiced"])
	assert.Equal(t, "u1", p.Fields["userId"])

	// Resolved references are visible on the draft.
	d := c.Draft()
	_, ok := models.EntityOf(d.Vendor)
	assert.True(t, ok)
	sub, ok := models.EntityOf(d.Subcategory)
	require.True(t, ok)
	assert.Equal(t, food.ID, sub.ParentID)
}

func TestSubmitSkipsSubcategoryWithoutCategory(t *testing.T) {
	f := newFixture(t)
	c := NewCreate(sess, f.deps)
	require.NoError(t, c.Edit(func(d *models.Draft) {
		d.Subcategory = models.Unresolved("Lunch")
	}))

	require.NoError(t, c.Submit(context.Background()))
	assert.Equal(t, 0, f.svc.Count(backend.OpCreateEntity))
	p := f.svc.Payloads()[0]
	assert.Equal(t, "", p.Fields["sub_category1"])
	assert.Equal(t, "", p.Fields["category"])
}

func TestSubmitFailureAtVendorKeepsCategory(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	f.svc.CreateErrors = map[string]error{"Cafe": errors.New("boom")}

	c := NewCreate(sess, f.deps)
	require.NoError(t, c.Edit(func(d *models.Draft) {
		d.Category = models.Unresolved("Food")
		d.Vendor = models.Unresolved("Cafe")
		d.Account = models.Unresolved("ACC-1")
	}))

	err := c.Submit(context.Background())
	var submitErr *txerror.SubmitError
	require.True(t, errors.As(err, &submitErr))
	assert.Equal(t, txerror.StageVendor, submitErr.Stage)
	var createErr *txerror.EntityCreationError
	assert.True(t, errors.As(err, &createErr))

	// The category created before the failure is not rolled back, the account
	// was never attempted and nothing was written.
	assert.Len(t, f.svc.EntitiesOf(models.KindCategory), 1)
	assert.Empty(t, f.svc.EntitiesOf(models.KindAccount))
	assert.Empty(t, f.svc.Payloads())
	assert.False(t, c.Closed())

	d := c.Draft()
	_, ok := models.EntityOf(d.Category)
	assert.True(t, ok)
	assert.Equal(t, models.Unresolved("Cafe"), d.Vendor)

	// A retry reuses the category instead of creating it again.
	f.svc.CreateErrors = nil
	require.NoError(t, c.Submit(context.Background()))
	assert.Len(t, f.svc.EntitiesOf(models.KindCategory), 1)
}

func TestSubmitWriteFailure(t *testing.T) {
	f := newFixture(t)
	f.svc.WriteError = errors.New("503")
	c := NewCreate(sess, f.deps)

	err := c.Submit(context.Background())
	var submitErr *txerror.SubmitError
	require.True(t, errors.As(err, &submitErr))
	assert.Equal(t, txerror.StageWrite, submitErr.Stage)
	assert.False(t, c.Closed())
}

func TestSubmitNotReentrant(t *testing.T) {
	f := newFixture(t)
	release := make(chan struct{})
	f.svc.CreateHook = func(ctx context.Context, kind models.EntityKind, label string) error {
		<-release
		return nil
	}
	c := NewCreate(sess, f.deps)
	require.NoError(t, c.Edit(func(d *models.Draft) { d.Vendor = models.Unresolved("Cafe") }))

	done := make(chan error, 1)
	go func() { done <- c.Submit(context.Background()) }()
	require.Eventually(t, func() bool { return f.svc.Count(backend.OpCreateEntity) == 1 }, 2*time.Second, 5*time.Millisecond)

	assert.True(t, errors.Is(c.Submit(context.Background()), txerror.ErrSubmitInProgress))

	close(release)
	require.NoError(t, <-done)
	assert.Len(t, f.svc.Payloads(), 1)
	assert.True(t, errors.Is(c.Submit(context.Background()), txerror.ErrFormClosed))
}

func TestEditFlowUsesUpdateNames(t *testing.T) {
	f := newFixture(t)
	cafe := f.svc.AddEntity(models.KindVendor, "Cafe", "")
	f.load(t)

	tx := models.Transaction{ID: "t9", Type: "moneyOut", VendorID: cafe.ID, Description: "Coffee"}
	c := NewEdit(sess, f.deps, tx)
	assert.Equal(t, payload.ModeUpdate, c.Mode())
	require.NoError(t, c.Edit(func(d *models.Draft) { d.Amounts.Bank = "3.5" }))
	require.NoError(t, c.Submit(context.Background()))

	p := f.svc.Payloads()[0]
	assert.Equal(t, payload.ModeUpdate, p.Mode)
	assert.Equal(t, "t9", p.Fields["transactionId"])
	assert.Equal(t, "3.5", p.Fields["newAmount"])
	assert.Equal(t, "Coffee", p.Fields["newDesc3"])
	assert.Equal(t, "moneyOut", p.Fields["newType"])
	assert.Equal(t, cafe.ID.String(), p.Fields["vendorId"])
	assert.Equal(t, 1, f.svc.Count(backend.OpUpdate))
	assert.Equal(t, 0, f.svc.Count(backend.OpCreate))
}

func TestScanReceiptMergesIntoCurrentDraft(t *testing.T) {
	f := newFixture(t)
	f.svc.Extraction = models.ReceiptExtraction{Amount: "18", Desc2: "Client X", Vendor: "Cafe"}
	c := NewCreate(sess, f.deps)
	require.NoError(t, c.Edit(func(d *models.Draft) { d.Description = "Lunch" }))

	file := models.ReceiptFile{Name: "r.jpg", MIMEType: "image/jpeg", Data: []byte("img")}
	report, err := c.ScanReceipt(context.Background(), file)
	require.NoError(t, err)
	require.NoError(t, report.Err())

	d := c.Draft()
	assert.Equal(t, "Lunch | Client X", d.Description)
	assert.Equal(t, "18", d.Amounts.Cash)
	vendor, ok := models.EntityOf(d.Vendor)
	require.True(t, ok)
	assert.Equal(t, "Cafe", vendor.Label)
	require.NotNil(t, d.Receipt)
	assert.Equal(t, "r.jpg", d.Receipt.Name)
}

func TestScanReceiptAppliesOnLatestDraft(t *testing.T) {
	f := newFixture(t)
	f.svc.Extraction = models.ReceiptExtraction{Amount: "18"}
	release := make(chan struct{})
	f.svc.ExtractHook = func(ctx context.Context) error {
		<-release
		return nil
	}
	c := NewCreate(sess, f.deps)

	done := make(chan error, 1)
	go func() {
		_, err := c.ScanReceipt(context.Background(), models.ReceiptFile{Name: "r.jpg", Data: []byte("x")})
		done <- err
	}()
	require.Eventually(t, func() bool { return f.svc.Count(backend.OpExtract) == 1 }, 2*time.Second, 5*time.Millisecond)

	// A manual edit made while extraction runs survives.
	require.NoError(t, c.Edit(func(d *models.Draft) { d.Amounts.Bank = "7" }))
	close(release)
	require.NoError(t, <-done)

	d := c.Draft()
	assert.Equal(t, "18", d.Amounts.Cash)
	assert.Equal(t, "7", d.Amounts.Bank)
}

func TestScanReceiptDiscardedAfterClose(t *testing.T) {
	f := newFixture(t)
	f.svc.Extraction = models.ReceiptExtraction{Amount: "18"}
	release := make(chan struct{})
	f.svc.ExtractHook = func(ctx context.Context) error {
		<-release
		return nil
	}
	c := NewCreate(sess, f.deps)

	done := make(chan error, 1)
	go func() {
		_, err := c.ScanReceipt(context.Background(), models.ReceiptFile{Name: "r.jpg", Data: []byte("x")})
		done <- err
	}()
	require.Eventually(t, func() bool { return f.svc.Count(backend.OpExtract) == 1 }, 2*time.Second, 5*time.Millisecond)

	c.Close()
	close(release)
	assert.True(t, errors.Is(<-done, txerror.ErrFormClosed))
	assert.Equal(t, "", c.Draft().Amounts.Cash)
	assert.True(t, errors.Is(c.Edit(func(d *models.Draft) {}), txerror.ErrFormClosed))
}

func TestScanReceiptExtractionFailure(t *testing.T) {
	f := newFixture(t)
	f.svc.ExtractError = errors.New("ocr down")
	c := NewCreate(sess, f.deps)
	before := c.Draft()

	_, err := c.ScanReceipt(context.Background(), models.ReceiptFile{Name: "r.jpg", Data: []byte("x")})
	var exErr *txerror.ExtractionError
	require.True(t, errors.As(err, &exErr))
	assert.Equal(t, "r.jpg", exErr.File)
	assert.Equal(t, before, c.Draft())
}

func TestRenameRefreshesDraft(t *testing.T) {
	f := newFixture(t)
	cafe := f.svc.AddEntity(models.KindVendor, "Cafe", "")
	f.load(t)

	c := NewCreate(sess, f.deps)
	require.NoError(t, c.SetReferenceText(models.KindVendor, "Cafe"))
	require.Equal(t, cafe.ID, models.IDOf(c.Draft().Vendor))

	renamed, err := c.Rename(context.Background(), models.KindVendor, cafe.ID, "Coffee House")
	require.NoError(t, err)
	assert.Equal(t, "Coffee House", renamed.Label)
	assert.Equal(t, "Coffee House", models.LabelOf(c.Draft().Vendor))
	assert.Equal(t, 0, f.svc.Count(backend.OpCreateEntity))
}

func TestSetReferenceText(t *testing.T) {
	f := newFixture(t)
	food := f.svc.AddEntity(models.KindCategory, "Food", "")
	lunch := f.svc.AddEntity(models.KindSubcategory, "Lunch", food.ID)
	f.load(t)

	c := NewCreate(sess, f.deps)
	require.NoError(t, c.SetReferenceText(models.KindCategory, "Food"))
	require.NoError(t, c.SetReferenceText(models.KindSubcategory, "Lunch"))
	assert.Equal(t, lunch.ID, models.IDOf(c.Draft().Subcategory))

	// Changing the category clears the subcategory.
	require.NoError(t, c.SetReferenceText(models.KindCategory, "Travel"))
	d := c.Draft()
	assert.Equal(t, models.Unresolved("Travel"), d.Category)
	assert.Nil(t, d.Subcategory)

	require.NoError(t, c.SetReferenceText(models.KindVendor, "  "))
	assert.Nil(t, c.Draft().Vendor)
}
