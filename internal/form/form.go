// Package form implements the create and edit flows of a transaction form:
// manual edits, receipt scanning, entity resolution and the final write.
package form

import (
	"context"
	"errors"
	"sync"
	"time"

	"softetsolutions/mattax/internal/logging"
	"softetsolutions/mattax/internal/models"
	"softetsolutions/mattax/internal/payload"
	"softetsolutions/mattax/internal/receipt"
	"softetsolutions/mattax/internal/txerror"
)

// Resolver resolves, renames and looks up reference entities.
type Resolver interface {
	EntityLookup
	Resolve(ctx context.Context, sess models.Session, kind models.EntityKind, label string, parentID models.ID) (models.ReferenceEntity, error)
	Rename(ctx context.Context, sess models.Session, kind models.EntityKind, id models.ID, newLabel string) (models.ReferenceEntity, error)
}

// Writer performs the transaction write of a submit.
type Writer interface {
	CreateTransaction(ctx context.Context, sess models.Session, p *payload.Payload) error
	UpdateTransaction(ctx context.Context, sess models.Session, p *payload.Payload) error
}

// Deps are the collaborators of a Controller.
type Deps struct {
	Resolver  Resolver
	Merger    *receipt.Merger
	Extractor receipt.Extractor
	Builder   *payload.Builder
	Writer    Writer
	Logger    logging.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Controller owns one draft for the lifetime of a form. All methods are safe
// for concurrent use; Submit is not re-entrant.
type Controller struct {
	sess   models.Session
	mode   payload.Mode
	deps   Deps
	logger logging.Logger

	mu         sync.Mutex
	draft      models.Draft
	closed     bool
	submitting bool
}

func newController(sess models.Session, mode payload.Mode, deps Deps, draft models.Draft) *Controller {
	logger := logging.OrDefault(deps.Logger).WithFields(
		logging.F(logging.FieldDraftID, draft.ID.String()),
		logging.F(logging.FieldMode, string(mode)),
	)
	if deps.Builder == nil {
		deps.Builder = payload.NewBuilder(logger)
	}
	return &Controller{sess: sess, mode: mode, deps: deps, logger: logger, draft: draft}
}

func now(deps Deps) time.Time {
	if deps.Now != nil {
		return deps.Now()
	}
	return time.Now()
}

// NewCreate opens a form for a new transaction with an empty draft.
func NewCreate(sess models.Session, deps Deps) *Controller {
	return newController(sess, payload.ModeCreate, deps, models.NewDraft(now(deps)))
}

// NewEdit opens a form for tx, hydrating the draft from it.
func NewEdit(sess models.Session, deps Deps, tx models.Transaction) *Controller {
	return newController(sess, payload.ModeUpdate, deps, DraftFromTransaction(tx, deps.Resolver, now(deps)))
}

// Mode returns the payload mode of the flow.
func (c *Controller) Mode() payload.Mode {
	return c.mode
}

// Draft returns a snapshot of the current draft.
func (c *Controller) Draft() models.Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.Clone()
}

// Closed reports whether the form was submitted or closed.
func (c *Controller) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close cancels the form. Work still in flight is discarded when it completes.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// Edit applies a manual change to the draft.
func (c *Controller) Edit(fn func(d *models.Draft)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return txerror.ErrFormClosed
	}
	fn(&c.draft)
	return nil
}

// SetReferenceText sets a reference field from typed text. Text matching a
// cached entity selects it; anything else stays unresolved until submit.
// Changing the category clears the subcategory.
func (c *Controller) SetReferenceText(kind models.EntityKind, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return txerror.ErrFormClosed
	}

	var ref models.Reference
	if u := models.Unresolved(text); u != nil {
		ref = u
		parentID := models.ID("")
		if kind.Scoped() {
			parentID = models.IDOf(c.draft.Category)
		}
		if !kind.Scoped() || parentID != "" {
			if e, ok := c.deps.Resolver.Lookup(kind, u.Label(), parentID); ok {
				ref = models.Resolved(e)
			}
		}
	}
	c.draft.SetReference(kind, ref)
	if kind == models.KindCategory {
		c.draft.Subcategory = nil
	}
	return nil
}

// Submit resolves the draft's references, builds the payload for the flow's
// mode and writes it. References are resolved in the order category, vendor,
// account, subcategory; the first failure aborts without rolling back entities
// already created. On success the form is closed.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return txerror.ErrFormClosed
	}
	if c.submitting {
		c.mu.Unlock()
		return txerror.ErrSubmitInProgress
	}
	c.submitting = true
	draft := c.draft.Clone()
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.submitting = false
		c.mu.Unlock()
	}()

	resolved, err := c.resolveReferences(ctx, draft)
	c.writeBack(resolved)
	if err != nil {
		c.logger.WithError(err).Warn("Submit aborted")
		return err
	}

	p, err := c.deps.Builder.Build(resolved, c.mode, c.sess.UserID)
	if err != nil {
		return &txerror.SubmitError{Stage: txerror.StageBuild, Err: err}
	}

	if c.mode == payload.ModeUpdate {
		err = c.deps.Writer.UpdateTransaction(ctx, c.sess, p)
	} else {
		err = c.deps.Writer.CreateTransaction(ctx, c.sess, p)
	}
	if err != nil {
		c.logger.WithError(err).Warn("Transaction write failed")
		return &txerror.SubmitError{Stage: txerror.StageWrite, Err: err}
	}

	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.logger.Info("Transaction submitted",
		logging.F(logging.FieldTransactionID, resolved.TransactionID.String()))
	return nil
}

var submitStages = []struct {
	kind  models.EntityKind
	stage string
}{
	{models.KindCategory, txerror.StageCategory},
	{models.KindVendor, txerror.StageVendor},
	{models.KindAccount, txerror.StageAccount},
	{models.KindSubcategory, txerror.StageSubcategory},
}

// resolveReferences returns draft with every reference resolved, as far as it
// got before the first failure.
func (c *Controller) resolveReferences(ctx context.Context, draft models.Draft) (models.Draft, error) {
	for _, s := range submitStages {
		ref := draft.Reference(s.kind)
		if ref == nil {
			continue
		}

		var parentID models.ID
		if s.kind.Scoped() {
			parentID = models.IDOf(draft.Category)
			if parentID == "" {
				continue
			}
		}
		if e, ok := models.EntityOf(ref); ok && (!s.kind.Scoped() || e.ParentID == parentID) {
			continue
		}

		e, err := c.deps.Resolver.Resolve(ctx, c.sess, s.kind, ref.Label(), parentID)
		switch {
		case errors.Is(err, txerror.ErrEmptyLabel):
			draft.SetReference(s.kind, nil)
		case err != nil:
			return draft, &txerror.SubmitError{Stage: s.stage, Err: err}
		default:
			draft.SetReference(s.kind, models.Resolved(e))
		}
	}
	return draft, nil
}

// writeBack stores resolved references in the live draft, leaving fields the
// user changed meanwhile alone.
func (c *Controller) writeBack(resolved models.Draft) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	for _, kind := range models.AllKinds {
		current := c.draft.Reference(kind)
		next := resolved.Reference(kind)
		if models.LabelOf(current) == models.LabelOf(next) {
			c.draft.SetReference(kind, next)
		}
	}
}

// ScanReceipt reads file with the extractor and merges the result into the
// draft as it is when extraction completes. The file is attached to the draft.
// If the form was closed meanwhile the result is discarded.
func (c *Controller) ScanReceipt(ctx context.Context, file models.ReceiptFile) (*receipt.MergeReport, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, txerror.ErrFormClosed
	}
	base := c.draft.Clone()
	c.mu.Unlock()

	ex, err := c.deps.Extractor.Extract(ctx, c.sess, file)
	if err != nil {
		c.logger.WithError(err).Warn("Receipt extraction failed", logging.F(logging.FieldFile, file.Name))
		return nil, &txerror.ExtractionError{File: file.Name, Err: err}
	}

	patch, report := c.deps.Merger.Prepare(ctx, c.sess, base, ex)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		c.logger.Debug("Discarding receipt scan for closed form")
		return report, txerror.ErrFormClosed
	}
	c.draft = patch.Apply(c.draft)
	attached := file
	c.draft.Receipt = &attached
	return report, nil
}

// Rename relabels an entity and refreshes every draft field pointing at it.
func (c *Controller) Rename(ctx context.Context, kind models.EntityKind, id models.ID, label string) (models.ReferenceEntity, error) {
	if c.Closed() {
		return models.ReferenceEntity{}, txerror.ErrFormClosed
	}
	e, err := c.deps.Resolver.Rename(ctx, c.sess, kind, id, label)
	if err != nil {
		return models.ReferenceEntity{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := models.EntityOf(c.draft.Reference(kind)); ok && cur.ID == e.ID {
		c.draft.SetReference(kind, models.Resolved(e))
	}
	return e, nil
}
