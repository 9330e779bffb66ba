// Package resolver maps free-text labels onto reference entities (categories,
// subcategories, vendors, accounts), creating missing entities on the backend.
package resolver

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"softetsolutions/mattax/internal/logging"
	"softetsolutions/mattax/internal/models"
	"softetsolutions/mattax/internal/txerror"

	"golang.org/x/sync/singleflight"
)

// Store is the backend surface the resolver needs.
type Store interface {
	ListEntities(ctx context.Context, sess models.Session, kind models.EntityKind, parentID models.ID) ([]models.ReferenceEntity, error)
	CreateEntity(ctx context.Context, sess models.Session, kind models.EntityKind, label string, parentID models.ID) (models.ReferenceEntity, error)
	RenameEntity(ctx context.Context, sess models.Session, kind models.EntityKind, id models.ID, label string, parentID models.ID) error
}

// scope identifies one collection: a flat kind, or the subcategories of one category.
type scope struct {
	kind   models.EntityKind
	parent models.ID
}

func scopeOf(kind models.EntityKind, parentID models.ID) scope {
	if !kind.Scoped() {
		parentID = ""
	}
	return scope{kind: kind, parent: parentID}
}

func (s scope) String() string {
	if s.parent == "" {
		return string(s.kind)
	}
	return string(s.kind) + "/" + string(s.parent)
}

type collection struct {
	loaded   bool
	entities []models.ReferenceEntity
}

// Resolver caches the session's entity collections. Collections only grow;
// renames update entries in place. It is safe for concurrent use.
type Resolver struct {
	store  Store
	logger logging.Logger

	mu     sync.RWMutex
	scopes map[scope]*collection
	group  singleflight.Group
}

// New creates a Resolver backed by store.
func New(store Store, logger logging.Logger) *Resolver {
	return &Resolver{
		store:  store,
		logger: logging.OrDefault(logger),
		scopes: make(map[scope]*collection),
	}
}

// Reset drops every cached collection, for use on session change.
func (r *Resolver) Reset() {
	r.mu.Lock()
	r.scopes = make(map[scope]*collection)
	r.mu.Unlock()
}

// Load fetches the category, vendor and account collections and the
// subcategories of every category. A failing subcategory list is logged and
// left to be loaded on first use.
func (r *Resolver) Load(ctx context.Context, sess models.Session) error {
	for _, kind := range []models.EntityKind{models.KindCategory, models.KindVendor, models.KindAccount} {
		if err := r.load(ctx, sess, scopeOf(kind, "")); err != nil {
			return fmt.Errorf("failed to load %s entities: %w", kind, err)
		}
	}
	for _, c := range r.Entities(models.KindCategory, "") {
		if err := r.load(ctx, sess, scopeOf(models.KindSubcategory, c.ID)); err != nil {
			r.logger.WithError(err).Warn("Failed to load subcategories",
				logging.F(logging.FieldParentID, c.ID.String()))
		}
	}
	return nil
}

// load lists the scope from the backend unless it is already loaded.
func (r *Resolver) load(ctx context.Context, sess models.Session, s scope) error {
	if r.isLoaded(s) {
		return nil
	}
	_, err, _ := r.group.Do("load:"+s.String(), func() (interface{}, error) {
		if r.isLoaded(s) {
			return nil, nil
		}
		entities, err := r.store.ListEntities(ctx, sess, s.kind, s.parent)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		c := r.collection(s)
		if !c.loaded {
			c.entities = append(entities, c.entities...)
			c.loaded = true
		}
		r.logger.Debug("Loaded entities",
			logging.F(logging.FieldKind, string(s.kind)),
			logging.F(logging.FieldParentID, s.parent.String()),
			logging.F(logging.FieldCount, len(c.entities)))
		return nil, nil
	})
	return err
}

func (r *Resolver) isLoaded(s scope) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.scopes[s]
	return ok && c.loaded
}

// collection returns the collection for s, creating it. Callers hold r.mu.
func (r *Resolver) collection(s scope) *collection {
	c, ok := r.scopes[s]
	if !ok {
		c = &collection{}
		r.scopes[s] = c
	}
	return c
}

// Resolve returns the entity of kind labelled label, creating it on the backend
// when the cached collection has no exact, case-sensitive match. parentID is the
// category id and is required for subcategories only.
func (r *Resolver) Resolve(ctx context.Context, sess models.Session, kind models.EntityKind, label string, parentID models.ID) (models.ReferenceEntity, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return models.ReferenceEntity{}, txerror.ErrEmptyLabel
	}
	if kind.Scoped() && parentID == "" {
		return models.ReferenceEntity{}, txerror.ErrMissingParent
	}
	s := scopeOf(kind, parentID)
	if e, ok := r.find(s, label); ok {
		return e, nil
	}

	v, err, _ := r.group.Do("resolve:"+s.String()+"\x00"+label, func() (interface{}, error) {
		if err := r.load(ctx, sess, s); err != nil {
			return nil, err
		}
		if e, ok := r.find(s, label); ok {
			return e, nil
		}
		e, err := r.store.CreateEntity(ctx, sess, kind, label, s.parent)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		c := r.collection(s)
		c.entities = append(c.entities, e)
		r.mu.Unlock()

		r.logger.Info("Created entity",
			logging.F(logging.FieldKind, string(kind)),
			logging.F(logging.FieldLabel, label),
			logging.F(logging.FieldEntityID, e.ID.String()))
		return e, nil
	})
	if err != nil {
		return models.ReferenceEntity{}, &txerror.EntityCreationError{Kind: string(kind), Label: label, Err: err}
	}
	return v.(models.ReferenceEntity), nil
}

func (r *Resolver) find(s scope, label string) (models.ReferenceEntity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.scopes[s]
	if !ok {
		return models.ReferenceEntity{}, false
	}
	for _, e := range c.entities {
		if e.Label == label {
			return e, true
		}
	}
	return models.ReferenceEntity{}, false
}

// Lookup returns the cached entity labelled label without any network call.
func (r *Resolver) Lookup(kind models.EntityKind, label string, parentID models.ID) (models.ReferenceEntity, bool) {
	return r.find(scopeOf(kind, parentID), strings.TrimSpace(label))
}

// ByID returns the cached entity of kind with id, searching every scope of kind.
func (r *Resolver) ByID(kind models.EntityKind, id models.ID) (models.ReferenceEntity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for s, c := range r.scopes {
		if s.kind != kind {
			continue
		}
		for _, e := range c.entities {
			if e.ID == id {
				return e, true
			}
		}
	}
	return models.ReferenceEntity{}, false
}

// Entities returns a copy of the cached collection.
func (r *Resolver) Entities(kind models.EntityKind, parentID models.ID) []models.ReferenceEntity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.scopes[scopeOf(kind, parentID)]
	if !ok {
		return nil
	}
	return append([]models.ReferenceEntity(nil), c.entities...)
}

// Rename changes the label of an existing entity on the backend and then in the
// cache. It never creates entities and rejects labels already used by another
// entity of the same collection.
func (r *Resolver) Rename(ctx context.Context, sess models.Session, kind models.EntityKind, id models.ID, newLabel string) (models.ReferenceEntity, error) {
	newLabel = strings.TrimSpace(newLabel)
	fail := func(err error) (models.ReferenceEntity, error) {
		return models.ReferenceEntity{}, &txerror.EntityRenameError{Kind: string(kind), ID: id.String(), Label: newLabel, Err: err}
	}
	if newLabel == "" {
		return fail(txerror.ErrEmptyLabel)
	}

	current, ok := r.ByID(kind, id)
	if !ok {
		return fail(txerror.ErrEntityNotFound)
	}
	if current.Label == newLabel {
		return current, nil
	}
	s := scopeOf(kind, current.ParentID)
	if other, taken := r.find(s, newLabel); taken && other.ID != id {
		return fail(txerror.ErrDuplicateLabel)
	}

	if err := r.store.RenameEntity(ctx, sess, kind, id, newLabel, current.ParentID); err != nil {
		return fail(err)
	}

	r.mu.Lock()
	if c, ok := r.scopes[s]; ok {
		for i := range c.entities {
			if c.entities[i].ID == id {
				c.entities[i].Label = newLabel
				current = c.entities[i]
				break
			}
		}
	}
	r.mu.Unlock()

	r.logger.Info("Renamed entity",
		logging.F(logging.FieldKind, string(kind)),
		logging.F(logging.FieldEntityID, id.String()),
		logging.F(logging.FieldLabel, newLabel))
	return current, nil
}
