package backend

import (
	"context"
	"fmt"
	"sync"

	"softetsolutions/mattax/internal/models"
	"softetsolutions/mattax/internal/payload"
	"softetsolutions/mattax/internal/txerror"
)

// Operation names counted by MockService.
const (
	OpListEntities     = "list_entities"
	OpCreateEntity     = "create_entity"
	OpRenameEntity     = "rename_entity"
	OpListTransactions = "list_transactions"
	OpListDeleted      = "list_deleted"
	OpCreate           = "create_transaction"
	OpUpdate           = "update_transaction"
	OpDelete           = "delete_transaction"
	OpRestore          = "restore_transaction"
	OpPurge            = "purge_transaction"
	OpLogs             = "transaction_logs"
	OpExtract          = "extract"
	OpReceiptImage     = "receipt_image"
)

// MockService is an in-memory backend for testing. It implements the same
// methods as Client. Entities are assigned sequential ids on creation.
type MockService struct {
	mu sync.Mutex

	Entities     []models.ReferenceEntity
	Transactions []models.Transaction
	Deleted      []models.Transaction
	Logs         map[models.ID][]models.TransactionLogEntry
	Receipts     map[models.ID]models.ReceiptImage
	Extraction   models.ReceiptExtraction

	// Error injection. ListEntitiesErrors and CreateErrors are keyed by
	// parent id and by label respectively.
	ListEntitiesError     error
	ListEntitiesErrors    map[models.ID]error
	CreateError           error
	CreateErrors          map[string]error
	RenameError           error
	ListTransactionsError error
	WriteError            error
	ExtractError          error

	// Hooks run before the operation and may block; a returned error fails it.
	ListHook    func(ctx context.Context, page int) error
	CreateHook  func(ctx context.Context, kind models.EntityKind, label string) error
	ExtractHook func(ctx context.Context) error

	// Written records every transaction payload accepted.
	Written []*payload.Payload

	calls  map[string]int
	nextID int
}

// NewMockService returns an empty MockService.
func NewMockService() *MockService {
	return &MockService{}
}

// Count returns how many times op was called.
func (m *MockService) Count(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// AddEntity seeds an entity and returns it with its assigned id.
func (m *MockService) AddEntity(kind models.EntityKind, label string, parentID models.ID) models.ReferenceEntity {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := models.ReferenceEntity{ID: m.newID(kind), Kind: kind, Label: label, ParentID: parentID}
	m.Entities = append(m.Entities, e)
	return e
}

// EntitiesOf returns the stored entities of kind.
func (m *MockService) EntitiesOf(kind models.EntityKind) []models.ReferenceEntity {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ReferenceEntity
	for _, e := range m.Entities {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Payloads returns a copy of the written payloads.
func (m *MockService) Payloads() []*payload.Payload {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*payload.Payload(nil), m.Written...)
}

func (m *MockService) count(op string) {
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[op]++
}

func (m *MockService) newID(kind models.EntityKind) models.ID {
	m.nextID++
	return models.ID(fmt.Sprintf("%s-%d", kind, m.nextID))
}

// ListEntities returns seeded and created entities of kind.
func (m *MockService) ListEntities(_ context.Context, _ models.Session, kind models.EntityKind, parentID models.ID) ([]models.ReferenceEntity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count(OpListEntities)
	if m.ListEntitiesError != nil {
		return nil, m.ListEntitiesError
	}
	if err := m.ListEntitiesErrors[parentID]; err != nil && kind.Scoped() {
		return nil, err
	}
	out := []models.ReferenceEntity{}
	for _, e := range m.Entities {
		if e.Kind == kind && (!kind.Scoped() || e.ParentID == parentID) {
			out = append(out, e)
		}
	}
	return out, nil
}

// CreateEntity stores a new entity.
func (m *MockService) CreateEntity(ctx context.Context, _ models.Session, kind models.EntityKind, label string, parentID models.ID) (models.ReferenceEntity, error) {
	m.mu.Lock()
	hook := m.CreateHook
	m.count(OpCreateEntity)
	m.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, kind, label); err != nil {
			return models.ReferenceEntity{}, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateError != nil {
		return models.ReferenceEntity{}, m.CreateError
	}
	if err := m.CreateErrors[label]; err != nil {
		return models.ReferenceEntity{}, err
	}
	e := models.ReferenceEntity{ID: m.newID(kind), Kind: kind, Label: label}
	if kind.Scoped() {
		e.ParentID = parentID
	}
	m.Entities = append(m.Entities, e)
	return e, nil
}

// RenameEntity relabels a stored entity.
func (m *MockService) RenameEntity(_ context.Context, _ models.Session, kind models.EntityKind, id models.ID, label string, _ models.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count(OpRenameEntity)
	if m.RenameError != nil {
		return m.RenameError
	}
	for i, e := range m.Entities {
		if e.Kind == kind && e.ID == id {
			m.Entities[i].Label = label
			return nil
		}
	}
	return &txerror.APIError{Op: "rename " + string(kind), StatusCode: 404, Message: "not found"}
}

func (m *MockService) page(ctx context.Context, op string, src []models.Transaction, page, limit int) (models.FeedPage, error) {
	m.mu.Lock()
	hook := m.ListHook
	m.count(op)
	m.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, page); err != nil {
			return models.FeedPage{}, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListTransactionsError != nil {
		return models.FeedPage{}, m.ListTransactionsError
	}
	start := (page - 1) * limit
	if start < 0 || start > len(src) {
		start = len(src)
	}
	end := start + limit
	if end > len(src) {
		end = len(src)
	}
	totalPages := (len(src) + limit - 1) / limit
	return models.FeedPage{
		Items:      append([]models.Transaction(nil), src[start:end]...),
		PageNumber: page,
		TotalItems: len(src),
		TotalPages: totalPages,
	}, nil
}

// ListTransactions pages over Transactions.
func (m *MockService) ListTransactions(ctx context.Context, _ models.Session, page, limit int) (models.FeedPage, error) {
	m.mu.Lock()
	src := m.Transactions
	m.mu.Unlock()
	return m.page(ctx, OpListTransactions, src, page, limit)
}

// ListDeletedTransactions pages over Deleted.
func (m *MockService) ListDeletedTransactions(ctx context.Context, _ models.Session, page, limit int) (models.FeedPage, error) {
	m.mu.Lock()
	src := m.Deleted
	m.mu.Unlock()
	return m.page(ctx, OpListDeleted, src, page, limit)
}

func (m *MockService) write(op string, p *payload.Payload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count(op)
	if m.WriteError != nil {
		return m.WriteError
	}
	m.Written = append(m.Written, p)
	return nil
}

// CreateTransaction records p.
func (m *MockService) CreateTransaction(_ context.Context, _ models.Session, p *payload.Payload) error {
	return m.write(OpCreate, p)
}

// UpdateTransaction records p.
func (m *MockService) UpdateTransaction(_ context.Context, _ models.Session, p *payload.Payload) error {
	return m.write(OpUpdate, p)
}

func (m *MockService) move(op string, id models.ID, from, to *[]models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count(op)
	if m.WriteError != nil {
		return m.WriteError
	}
	for i, tx := range *from {
		if tx.ID != id {
			continue
		}
		*from = append((*from)[:i:i], (*from)[i+1:]...)
		if to != nil {
			*to = append(*to, tx)
		}
		return nil
	}
	return &txerror.APIError{Op: op, StatusCode: 404, Message: "transaction not found"}
}

// DeleteTransaction moves a transaction to Deleted.
func (m *MockService) DeleteTransaction(_ context.Context, _ models.Session, id models.ID) error {
	return m.move(OpDelete, id, &m.Transactions, &m.Deleted)
}

// RestoreTransaction moves a transaction back from Deleted.
func (m *MockService) RestoreTransaction(_ context.Context, _ models.Session, id models.ID) error {
	return m.move(OpRestore, id, &m.Deleted, &m.Transactions)
}

// PurgeTransaction drops a transaction from Deleted.
func (m *MockService) PurgeTransaction(_ context.Context, _ models.Session, id models.ID) error {
	return m.move(OpPurge, id, &m.Deleted, nil)
}

// TransactionLogs returns the seeded logs for id.
func (m *MockService) TransactionLogs(_ context.Context, _ models.Session, id models.ID) ([]models.TransactionLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count(OpLogs)
	return m.Logs[id], nil
}

// Extract returns Extraction.
func (m *MockService) Extract(ctx context.Context, _ models.Session, _ models.ReceiptFile) (models.ReceiptExtraction, error) {
	m.mu.Lock()
	hook := m.ExtractHook
	m.count(OpExtract)
	m.mu.Unlock()

	if hook != nil {
		if err := hook(ctx); err != nil {
			return models.ReceiptExtraction{}, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ExtractError != nil {
		return models.ReceiptExtraction{}, m.ExtractError
	}
	return m.Extraction, nil
}

// ReceiptImage returns the seeded image for id.
func (m *MockService) ReceiptImage(_ context.Context, _ models.Session, id models.ID) (models.ReceiptImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count(OpReceiptImage)
	img, ok := m.Receipts[id]
	if !ok {
		return models.ReceiptImage{}, &txerror.APIError{Op: "receipt image", StatusCode: 404}
	}
	return img, nil
}
