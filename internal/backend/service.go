package backend

import (
	"context"

	"softetsolutions/mattax/internal/models"
	"softetsolutions/mattax/internal/payload"
)

// Service is the full set of backend operations used by the engine and the CLI.
type Service interface {
	ListEntities(ctx context.Context, sess models.Session, kind models.EntityKind, parentID models.ID) ([]models.ReferenceEntity, error)
	CreateEntity(ctx context.Context, sess models.Session, kind models.EntityKind, label string, parentID models.ID) (models.ReferenceEntity, error)
	RenameEntity(ctx context.Context, sess models.Session, kind models.EntityKind, id models.ID, label string, parentID models.ID) error

	ListTransactions(ctx context.Context, sess models.Session, page, limit int) (models.FeedPage, error)
	ListDeletedTransactions(ctx context.Context, sess models.Session, page, limit int) (models.FeedPage, error)
	CreateTransaction(ctx context.Context, sess models.Session, p *payload.Payload) error
	UpdateTransaction(ctx context.Context, sess models.Session, p *payload.Payload) error
	DeleteTransaction(ctx context.Context, sess models.Session, id models.ID) error
	RestoreTransaction(ctx context.Context, sess models.Session, id models.ID) error
	PurgeTransaction(ctx context.Context, sess models.Session, id models.ID) error
	TransactionLogs(ctx context.Context, sess models.Session, id models.ID) ([]models.TransactionLogEntry, error)

	Extract(ctx context.Context, sess models.Session, file models.ReceiptFile) (models.ReceiptExtraction, error)
	ReceiptImage(ctx context.Context, sess models.Session, id models.ID) (models.ReceiptImage, error)
}

var (
	_ Service = (*Client)(nil)
	_ Service = (*MockService)(nil)
)
