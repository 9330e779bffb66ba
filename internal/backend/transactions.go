package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"softetsolutions/mattax/internal/models"
	"softetsolutions/mattax/internal/payload"
)

// transactionPage accepts both answers of the list routes: an envelope with
// totals or a bare array.
type transactionPage struct {
	Transactions []models.Transaction
	TotalItems   int
	TotalPages   int
	bare         bool
}

func (p *transactionPage) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		p.bare = true
		return json.Unmarshal(data, &p.Transactions)
	}
	var env struct {
		Transactions []models.Transaction `json:"transactions"`
		TotalItems   int                  `json:"totalItems"`
		TotalPages   int                  `json:"totalPages"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	p.Transactions = env.Transactions
	p.TotalItems = env.TotalItems
	p.TotalPages = env.TotalPages
	return nil
}

func (c *Client) listPage(ctx context.Context, sess models.Session, op, path string, page, limit int) (models.FeedPage, error) {
	q := userQuery(sess, "page", strconv.Itoa(page), "limit", strconv.Itoa(limit))
	var p transactionPage
	if err := c.do(ctx, sess, request{op: op, method: http.MethodGet, path: path, query: q}, &p); err != nil {
		return models.FeedPage{}, err
	}
	out := models.FeedPage{
		Items:      p.Transactions,
		PageNumber: page,
		TotalItems: p.TotalItems,
		TotalPages: p.TotalPages,
	}
	if p.bare {
		out.TotalItems = -1
		out.TotalPages = -1
	}
	return out, nil
}

// ListTransactions fetches one page of the user's live transactions. When the
// backend answers with a bare array the totals are reported as -1.
func (c *Client) ListTransactions(ctx context.Context, sess models.Session, page, limit int) (models.FeedPage, error) {
	return c.listPage(ctx, sess, "list transactions", "/transaction", page, limit)
}

// ListDeletedTransactions fetches one page of soft-deleted transactions.
func (c *Client) ListDeletedTransactions(ctx context.Context, sess models.Session, page, limit int) (models.FeedPage, error) {
	return c.listPage(ctx, sess, "list deleted transactions", "/transaction/deleted", page, limit)
}

func (c *Client) writeTransaction(ctx context.Context, sess models.Session, op, method, path string, p *payload.Payload) error {
	var body bytes.Buffer
	contentType, err := p.Encode(&body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req := request{
		op:          op,
		method:      method,
		path:        path,
		query:       userQuery(sess),
		body:        &body,
		contentType: contentType,
	}
	return c.do(ctx, sess, req, nil)
}

// CreateTransaction writes a create payload.
func (c *Client) CreateTransaction(ctx context.Context, sess models.Session, p *payload.Payload) error {
	return c.writeTransaction(ctx, sess, "create transaction", http.MethodPost, "/transaction", p)
}

// UpdateTransaction writes an update payload.
func (c *Client) UpdateTransaction(ctx context.Context, sess models.Session, p *payload.Payload) error {
	return c.writeTransaction(ctx, sess, "update transaction", http.MethodPut, "/transaction/update", p)
}

func (c *Client) transactionAction(ctx context.Context, sess models.Session, op, method, path string, id models.ID) error {
	if id == "" {
		return fmt.Errorf("%s: transaction id is required", op)
	}
	q := userQuery(sess, "transactionId", id.String())
	return c.do(ctx, sess, request{op: op, method: method, path: path, query: q}, nil)
}

// DeleteTransaction moves a transaction to the bin.
func (c *Client) DeleteTransaction(ctx context.Context, sess models.Session, id models.ID) error {
	return c.transactionAction(ctx, sess, "delete transaction", http.MethodDelete, "/transaction", id)
}

// RestoreTransaction brings a transaction back from the bin.
func (c *Client) RestoreTransaction(ctx context.Context, sess models.Session, id models.ID) error {
	return c.transactionAction(ctx, sess, "restore transaction", http.MethodPatch, "/transaction/restore", id)
}

// PurgeTransaction deletes a binned transaction permanently.
func (c *Client) PurgeTransaction(ctx context.Context, sess models.Session, id models.ID) error {
	return c.transactionAction(ctx, sess, "purge transaction", http.MethodDelete, "/transaction/deletePermanently", id)
}

// TransactionLogs returns the edit history of a transaction.
func (c *Client) TransactionLogs(ctx context.Context, sess models.Session, id models.ID) ([]models.TransactionLogEntry, error) {
	if id == "" {
		return nil, fmt.Errorf("transaction logs: transaction id is required")
	}
	q := userQuery(sess, "transactionId", id.String())
	var out struct {
		Logs []models.TransactionLogEntry `json:"logs"`
	}
	if err := c.do(ctx, sess, request{op: "transaction logs", method: http.MethodGet, path: "/transaction/logs", query: q}, &out); err != nil {
		return nil, err
	}
	return out.Logs, nil
}
