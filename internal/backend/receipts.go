package backend

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"

	"softetsolutions/mattax/internal/models"
	"softetsolutions/mattax/internal/payload"
)

// Extract uploads a receipt image to the OCR route and returns the fields it
// recognised.
func (c *Client) Extract(ctx context.Context, sess models.Session, file models.ReceiptFile) (models.ReceiptExtraction, error) {
	var body bytes.Buffer
	contentType, err := payload.EncodeFile(&body, &file)
	if err != nil {
		return models.ReceiptExtraction{}, fmt.Errorf("extract receipt: %w", err)
	}
	req := request{
		op:          "extract receipt",
		method:      http.MethodPost,
		path:        "/receipt/extraction",
		body:        &body,
		contentType: contentType,
	}
	var out models.ReceiptExtraction
	if err := c.do(ctx, sess, req, &out); err != nil {
		return models.ReceiptExtraction{}, err
	}
	return out, nil
}

// ReceiptImage fetches a stored receipt image by id.
func (c *Client) ReceiptImage(ctx context.Context, sess models.Session, id models.ID) (models.ReceiptImage, error) {
	if id == "" {
		return models.ReceiptImage{}, fmt.Errorf("receipt image: receipt id is required")
	}
	req := request{op: "receipt image", method: http.MethodGet, path: "/receipt/" + url.PathEscape(id.String())}
	var out models.ReceiptImage
	if err := c.do(ctx, sess, req, &out); err != nil {
		return models.ReceiptImage{}, err
	}
	return out, nil
}
