// Package payload assembles the multipart body written to the backend when a
// transaction is created or updated.
package payload

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strings"

	"softetsolutions/mattax/internal/models"
)

// Mode selects the field naming scheme of the payload.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeUpdate Mode = "update"
)

// FilePart is the binary part carrying the receipt image.
const FilePart = "file"

// Payload is a built transaction write, ready to be encoded.
type Payload struct {
	Mode   Mode
	Fields map[string]string
	File   *models.ReceiptFile
}

// Get returns a field value and whether it was set.
func (p *Payload) Get(key string) (string, bool) {
	v, ok := p.Fields[key]
	return v, ok
}

// Keys returns the field names in sorted order.
func (p *Payload) Keys() []string {
	keys := make([]string, 0, len(p.Fields))
	for k := range p.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Encode writes the payload as multipart/form-data and returns the content type
// including the boundary. Fields are written in sorted order, then the file.
func (p *Payload) Encode(w io.Writer) (string, error) {
	mw := multipart.NewWriter(w)
	for _, k := range p.Keys() {
		if err := mw.WriteField(k, p.Fields[k]); err != nil {
			return "", fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}
	if p.File != nil {
		if err := writeFile(mw, p.File); err != nil {
			return "", err
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart body: %w", err)
	}
	return mw.FormDataContentType(), nil
}

// EncodeFile writes a multipart body with only the file part.
func EncodeFile(w io.Writer, f *models.ReceiptFile) (string, error) {
	p := &Payload{File: f}
	return p.Encode(w)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeFile(mw *multipart.Writer, f *models.ReceiptFile) error {
	mimeType := f.MIMEType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		FilePart, quoteEscaper.Replace(f.Name)))
	h.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(f.Data); err != nil {
		return fmt.Errorf("failed to write file part: %w", err)
	}
	return nil
}
