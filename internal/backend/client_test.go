package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"softetsolutions/mattax/internal/logging"
	"softetsolutions/mattax/internal/models"
	"softetsolutions/mattax/internal/payload"
	"softetsolutions/mattax/internal/txerror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSession = models.Session{Token: "tok", UserID: "u1"}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL+"/api", 5*time.Second, logging.NewMockLogger())
	require.NoError(t, err)
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestNewClientRejectsRelativeURL(t *testing.T) {
	_, err := NewClient("localhost:8080", time.Second, nil)
	assert.Error(t, err)
}

func TestHeaders(t *testing.T) {
	var auth, requestID string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		requestID = r.Header.Get(HeaderRequestID)
		writeJSON(t, w, []any{})
	})

	_, err := c.ListEntities(context.Background(), testSession, models.KindCategory, "")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", auth)
	assert.Len(t, requestID, 36)

	_, err = c.ListEntities(context.Background(), models.Session{UserID: "u1"}, models.KindCategory, "")
	require.NoError(t, err)
	assert.Empty(t, auth)
}

func TestListEntitiesRoutes(t *testing.T) {
	tests := []struct {
		kind      models.EntityKind
		parentID  models.ID
		wantPath  string
		wantQuery string
		response  string
		want      []models.ReferenceEntity
	}{
		{
			kind: models.KindCategory, wantPath: "/api/category/gets", wantQuery: "userId=u1",
			response: `[{"id": 1, "name": "Food"}]`,
			want:     []models.ReferenceEntity{{ID: "1", Kind: models.KindCategory, Label: "Food"}},
		},
		{
			kind: models.KindVendor, wantPath: "/api/vendor/gets", wantQuery: "userId=u1",
			response: `[{"id": "v1", "name": "Cafe"}]`,
			want:     []models.ReferenceEntity{{ID: "v1", Kind: models.KindVendor, Label: "Cafe"}},
		},
		{
			kind: models.KindAccount, wantPath: "/api/accountNo/gets", wantQuery: "userId=u1",
			response: `[{"id": "a1", "accountNo": 12345}]`,
			want:     []models.ReferenceEntity{{ID: "a1", Kind: models.KindAccount, Label: "12345"}},
		},
		{
			kind: models.KindSubcategory, parentID: "c1", wantPath: "/api/subcategory/getall/c1",
			response: `[{"id": "s1", "name": "Lunch"}]`,
			want:     []models.ReferenceEntity{{ID: "s1", Kind: models.KindSubcategory, Label: "Lunch", ParentID: "c1"}},
		},
	}

	for _, tc := range tests {
		t.Run(string(tc.kind), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, tc.wantPath, r.URL.Path)
				assert.Equal(t, tc.wantQuery, r.URL.RawQuery)
				_, _ = io.WriteString(w, tc.response)
			})
			got, err := c.ListEntities(context.Background(), testSession, tc.kind, tc.parentID)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestListSubcategoriesRequiresParent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	_, err := c.ListEntities(context.Background(), testSession, models.KindSubcategory, "")
	assert.Error(t, err)
}

func TestCreateEntityBodies(t *testing.T) {
	tests := []struct {
		kind     models.EntityKind
		parentID models.ID
		wantPath string
		wantBody map[string]string
		response string
	}{
		{models.KindCategory, "", "/api/category/create", map[string]string{"name": "Food", "userId": "u1"}, `{"id": "c9", "name": "Food"}`},
		{models.KindVendor, "", "/api/vendor/create", map[string]string{"name": "Food", "userId": "u1"}, `{"id": "v9", "name": "Food"}`},
		{models.KindAccount, "", "/api/accountNo/create", map[string]string{"accountNo": "Food", "userId": "u1"}, `{"id": "a9", "accountNo": "Food"}`},
		{models.KindSubcategory, "c1", "/api/subcategory/create", map[string]string{"name": "Food", "categoryId": "c1"}, `{"id": "s9"}`},
	}

	for _, tc := range tests {
		t.Run(string(tc.kind), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, tc.wantPath, r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				var body map[string]string
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, tc.wantBody, body)
				_, _ = io.WriteString(w, tc.response)
			})
			e, err := c.CreateEntity(context.Background(), testSession, tc.kind, "Food", tc.parentID)
			require.NoError(t, err)
			assert.NotEmpty(t, e.ID)
			assert.Equal(t, "Food", e.Label)
			assert.Equal(t, tc.parentID, e.ParentID)
		})
	}
}

func TestCreateEntityWithoutID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	})
	_, err := c.CreateEntity(context.Background(), testSession, models.KindVendor, "Cafe", "")
	assert.Error(t, err)
}

func TestRenameEntity(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/subcategory/update/s1", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"name": "Dinner", "categoryId": "c1"}, body)
		writeJSON(t, w, map[string]string{"id": "s1"})
	})
	require.NoError(t, c.RenameEntity(context.Background(), testSession, models.KindSubcategory, "s1", "Dinner", "c1"))
}

func TestAPIErrors(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		wantMessage  string
		unauthorized bool
	}{
		{"json message", http.StatusBadRequest, `{"message": "name taken"}`, "name taken", false},
		{"json error", http.StatusInternalServerError, `{"error": "boom"}`, "boom", false},
		{"plain text", http.StatusBadGateway, " upstream down \n", "upstream down", false},
		{"unauthorized", http.StatusUnauthorized, ``, "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})
			_, err := c.ListEntities(context.Background(), testSession, models.KindVendor, "")
			require.Error(t, err)

			var apiErr *txerror.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tc.status, apiErr.StatusCode)
			assert.Equal(t, tc.wantMessage, apiErr.Message)
			assert.Equal(t, "list vendor", apiErr.Op)
			assert.Equal(t, tc.unauthorized, errors.Is(err, txerror.ErrUnauthorized))
		})
	}
}

func TestListTransactionsShapes(t *testing.T) {
	t.Run("envelope", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/transaction", r.URL.Path)
			assert.Equal(t, "u1", r.URL.Query().Get("userId"))
			assert.Equal(t, "2", r.URL.Query().Get("page"))
			assert.Equal(t, "10", r.URL.Query().Get("limit"))
			_, _ = io.WriteString(w, `{"transactions": [{"id": 1}, {"id": 2}], "totalItems": 12, "totalPages": 2}`)
		})
		page, err := c.ListTransactions(context.Background(), testSession, 2, 10)
		require.NoError(t, err)
		require.Len(t, page.Items, 2)
		assert.Equal(t, models.ID("1"), page.Items[0].ID)
		assert.Equal(t, 12, page.TotalItems)
		assert.Equal(t, 2, page.TotalPages)
		assert.Equal(t, 2, page.PageNumber)
	})

	t.Run("bare array", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/transaction/deleted", r.URL.Path)
			_, _ = io.WriteString(w, `[{"id": "t1", "isDeleted": true}]`)
		})
		page, err := c.ListDeletedTransactions(context.Background(), testSession, 1, 10)
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.True(t, page.Items[0].IsDeleted)
		assert.Equal(t, -1, page.TotalItems)
		assert.Equal(t, -1, page.TotalPages)
	})
}

func TestWriteTransaction(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		call   func(c *Client, p *payload.Payload) error
	}{
		{"create", http.MethodPost, "/api/transaction", func(c *Client, p *payload.Payload) error {
			return c.CreateTransaction(context.Background(), testSession, p)
		}},
		{"update", http.MethodPut, "/api/transaction/update", func(c *Client, p *payload.Payload) error {
			return c.UpdateTransaction(context.Background(), testSession, p)
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tc.method, r.Method)
				assert.Equal(t, tc.path, r.URL.Path)
				assert.Equal(t, "u1", r.URL.Query().Get("userId"))
				require.NoError(t, r.ParseMultipartForm(1<<20))
				assert.Equal(t, "200", r.FormValue("amount"))
				f, hdr, err := r.FormFile("file")
				require.NoError(t, err)
				defer f.Close()
				assert.Equal(t, "r.jpg", hdr.Filename)
				data, _ := io.ReadAll(f)
				assert.Equal(t, "img", string(data))
				w.WriteHeader(http.StatusCreated)
			})
			p := &payload.Payload{
				Mode:   payload.ModeCreate,
				Fields: map[string]string{"amount": "200"},
				File:   &models.ReceiptFile{Name: "r.jpg", MIMEType: "image/jpeg", Data: []byte("img")},
			}
			require.NoError(t, tc.call(c, p))
		})
	}
}

func TestTransactionActions(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		call   func(c *Client) error
	}{
		{"delete", http.MethodDelete, "/api/transaction", func(c *Client) error {
			return c.DeleteTransaction(context.Background(), testSession, "t1")
		}},
		{"restore", http.MethodPatch, "/api/transaction/restore", func(c *Client) error {
			return c.RestoreTransaction(context.Background(), testSession, "t1")
		}},
		{"purge", http.MethodDelete, "/api/transaction/deletePermanently", func(c *Client) error {
			return c.PurgeTransaction(context.Background(), testSession, "t1")
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tc.method, r.Method)
				assert.Equal(t, tc.path, r.URL.Path)
				assert.Equal(t, "u1", r.URL.Query().Get("userId"))
				assert.Equal(t, "t1", r.URL.Query().Get("transactionId"))
				w.WriteHeader(http.StatusNoContent)
			})
			require.NoError(t, tc.call(c))
		})
	}

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	assert.Error(t, c.DeleteTransaction(context.Background(), testSession, ""))
}

func TestTransactionLogs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/transaction/logs", r.URL.Path)
		_, _ = io.WriteString(w, `{"logs": [{"timestamp": "2024-01-01T00:00:00Z", "edited_by": "alice",
			"changes": [{"field_changed": "amount", "new_value": 25}]}]}`)
	})
	logs, err := c.TransactionLogs(context.Background(), testSession, "t1")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "alice", logs[0].EditedBy)
	require.Len(t, logs[0].Changes, 1)
	assert.Equal(t, "amount", logs[0].Changes[0].Field)
	assert.Equal(t, models.LooseString("25"), logs[0].Changes[0].NewValue)
}

func TestExtract(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/receipt/extraction", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "r.png", hdr.Filename)
		_, _ = io.WriteString(w, `{"amount": 12.5, "vendor": "Cafe", "category": "Unknown"}`)
	})
	ex, err := c.Extract(context.Background(), testSession, models.ReceiptFile{Name: "r.png", MIMEType: "image/png", Data: []byte("x")})
	require.NoError(t, err)
	v, ok := ex.Vendor.Value()
	assert.True(t, ok)
	assert.Equal(t, "Cafe", v)
	_, ok = ex.Category.Value()
	assert.False(t, ok)
}

func TestReceiptImage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/receipt/r1", r.URL.Path)
		writeJSON(t, w, map[string]string{"data": "aGVsbG8="})
	})
	img, err := c.ReceiptImage(context.Background(), testSession, "r1")
	require.NoError(t, err)
	data, err := img.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}
