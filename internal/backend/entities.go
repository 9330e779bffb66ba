package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"softetsolutions/mattax/internal/models"
)

// entityRoute describes how one entity kind is addressed on the backend.
type entityRoute struct {
	base     string
	labelKey string
	scoped   bool
}

var entityRoutes = map[models.EntityKind]entityRoute{
	models.KindCategory:    {base: "/category", labelKey: "name"},
	models.KindVendor:      {base: "/vendor", labelKey: "name"},
	models.KindAccount:     {base: "/accountNo", labelKey: "accountNo"},
	models.KindSubcategory: {base: "/subcategory", labelKey: "name", scoped: true},
}

func routeFor(kind models.EntityKind) (entityRoute, error) {
	r, ok := entityRoutes[kind]
	if !ok {
		return entityRoute{}, fmt.Errorf("unknown entity kind %q", kind)
	}
	return r, nil
}

// wireEntity is the backend representation of all entity kinds.
type wireEntity struct {
	ID         models.ID          `json:"id"`
	Name       models.LooseString `json:"name"`
	AccountNo  models.LooseString `json:"accountNo"`
	CategoryID models.ID          `json:"categoryId"`
}

func (w wireEntity) toModel(kind models.EntityKind, r entityRoute, parentID models.ID) models.ReferenceEntity {
	label := string(w.Name)
	if r.labelKey == "accountNo" {
		label = string(w.AccountNo)
	}
	e := models.ReferenceEntity{ID: w.ID, Kind: kind, Label: label}
	if r.scoped {
		e.ParentID = w.CategoryID
		if e.ParentID == "" {
			e.ParentID = parentID
		}
	}
	return e
}

// ListEntities returns the user's entities of kind. Subcategories are listed per
// parent category.
func (c *Client) ListEntities(ctx context.Context, sess models.Session, kind models.EntityKind, parentID models.ID) ([]models.ReferenceEntity, error) {
	r, err := routeFor(kind)
	if err != nil {
		return nil, err
	}

	req := request{op: "list " + string(kind), method: http.MethodGet}
	if r.scoped {
		if parentID == "" {
			return nil, fmt.Errorf("listing %s requires a category id", kind)
		}
		req.path = r.base + "/getall/" + url.PathEscape(parentID.String())
	} else {
		req.path = r.base + "/gets"
		req.query = userQuery(sess)
	}

	var wire []wireEntity
	if err := c.do(ctx, sess, req, &wire); err != nil {
		return nil, err
	}
	out := make([]models.ReferenceEntity, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.toModel(kind, r, parentID))
	}
	return out, nil
}

// CreateEntity creates an entity of kind with label and returns it with its
// backend-assigned id.
func (c *Client) CreateEntity(ctx context.Context, sess models.Session, kind models.EntityKind, label string, parentID models.ID) (models.ReferenceEntity, error) {
	r, err := routeFor(kind)
	if err != nil {
		return models.ReferenceEntity{}, err
	}

	body := map[string]string{r.labelKey: label}
	if r.scoped {
		body["categoryId"] = parentID.String()
	} else {
		body["userId"] = sess.UserID
	}
	req, err := c.jsonRequest("create "+string(kind), http.MethodPost, r.base+"/create", nil, body)
	if err != nil {
		return models.ReferenceEntity{}, err
	}

	var w wireEntity
	if err := c.do(ctx, sess, req, &w); err != nil {
		return models.ReferenceEntity{}, err
	}
	if w.ID == "" {
		return models.ReferenceEntity{}, fmt.Errorf("create %s: backend returned no id", kind)
	}
	e := w.toModel(kind, r, parentID)
	if e.Label == "" {
		e.Label = label
	}
	return e, nil
}

// RenameEntity changes the label of an existing entity.
func (c *Client) RenameEntity(ctx context.Context, sess models.Session, kind models.EntityKind, id models.ID, label string, parentID models.ID) error {
	r, err := routeFor(kind)
	if err != nil {
		return err
	}

	body := map[string]string{r.labelKey: label}
	if r.scoped {
		body["categoryId"] = parentID.String()
	}
	req, err := c.jsonRequest("rename "+string(kind), http.MethodPut, r.base+"/update/"+url.PathEscape(id.String()), nil, body)
	if err != nil {
		return err
	}
	return c.do(ctx, sess, req, nil)
}
