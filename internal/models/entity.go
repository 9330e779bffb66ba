// Package models holds the data types shared by the transaction entry engine:
// reference entities, drafts, receipt extraction results and the backend read models.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EntityKind identifies one of the user-extensible reference collections.
type EntityKind string

const (
	KindCategory    EntityKind = "category"
	KindSubcategory EntityKind = "subcategory"
	KindVendor      EntityKind = "vendor"
	KindAccount     EntityKind = "account"
)

// AllKinds lists the kinds in the order they are resolved on submit.
var AllKinds = []EntityKind{KindCategory, KindVendor, KindAccount, KindSubcategory}

// ParseEntityKind converts user input into an EntityKind.
func ParseEntityKind(s string) (EntityKind, error) {
	switch k := EntityKind(s); k {
	case KindCategory, KindSubcategory, KindVendor, KindAccount:
		return k, nil
	}
	return "", fmt.Errorf("unknown entity kind %q", s)
}

// Scoped reports whether entities of this kind live under a parent category.
func (k EntityKind) Scoped() bool {
	return k == KindSubcategory
}

// ID is a backend-assigned identifier. The backend emits ids as JSON strings or
// numbers; both decode to the same textual form.
type ID string

// UnmarshalJSON accepts a string, a number or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid id %s: %w", data, err)
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*id = ID(n.String())
	return nil
}

// String returns the id as plain text.
func (id ID) String() string {
	return string(id)
}

// ReferenceEntity is a named, user-scoped lookup value. ParentID is only set for
// subcategories and holds the owning category id.
type ReferenceEntity struct {
	ID       ID         `json:"id" yaml:"id"`
	Kind     EntityKind `json:"kind" yaml:"kind"`
	Label    string     `json:"label" yaml:"label"`
	ParentID ID         `json:"parentId,omitempty" yaml:"parent_id,omitempty"`
}
