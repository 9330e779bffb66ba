package models

import "strings"

// Reference is the draft's view of a category, subcategory, vendor or account
// field: either raw text typed by the user or an entity already resolved.
// A nil Reference means the field is absent.
type Reference interface {
	// Label returns the text shown for the field.
	Label() string
	isReference()
}

// UnresolvedRef holds free text that has not been matched to an entity yet.
type UnresolvedRef struct {
	Text string
}

// Label returns the raw text.
func (r UnresolvedRef) Label() string { return r.Text }

func (UnresolvedRef) isReference() {}

// ResolvedRef holds a canonical entity.
type ResolvedRef struct {
	Entity ReferenceEntity
}

// Label returns the entity's label.
func (r ResolvedRef) Label() string { return r.Entity.Label }

func (ResolvedRef) isReference() {}

// Unresolved returns a reference for text, or nil when text is blank.
func Unresolved(text string) Reference {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return UnresolvedRef{Text: text}
}

// Resolved returns a reference to entity.
func Resolved(entity ReferenceEntity) Reference {
	return ResolvedRef{Entity: entity}
}

// EntityOf returns the resolved entity behind r, if any.
func EntityOf(r Reference) (ReferenceEntity, bool) {
	if rr, ok := r.(ResolvedRef); ok {
		return rr.Entity, true
	}
	return ReferenceEntity{}, false
}

// IDOf returns the resolved entity id behind r, or "".
func IDOf(r Reference) ID {
	e, _ := EntityOf(r)
	return e.ID
}

// LabelOf returns the label of r, or "" for an absent reference.
func LabelOf(r Reference) string {
	if r == nil {
		return ""
	}
	return r.Label()
}
