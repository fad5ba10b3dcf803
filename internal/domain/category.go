package domain

import (
	"fmt"
	"strings"
	"time"
)

// FieldType enumerates supported intake form field types.
type FieldType string

const (
	FieldTypeString  FieldType = "STRING"
	FieldTypeNumber  FieldType = "NUMBER"
	FieldTypeBoolean FieldType = "BOOLEAN"
	FieldTypeEnum    FieldType = "ENUM"
)

// FormField describes one field of a category intake schema.
type FormField struct {
	Key      string    `json:"key"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	Options  []string  `json:"options,omitempty"`
}

// FieldValue is a tagged intake value matching a FormField type.
type FieldValue struct {
	Type    FieldType `json:"type"`
	String  string    `json:"string,omitempty"`
	Number  float64   `json:"number,omitempty"`
	Boolean bool      `json:"boolean,omitempty"`
}

// Category is a node in the two-level category tree. Roots (branches) have a
// nil ParentID; children (services) reference their branch.
type Category struct {
	ID                  string
	Name                string
	ParentID            *string
	DescriptionTemplate string
	FormSchema          []FormField
	IsActive            bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ValidateRequestData checks submitted intake values against the category
// schema. Returns field-keyed problems; an empty map means valid.
func (c *Category) ValidateRequestData(data map[string]FieldValue) map[string]string {
	problems := map[string]string{}
	fields := make(map[string]FormField, len(c.FormSchema))
	for _, f := range c.FormSchema {
		fields[f.Key] = f
		val, ok := data[f.Key]
		if !ok {
			if f.Required {
				problems[f.Key] = "required field missing"
			}
			continue
		}
		if val.Type != f.Type {
			problems[f.Key] = fmt.Sprintf("expected %s, got %s", f.Type, val.Type)
			continue
		}
		if f.Type == FieldTypeEnum && !containsOption(f.Options, val.String) {
			problems[f.Key] = fmt.Sprintf("value %q not in options", val.String)
		}
		if f.Required && f.Type == FieldTypeString && strings.TrimSpace(val.String) == "" {
			problems[f.Key] = "required field empty"
		}
	}
	for key := range data {
		if _, ok := fields[key]; !ok {
			problems[key] = "unknown field"
		}
	}
	return problems
}

func containsOption(options []string, value string) bool {
	for _, opt := range options {
		if opt == value {
			return true
		}
	}
	return false
}

// CategoryTree indexes categories by parent for hierarchy lookups without
// embedding live object references.
type CategoryTree struct {
	byID     map[string]*Category
	children map[string][]*Category
}

// NewCategoryTree builds the lookup from a flat category list.
func NewCategoryTree(categories []Category) *CategoryTree {
	tree := &CategoryTree{
		byID:     make(map[string]*Category, len(categories)),
		children: make(map[string][]*Category),
	}
	for i := range categories {
		cat := &categories[i]
		tree.byID[cat.ID] = cat
		if cat.ParentID != nil {
			tree.children[*cat.ParentID] = append(tree.children[*cat.ParentID], cat)
		}
	}
	return tree
}

// Get returns the category with the given id.
func (t *CategoryTree) Get(id string) (*Category, bool) {
	cat, ok := t.byID[id]
	return cat, ok
}

// Children returns direct children of a branch node.
func (t *CategoryTree) Children(id string) []*Category {
	return t.children[id]
}

// Roots returns all branch nodes.
func (t *CategoryTree) Roots() []*Category {
	var roots []*Category
	for _, cat := range t.byID {
		if cat.ParentID == nil {
			roots = append(roots, cat)
		}
	}
	return roots
}
