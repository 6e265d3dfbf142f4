package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AttributeType is the declared value type of an attribute definition.
type AttributeType string

const (
	AttributeTypeText        AttributeType = "text"
	AttributeTypeNumber      AttributeType = "number"
	AttributeTypeBoolean     AttributeType = "boolean"
	AttributeTypeSelect      AttributeType = "select"
	AttributeTypeMultiSelect AttributeType = "multi_select"
)

// IsValid reports whether t is one of the supported attribute types.
func (t AttributeType) IsValid() bool {
	switch t {
	case AttributeTypeText, AttributeTypeNumber, AttributeTypeBoolean, AttributeTypeSelect, AttributeTypeMultiSelect:
		return true
	}
	return false
}

// HasOptions reports whether values of this type are restricted to a list of options.
func (t AttributeType) HasOptions() bool {
	return t == AttributeTypeSelect || t == AttributeTypeMultiSelect
}

// AttributeDefinition describes one facet a variant may carry.
type AttributeDefinition struct {
	Key          string        `json:"key" bson:"key" validate:"required,max=64,attrkey"`
	Label        string        `json:"label" bson:"label" validate:"required"`
	Type         AttributeType `json:"type" bson:"type" validate:"required,oneof=text number boolean select multi_select"`
	Options      []string      `json:"options,omitempty" bson:"options,omitempty"`
	Unit         string        `json:"unit,omitempty" bson:"unit,omitempty"`
	IsRequired   bool          `json:"isRequired" bson:"isRequired"`
	IsFilterable bool          `json:"isFilterable" bson:"isFilterable"`
	IsSearchable bool          `json:"isSearchable" bson:"isSearchable"`
	SortOrder    int           `json:"sortOrder" bson:"sortOrder"`
}

// AttributeSet is a named catalog of attribute definitions stored in the attributeSets collection.
type AttributeSet struct {
	ID          primitive.ObjectID    `json:"id" bson:"_id,omitempty"`
	Name        string                `json:"name" bson:"name" validate:"required,max=128"`
	Description string                `json:"description,omitempty" bson:"description,omitempty"`
	IsActive    bool                  `json:"isActive" bson:"isActive"`
	Attributes  []AttributeDefinition `json:"attributes" bson:"attributes" validate:"dive"`
	CreatedAt   time.Time             `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time             `json:"updatedAt" bson:"updatedAt"`
}

// CreateAttributeSetRequest is the payload for creating an attribute set.
type CreateAttributeSetRequest struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	IsActive    *bool                 `json:"isActive"`
	Attributes  []AttributeDefinition `json:"attributes"`
}

// UpdateAttributeSetRequest changes the set's metadata; a non-nil Attributes replaces the whole list.
type UpdateAttributeSetRequest struct {
	Name        *string                `json:"name"`
	Description *string                `json:"description"`
	Attributes  *[]AttributeDefinition `json:"attributes"`
}

// Lifecycle returns the soft-delete state of the set.
func (s *AttributeSet) Lifecycle() Lifecycle {
	return LifecycleOf(s.IsActive)
}

// Normalize trims user supplied text and drops options from types that do not use them.
func (s *AttributeSet) Normalize() {
	s.Name = strings.TrimSpace(s.Name)
	s.Description = strings.TrimSpace(s.Description)
	if s.Attributes == nil {
		s.Attributes = []AttributeDefinition{}
	}
	for i := range s.Attributes {
		s.Attributes[i].normalize()
	}
}

func (d *AttributeDefinition) normalize() {
	d.Key = strings.TrimSpace(d.Key)
	d.Label = strings.TrimSpace(d.Label)
	d.Unit = strings.TrimSpace(d.Unit)
	if !d.Type.HasOptions() {
		d.Options = nil
		return
	}
	opts := make([]string, 0, len(d.Options))
	for _, o := range d.Options {
		if o = strings.TrimSpace(o); o != "" {
			opts = append(opts, o)
		}
	}
	d.Options = opts
}

// Validate checks field rules plus the cross-field rules struct tags cannot express.
func (s *AttributeSet) Validate() error {
	if err := validateStruct(s); err != nil {
		return err
	}

	seen := make(map[string]bool, len(s.Attributes))
	for i, d := range s.Attributes {
		if seen[d.Key] {
			return newValidationError(fmt.Sprintf("attributes[%d].key", i), "duplicate attribute key %q", d.Key)
		}
		seen[d.Key] = true

		if d.Type.HasOptions() && len(d.Options) == 0 {
			return newValidationError(fmt.Sprintf("attributes[%d].options", i), "%s attributes need at least one option", d.Type)
		}
	}
	return nil
}

// Definition looks up an attribute definition by key.
func (s *AttributeSet) Definition(key string) (AttributeDefinition, bool) {
	for _, d := range s.Attributes {
		if d.Key == key {
			return d, true
		}
	}
	return AttributeDefinition{}, false
}

// AttributeMismatchError reports a variant attribute that does not fit the owning set.
type AttributeMismatchError struct {
	Key     string
	Message string
}

func (e *AttributeMismatchError) Error() string {
	return fmt.Sprintf("attribute %q: %s", e.Key, e.Message)
}

// CheckValues validates a variant's attribute map against the set's declared attributes.
func (s *AttributeSet) CheckValues(values AttributeValues) error {
	for key, val := range values {
		def, ok := s.Definition(key)
		if !ok {
			return &AttributeMismatchError{Key: key, Message: fmt.Sprintf("not declared in attribute set %q", s.Name)}
		}
		if err := def.accepts(val); err != nil {
			return &AttributeMismatchError{Key: key, Message: err.Error()}
		}
	}

	for _, def := range s.Attributes {
		if !def.IsRequired {
			continue
		}
		if v, ok := values[def.Key]; !ok || v.IsZero() {
			return &AttributeMismatchError{Key: def.Key, Message: "is required"}
		}
	}
	return nil
}

func (d AttributeDefinition) accepts(v AttributeValue) error {
	switch d.Type {
	case AttributeTypeText:
		if v.Kind() != KindString {
			return fmt.Errorf("expected text, got %s", v.Kind())
		}
	case AttributeTypeNumber:
		if v.Kind() != KindNumber {
			return fmt.Errorf("expected number, got %s", v.Kind())
		}
	case AttributeTypeBoolean:
		if v.Kind() != KindBool {
			return fmt.Errorf("expected boolean, got %s", v.Kind())
		}
	case AttributeTypeSelect:
		if v.Kind() != KindString {
			return fmt.Errorf("expected one option, got %s", v.Kind())
		}
		if !d.hasOption(v.AsString()) {
			return fmt.Errorf("%q is not an allowed option", v.AsString())
		}
	case AttributeTypeMultiSelect:
		if v.Kind() != KindList {
			return fmt.Errorf("expected a list of options, got %s", v.Kind())
		}
		for _, item := range v.AsList() {
			if !d.hasOption(item) {
				return fmt.Errorf("%q is not an allowed option", item)
			}
		}
	default:
		return fmt.Errorf("unknown attribute type %q", d.Type)
	}
	return nil
}

func (d AttributeDefinition) hasOption(o string) bool {
	for _, opt := range d.Options {
		if opt == o {
			return true
		}
	}
	return false
}
