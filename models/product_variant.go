package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProductVariant is one purchasable configuration of a product, stored in productVariants.
type ProductVariant struct {
	ID             primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	ProductID      primitive.ObjectID  `json:"productId" bson:"productId"`
	AttributeSetID *primitive.ObjectID `json:"attributeSetId,omitempty" bson:"attributeSetId,omitempty"`
	SKU            string              `json:"sku" bson:"sku" validate:"required,max=64"`
	Barcode        *string             `json:"barcode,omitempty" bson:"barcode,omitempty"`
	Title          string              `json:"title" bson:"title" validate:"required,max=256"`
	Attributes     AttributeValues     `json:"attributes" bson:"attributes"`
	PriceModifier  float64             `json:"priceModifier" bson:"priceModifier"`
	IsActive       bool                `json:"isActive" bson:"isActive"`
	CreatedAt      time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// CreateVariantRequest is the payload for creating a product variant.
type CreateVariantRequest struct {
	ProductID      string          `json:"productId"`
	AttributeSetID string          `json:"attributeSetId"`
	SKU            string          `json:"sku"`
	Barcode        string          `json:"barcode"`
	Title          string          `json:"title"`
	Attributes     AttributeValues `json:"attributes"`
	PriceModifier  float64         `json:"priceModifier"`
	IsActive       *bool           `json:"isActive"`
}

// UpdateVariantRequest carries the mutable variant fields; nil means unchanged.
// An empty Barcode or AttributeSetID clears the field.
type UpdateVariantRequest struct {
	AttributeSetID *string          `json:"attributeSetId"`
	Barcode        *string          `json:"barcode"`
	Title          *string          `json:"title"`
	Attributes     *AttributeValues `json:"attributes"`
	PriceModifier  *float64         `json:"priceModifier"`
}

// NormalizeSKU is the canonical stored form of a SKU.
func NormalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

// NormalizeBarcode trims a barcode and maps blank input to "absent" so the sparse index skips it.
func NormalizeBarcode(barcode *string) *string {
	if barcode == nil {
		return nil
	}
	b := strings.TrimSpace(*barcode)
	if b == "" {
		return nil
	}
	return &b
}

// Lifecycle returns the soft-delete state of the variant.
func (v *ProductVariant) Lifecycle() Lifecycle {
	return LifecycleOf(v.IsActive)
}

// Normalize applies the storage conventions: upper-cased SKU, trimmed text, absent empty barcode.
func (v *ProductVariant) Normalize() {
	v.SKU = NormalizeSKU(v.SKU)
	v.Barcode = NormalizeBarcode(v.Barcode)
	v.Title = strings.TrimSpace(v.Title)
	if v.Attributes == nil {
		v.Attributes = AttributeValues{}
	}
}

// Validate checks required fields and the shape of the attribute map.
func (v *ProductVariant) Validate() error {
	if v.ProductID.IsZero() {
		return newValidationError("productId", "is required")
	}
	if err := validateStruct(v); err != nil {
		return err
	}
	for key, val := range v.Attributes {
		if !attrKeyPattern.MatchString(key) {
			return newValidationError("attributes", "invalid attribute key %q", key)
		}
		if val.IsZero() {
			return newValidationError("attributes."+key, "must not be null")
		}
	}
	return nil
}

// EffectivePrice applies the variant's modifier to the product's base price.
// The modifier is an additive delta.
func (v *ProductVariant) EffectivePrice(basePrice float64) float64 {
	return basePrice + v.PriceModifier
}
