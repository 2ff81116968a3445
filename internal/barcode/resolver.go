// Package barcode resolves scanned barcodes to product metadata using public
// product databases.
package barcode

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no source knows the barcode.
var ErrNotFound = errors.New("barcode not found")

const (
	SourceOpenFoodFacts = "Open Food Facts"
	SourceUPCItemDB     = "UPCitemDB"
)

// Product is the metadata resolved for a barcode.
type Product struct {
	Barcode  string `json:"barcode"`
	Name     string `json:"name"`
	Brand    string `json:"brand,omitempty"`
	Category string `json:"category"`
	Source   string `json:"source"`
}

// Resolver maps a barcode to product metadata.
//
// Resolve returns ErrNotFound when every source answered without a match and
// any other error when a source could not be reached.
type Resolver interface {
	Resolve(ctx context.Context, barcode string) (Product, error)
}
