package model

import "strings"

// IdentityKey decides whether two item records refer to the same product.
// It is case-insensitive over (name, brand, category).
type IdentityKey struct {
	Name     string
	Brand    string
	Category string
}

// KeyOf builds the identity key for the given fields.
func KeyOf(name, brand, category string) IdentityKey {
	return IdentityKey{
		Name:     normalizeKeyPart(name),
		Brand:    normalizeKeyPart(brand),
		Category: normalizeKeyPart(category),
	}
}

func (k IdentityKey) String() string {
	return k.Name + "|" + k.Brand + "|" + k.Category
}

func normalizeKeyPart(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
