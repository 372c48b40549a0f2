// Package slug turns display names into identifiers safe for URLs and for
// PostgreSQL schema names: lowercase ASCII letters and digits joined by single
// hyphens.
//
// Diacritics are folded with golang.org/x/text (Unicode decomposition with
// combining marks removed), so "Café Noir" becomes "cafe-noir". Characters
// with no ASCII form are dropped.
//
//	slug.Make("Acme & Sons GmbH", slug.CustomReplace(map[string]string{"&": "and"}))
//	// "acme-and-sons-gmbh"
//
//	slug.Make("Acme", slug.WithSuffix(4), slug.MaxLength(63))
//	// "acme-x7g3"
package slug
