package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Invoice holds one parsed CFDI invoice. It is built once per source
// document and never mutated afterwards: it either becomes a ledger row or
// is discarded when validation fails.
type Invoice struct {
	// Core identifiers
	UUID  string // Fiscal UUID from the TimbreFiscalDigital complement, normalized
	Folio string // "Serie-Folio", or whichever of the two is present

	// Issuer
	Issuer    string // Issuer (provider) legal name
	IssuerRFC string // Issuer tax ID

	// Dates
	IssueDate time.Time // Fecha attribute of the Comprobante

	// Amounts (decimal to avoid float accumulation issues)
	SubTotal   decimal.Decimal // Base amount before taxes
	IVA        decimal.Decimal // Accumulated VAT (tax code 002, transferred + withheld)
	OtherTaxes decimal.Decimal // Every other tax code
	Total      decimal.Decimal // Invoice total as stamped

	// Classification
	Category string // Spend category label from the first concept's ClaveProdServ

	// Provenance
	Comments    string // Free-text comment column (empty on insert)
	Employee    string // Name of the employee folder the file was found under
	FolderMonth string // Month folder the file was physically filed under
	SourceFile  string // Path of the originating XML document
}

// NormalizeUUID canonicalizes a fiscal UUID for dedup comparisons:
// trimmed, uppercased, enclosing braces stripped. The ledger may hold
// UUIDs in any of those shapes, so every lookup goes through here.
func NormalizeUUID(value string) string {
	v := strings.ToUpper(strings.TrimSpace(value))
	v = strings.ReplaceAll(v, "{", "")
	return strings.ReplaceAll(v, "}", "")
}
