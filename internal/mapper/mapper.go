// Package mapper maps heterogeneous supplier spreadsheet headers onto the
// canonical product schema and coerces raw cell values into typed fields.
// Coercion failures are recorded per field, never raised, so the processor
// can skip-and-count bad rows without losing stream position.
package mapper

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Field names the canonical columns a supplier catalog can map onto.
type Field string

const (
	FieldIdentifier  Field = "identifier" // ASIN or UPC, classified at apply time
	FieldUPC         Field = "upc"
	FieldTitle       Field = "title"
	FieldBuyCost     Field = "buy_cost"
	FieldMOQ         Field = "moq"
	FieldSupplierSKU Field = "supplier_sku"
	FieldNotes       Field = "notes"
)

// Transform is an optional per-field coercion hint.
type Transform string

const (
	TransformNone     Transform = ""
	TransformCurrency Transform = "currency" // strip $ and , before parsing
	TransformPercent  Transform = "percent"  // strip trailing % before parsing
)

// Column identifies a source column by header text and position.
type Column struct {
	Header    string    `json:"header"`
	Index     int       `json:"index"`
	Transform Transform `json:"transform,omitempty"`
}

// ColumnMapping maps canonical fields to source columns. Built once per
// upload (auto-detected or user-confirmed) and immutable for that job.
type ColumnMapping struct {
	Columns map[Field]Column `json:"columns"`
}

// RowError is one field- or row-level validation failure.
type RowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("row %d, %s: %s", e.Row, e.Field, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// Row is the normalized unit flowing through the ingest pipeline. A row with
// a non-empty error list is counted in job statistics but excluded from
// enrichment and upsert.
type Row struct {
	Num         int
	ASIN        string
	UPC         string
	Title       string
	BuyCost     float64
	MOQ         int
	SupplierSKU string
	Notes       string
	Errors      []RowError
}

// Valid reports whether the row is clean enough to enrich and upsert.
func (r *Row) Valid() bool {
	return len(r.Errors) == 0
}

var asinPattern = regexp.MustCompile(`^B0[0-9A-Z]{8}$`)

// aliases maps normalized header text to canonical fields. Normalization is
// lowercase with punctuation and whitespace removed, so "Wholesale Price",
// "wholesale_price" and "WholesalePrice" all land on the same key.
var aliases = map[string]Field{
	"asin":       FieldIdentifier,
	"amazonasin": FieldIdentifier,
	"identifier": FieldIdentifier,
	"productid":  FieldIdentifier,

	"upc":     FieldUPC,
	"upccode": FieldUPC,
	"barcode": FieldUPC,
	"ean":     FieldUPC,
	"gtin":    FieldUPC,
	"upcean":  FieldUPC,

	"title":           FieldTitle,
	"productname":     FieldTitle,
	"producttitle":    FieldTitle,
	"itemname":        FieldTitle,
	"itemdescription": FieldTitle,
	"description":     FieldTitle,
	"name":            FieldTitle,

	"buycost":        FieldBuyCost,
	"cost":           FieldBuyCost,
	"price":          FieldBuyCost,
	"unitcost":       FieldBuyCost,
	"unitprice":      FieldBuyCost,
	"costprice":      FieldBuyCost,
	"yourcost":       FieldBuyCost,
	"wholesale":      FieldBuyCost,
	"wholesalecost":  FieldBuyCost,
	"wholesaleprice": FieldBuyCost,

	"moq":                    FieldMOQ,
	"qty":                    FieldMOQ,
	"quantity":               FieldMOQ,
	"minqty":                 FieldMOQ,
	"minorderqty":            FieldMOQ,
	"minimumorder":           FieldMOQ,
	"minimumorderquantity":   FieldMOQ,
	"casepack":               FieldMOQ,
	"caseqty":                FieldMOQ,

	"sku":         FieldSupplierSKU,
	"suppliersku": FieldSupplierSKU,
	"vendorsku":   FieldSupplierSKU,
	"itemnumber":  FieldSupplierSKU,
	"itemno":      FieldSupplierSKU,
	"partnumber":  FieldSupplierSKU,
	"model":       FieldSupplierSKU,
	"modelnumber": FieldSupplierSKU,

	"notes":    FieldNotes,
	"comments": FieldNotes,
	"remarks":  FieldNotes,
}

// requiredFields must be mapped (and populated) for a row to be usable.
var requiredFields = []Field{FieldBuyCost}

func normalizeHeader(header string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(header)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// AutoMapColumns infers a mapping by alias-matching each source header
// against the canonical field registry. Matching is case- and
// punctuation-insensitive; the first header matching a field wins and
// unmatched canonical fields are simply left unmapped.
func AutoMapColumns(headers []string) ColumnMapping {
	mapping := ColumnMapping{Columns: make(map[Field]Column)}
	for i, header := range headers {
		normalized := normalizeHeader(header)
		if normalized == "" {
			continue
		}
		field, ok := aliases[normalized]
		if !ok {
			continue
		}
		if _, taken := mapping.Columns[field]; taken {
			continue
		}
		col := Column{Header: header, Index: i}
		if field == FieldBuyCost {
			col.Transform = TransformCurrency
		}
		mapping.Columns[field] = col
	}
	return mapping
}

// ValidateMapping flags missing-field conditions as warnings without failing.
// A catalog without an identifier column can still be ingested; its rows will
// individually error at apply time.
func ValidateMapping(mapping ColumnMapping) []string {
	var warnings []string
	for _, field := range requiredFields {
		if _, ok := mapping.Columns[field]; !ok {
			warnings = append(warnings, fmt.Sprintf("required field %q is not mapped", field))
		}
	}
	_, hasIdentifier := mapping.Columns[FieldIdentifier]
	_, hasUPC := mapping.Columns[FieldUPC]
	if !hasIdentifier && !hasUPC {
		warnings = append(warnings, "no identifier column (ASIN or UPC) is mapped; rows cannot be matched to the catalog")
	}
	if _, ok := mapping.Columns[FieldTitle]; !ok {
		warnings = append(warnings, "field \"title\" is not mapped; products will be created without titles")
	}
	return warnings
}

// ApplyMapping coerces one raw record into a canonical Row. The row is always
// returned, with any field- or row-level errors attached, so the caller can
// count the failure and continue instead of aborting the stream.
func ApplyMapping(raw []string, mapping ColumnMapping, rowNum int) Row {
	row := Row{Num: rowNum, MOQ: 1}

	cell := func(field Field) (string, bool) {
		col, ok := mapping.Columns[field]
		if !ok || col.Index < 0 || col.Index >= len(raw) {
			return "", false
		}
		return strings.TrimSpace(raw[col.Index]), true
	}

	if value, ok := cell(FieldIdentifier); ok && value != "" {
		asin, upc, err := classifyIdentifier(value)
		if err != nil {
			row.Errors = append(row.Errors, RowError{Row: rowNum, Field: string(FieldIdentifier), Message: err.Error()})
		}
		row.ASIN = asin
		if upc != "" {
			row.UPC = upc
		}
	}

	if value, ok := cell(FieldUPC); ok && value != "" && row.UPC == "" {
		digits := stripNonDigits(value)
		if len(digits) < 11 || len(digits) > 14 {
			row.Errors = append(row.Errors, RowError{Row: rowNum, Field: string(FieldUPC), Message: fmt.Sprintf("%q is not a valid UPC/EAN", value)})
		} else {
			row.UPC = digits
		}
	}

	if row.ASIN == "" && row.UPC == "" && len(row.Errors) == 0 {
		row.Errors = append(row.Errors, RowError{Row: rowNum, Message: "row has no product identifier (ASIN or UPC)"})
	}

	if value, ok := cell(FieldTitle); ok {
		row.Title = value
	}

	if col, ok := mapping.Columns[FieldBuyCost]; ok {
		value, _ := cell(FieldBuyCost)
		if value == "" {
			row.Errors = append(row.Errors, RowError{Row: rowNum, Message: "required field \"buy_cost\" is empty"})
		} else if cost, err := parseNumber(value, col.Transform); err != nil {
			row.Errors = append(row.Errors, RowError{Row: rowNum, Field: string(FieldBuyCost), Message: err.Error()})
		} else {
			row.BuyCost = cost
		}
	} else {
		row.Errors = append(row.Errors, RowError{Row: rowNum, Message: "required field \"buy_cost\" is not mapped"})
	}

	if value, ok := cell(FieldMOQ); ok && value != "" {
		if moq, err := parseQuantity(value); err != nil {
			row.Errors = append(row.Errors, RowError{Row: rowNum, Field: string(FieldMOQ), Message: err.Error()})
		} else {
			row.MOQ = moq
		}
	}

	if value, ok := cell(FieldSupplierSKU); ok {
		row.SupplierSKU = value
	}
	if value, ok := cell(FieldNotes); ok {
		row.Notes = value
	}

	return row
}

// classifyIdentifier decides whether an identifier cell holds an ASIN or a
// UPC. ASINs are B0 followed by 8 alphanumerics; anything all-digits in UPC
// length range is a barcode awaiting resolution.
func classifyIdentifier(value string) (asin, upc string, err error) {
	upper := strings.ToUpper(value)
	if asinPattern.MatchString(upper) {
		return upper, "", nil
	}
	digits := stripNonDigits(value)
	if digits == value && len(digits) >= 11 && len(digits) <= 14 {
		return "", digits, nil
	}
	return "", "", fmt.Errorf("%q is not a valid ASIN or UPC", value)
}

func stripNonDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// parseNumber coerces a numeric cell, applying the column's transform hint.
// Currency cells tolerate $ signs and thousands separators.
func parseNumber(value string, transform Transform) (float64, error) {
	cleaned := strings.TrimSpace(value)
	switch transform {
	case TransformCurrency:
		cleaned = strings.NewReplacer("$", "", ",", "", " ", "").Replace(cleaned)
	case TransformPercent:
		cleaned = strings.TrimSuffix(cleaned, "%")
		cleaned = strings.TrimSpace(cleaned)
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", value)
	}
	return parsed, nil
}

// parseQuantity coerces an integer cell, tolerating thousands separators and
// trailing decimal zeros ("1,000", "12.0").
func parseQuantity(value string) (int, error) {
	cleaned := strings.NewReplacer(",", "", " ", "").Replace(value)
	if parsed, err := strconv.Atoi(cleaned); err == nil {
		return parsed, nil
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || parsed != float64(int(parsed)) {
		return 0, fmt.Errorf("%q is not a whole number", value)
	}
	return int(parsed), nil
}
