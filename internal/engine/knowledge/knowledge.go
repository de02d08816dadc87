// Package knowledge holds the warehouse schema catalog and domain vocabulary
// used to interpret free-text questions.
package knowledge

import (
	"regexp"
	"sort"
	"strings"
)

// GRNMarker is the pallet remark substring that identifies material-receiving
// (GRN) pallets in record_palletinfo.
const GRNMarker = "%Material GRN%"

// Tables lists the queryable warehouse tables and their columns. The SQL
// assembler only ever emits identifiers from this catalog.
var Tables = map[string][]string{
	"record_palletinfo": {"plt_num", "product_code", "product_qty", "plt_remark", "generate_time", "series"},
	"record_transfer":   {"plt_num", "operator_id", "tran_date", "f_loc", "t_loc"},
	"record_inventory":  {"product_code", "injection", "pipeline", "prebook", "await", "fold", "bulk", "backcarpark", "latest_update"},
	"record_history":    {"id", "action", "plt_num", "loc", "remark", "time"},
	"record_grn":        {"grn_ref", "material_code", "sup_code", "gross_weight", "net_weight", "pallet", "package", "creat_time"},
	"record_aco":        {"order_ref", "code", "required_qty", "remain_qty", "latest_update"},
	"data_code":         {"code", "description", "colour", "standard_qty", "type"},
	"data_supplier":     {"supplier_code", "supplier_name"},
	"data_id":           {"id", "name", "department"},
	"query_record":      {"uuid", "created_at", "query", "answer", "user_email", "token", "sql_query"},
}

// locationGlossary maps spoken location names to their canonical form and the
// record_inventory column that holds the quantity.
type location struct {
	canonical string
	column    string
}

var locationGlossary = map[string]location{
	"injection":     {"Injection", "injection"},
	"injection area": {"Injection", "injection"},
	"注塑":            {"Injection", "injection"},
	"pipeline":      {"Pipeline", "pipeline"},
	"管道":            {"Pipeline", "pipeline"},
	"prebook":       {"Prebook", "prebook"},
	"pre-book":      {"Prebook", "prebook"},
	"預訂":            {"Prebook", "prebook"},
	"await":         {"Await", "await"},
	"awaiting":      {"Await", "await"},
	"等待":            {"Await", "await"},
	"fold mill":     {"Fold Mill", "fold"},
	"fold":          {"Fold Mill", "fold"},
	"摺疊":            {"Fold Mill", "fold"},
	"bulk room":     {"Bulk Room", "bulk"},
	"bulk":          {"Bulk Room", "bulk"},
	"散裝":            {"Bulk Room", "bulk"},
	"back car park": {"Back Car Park", "backcarpark"},
	"backcarpark":   {"Back Car Park", "backcarpark"},
	"car park":      {"Back Car Park", "backcarpark"},
	"停車場":           {"Back Car Park", "backcarpark"},
}

// productCodePattern matches warehouse product codes such as MH001, ALDR50 or
// X01A32B. Two to four letters, two to six digits, optional trailing letter.
var productCodePattern = regexp.MustCompile(`\b[a-zA-Z]{2,4}\d{2,6}[a-zA-Z]?\b`)

// palletNumberPattern matches pallet numbers in the DDMMYY/seq form.
var palletNumberPattern = regexp.MustCompile(`\b\d{6}/\d{1,4}\b`)

// reservedWords are regex hits that are vocabulary, not product codes.
var reservedWords = map[string]bool{
	"top10": true, "top20": true, "top50": true, "last7": true, "last30": true,
}

// Base is the query-time view over the catalog and glossary.
type Base struct {
	glossaryKeys []string // longest first, for greedy matching
}

func NewBase() *Base {
	keys := make([]string, 0, len(locationGlossary))
	for k := range locationGlossary {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return &Base{glossaryKeys: keys}
}

// FindProductCode extracts the first product-code-shaped token from the
// question, uppercased. Returns "" when none is present.
func (b *Base) FindProductCode(question string) string {
	for _, match := range productCodePattern.FindAllString(question, -1) {
		if reservedWords[strings.ToLower(match)] {
			continue
		}
		return strings.ToUpper(match)
	}
	return ""
}

// FindPalletNumber extracts the first pallet number from the question.
func (b *Base) FindPalletNumber(question string) string {
	return palletNumberPattern.FindString(question)
}

// FindLocation scans the question for a known location name, longest phrase
// first so "back car park" wins over "car park".
func (b *Base) FindLocation(question string) (canonical string, ok bool) {
	for _, key := range b.glossaryKeys {
		if strings.Contains(question, key) {
			return locationGlossary[key].canonical, true
		}
	}
	return "", false
}

// LocationColumn maps a canonical location back to its record_inventory column.
func (b *Base) LocationColumn(canonical string) (string, bool) {
	for _, loc := range locationGlossary {
		if loc.canonical == canonical {
			return loc.column, true
		}
	}
	return "", false
}

// HasColumn reports whether a table/column pair exists in the catalog.
func (b *Base) HasColumn(table, column string) bool {
	cols, ok := Tables[table]
	if !ok {
		return false
	}
	for _, c := range cols {
		if c == column {
			return true
		}
	}
	return false
}

// TableCount returns the number of queryable tables.
func (b *Base) TableCount() int {
	return len(Tables)
}
