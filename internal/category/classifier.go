package category

import "strings"

// PrefixRule maps a ClaveProdServ prefix to a spend category. Rules are
// evaluated in declared order and the first match wins, so more specific
// prefixes must be listed before shorter ones that would shadow them.
type PrefixRule struct {
	Prefix string
	Label  string
}

// Classifier maps SAT product/service codes (ClaveProdServ) to the spend
// category labels auditors expect in the Concepto column. Lookup tables are
// immutable after construction, so a single instance is safe to share.
type Classifier struct {
	exact  map[string]string
	prefix []PrefixRule
}

// defaultExact holds the audited code-to-category table for codes billed
// most often by field employees.
var defaultExact = map[string]string{
	"15101514": "GASOLINA",
	"15101515": "GASOLINA",
	"95111602": "PEAJE",
	"95111603": "PEAJE",
	"78111807": "ESTACIONAMIENTO",
	"90111800": "HOTEL",
	"90111500": "HOTEL / HOSPEDAJE",
	"90101500": "ALIMENTO / BEBIDA",
	"90101501": "ALIMENTO / BEBIDA",
	"90101503": "ALIMENTO / BEBIDA",
	"90101700": "ALIMENTO / BEBIDA",
	"90101800": "ALIMENTO / BEBIDA",
	"78111804": "TAXI",
	"78111800": "TRANSPORTE",
	"78111808": "ALQUILER DE AUTO",
	"78111811": "ALQUILER DE AUTO",
	"83111603": "DATOS MÓVILES",
	"43201415": "DATOS MÓVILES",
	"27113300": "HERRAMIENTAS",
	"27131500": "HERRAMIENTAS",
	"23291900": "HERRAMIENTAS INDUSTRIALES",
	"14111828": "PAPELERÍA",
}

// defaultPrefix holds the fallback prefix rules, in evaluation order.
// "2713151" must stay ahead of any broader "271" style rule that could be
// added later; order here is part of the classification contract.
var defaultPrefix = []PrefixRule{
	{Prefix: "831116", Label: "DATOS MÓVILES"},
	{Prefix: "2711", Label: "HERRAMIENTAS"},
	{Prefix: "2713151", Label: "HERRAMIENTAS"},
	{Prefix: "141115", Label: "PAPELERÍA"},
	{Prefix: "441217", Label: "PAPELERÍA"},
}

// NewClassifier creates a classifier backed by the default audited tables.
func NewClassifier() *Classifier {
	return &Classifier{
		exact:  defaultExact,
		prefix: defaultPrefix,
	}
}

// NewClassifierWithTables creates a classifier with caller-provided tables.
// The classifier keeps references to the supplied data; callers must not
// mutate it afterwards.
func NewClassifierWithTables(exact map[string]string, prefix []PrefixRule) *Classifier {
	return &Classifier{exact: exact, prefix: prefix}
}

// Classify maps a product/service code to its category label. An empty code
// returns an empty label. A code with no matching rule is returned verbatim
// so unmapped codes stay visible in the ledger for auditors to flag.
func (c *Classifier) Classify(code string) string {
	if code == "" {
		return ""
	}
	if label, ok := c.exact[code]; ok {
		return label
	}
	for _, rule := range c.prefix {
		if strings.HasPrefix(code, rule.Prefix) {
			return rule.Label
		}
	}
	return code
}
