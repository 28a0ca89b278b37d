package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyExactMatch(t *testing.T) {
	c := NewClassifier()

	assert.Equal(t, "GASOLINA", c.Classify("15101515"))
	assert.Equal(t, "PEAJE", c.Classify("95111602"))
	assert.Equal(t, "PAPELERÍA", c.Classify("14111828"))
}

func TestClassifyPrefixFallback(t *testing.T) {
	c := NewClassifier()

	// Not in the exact table, matched through the prefix rules.
	assert.Equal(t, "DATOS MÓVILES", c.Classify("83111699"))
	assert.Equal(t, "HERRAMIENTAS", c.Classify("27110042"))
	assert.Equal(t, "PAPELERÍA", c.Classify("44121701"))
}

func TestClassifyExactWinsOverPrefix(t *testing.T) {
	c := NewClassifier()

	// 27131500 has an exact entry even though the 2713151 prefix rule
	// would never reach it; the exact table is consulted first.
	assert.Equal(t, "HERRAMIENTAS", c.Classify("27131500"))
}

func TestClassifyPrefixOrderFirstMatchWins(t *testing.T) {
	c := NewClassifierWithTables(nil, []PrefixRule{
		{Prefix: "27", Label: "FIRST"},
		{Prefix: "2713", Label: "SECOND"},
	})

	assert.Equal(t, "FIRST", c.Classify("27130000"))
}

func TestClassifyUnknownCodeReturnsCode(t *testing.T) {
	c := NewClassifier()

	// Unmapped codes stay visible as themselves so auditors notice them.
	assert.Equal(t, "99999999", c.Classify("99999999"))
}

func TestClassifyEmptyCode(t *testing.T) {
	c := NewClassifier()

	assert.Equal(t, "", c.Classify(""))
}
