package cfdi

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conciliador/internal/category"
)

const testRecipientRFC = "MES2301274X9"

func testParser() *Parser {
	return NewParser(testRecipientRFC, category.NewClassifier())
}

// fixture builds a minimal CFDI 4.0 document. Callers override pieces
// through the options.
type fixture struct {
	fecha        string
	serie, folio string
	subTotal     string
	total        string
	recipientRFC string
	uuid         string
	clave        string
	omitEmisor   bool
}

func defaultFixture() fixture {
	return fixture{
		fecha:        "2026-01-13T14:13:12",
		serie:        "A",
		folio:        "1",
		subTotal:     "100.00",
		total:        "116.00",
		recipientRFC: testRecipientRFC,
		uuid:         "72DCEAC0-673A-4880-919D-FAB941EB398A",
		clave:        "15101515",
	}
}

func (f fixture) render() []byte {
	emisor := `<cfdi:Emisor Rfc="OEMF830516FD0" Nombre="PROVEEDOR TEST"/>`
	if f.omitEmisor {
		emisor = ""
	}
	doc := fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<cfdi:Comprobante xmlns:cfdi="http://www.sat.gob.mx/cfd/4" xmlns:tfd="http://www.sat.gob.mx/TimbreFiscalDigital" Fecha="%s" SubTotal="%s" Total="%s" Serie="%s" Folio="%s">
  %s
  <cfdi:Receptor Rfc="%s" Nombre="MAQUIPRIME"/>
  <cfdi:Conceptos>
    <cfdi:Concepto ClaveProdServ="%s" Importe="%s"/>
  </cfdi:Conceptos>
  <cfdi:Impuestos>
    <cfdi:Traslados>
      <cfdi:Traslado Impuesto="002" Importe="16.00"/>
    </cfdi:Traslados>
  </cfdi:Impuestos>
  <cfdi:Complemento>
    <tfd:TimbreFiscalDigital UUID="%s"/>
  </cfdi:Complemento>
</cfdi:Comprobante>`,
		f.fecha, f.subTotal, f.total, f.serie, f.folio,
		emisor, f.recipientRFC, f.clave, f.subTotal, f.uuid)
	return []byte(doc)
}

func TestParseFullInvoice(t *testing.T) {
	inv, err := testParser().parse(defaultFixture().render(), "f.xml", "David", "Enero")
	require.NoError(t, err)

	assert.Equal(t, "72DCEAC0-673A-4880-919D-FAB941EB398A", inv.UUID)
	assert.Equal(t, "A-1", inv.Folio)
	assert.Equal(t, "PROVEEDOR TEST", inv.Issuer)
	assert.Equal(t, "OEMF830516FD0", inv.IssuerRFC)
	assert.Equal(t, time.Date(2026, 1, 13, 14, 13, 12, 0, time.UTC), inv.IssueDate.UTC())
	assert.Equal(t, "100", inv.SubTotal.String())
	assert.Equal(t, "16", inv.IVA.String())
	assert.True(t, inv.OtherTaxes.IsZero())
	assert.Equal(t, "116", inv.Total.String())
	assert.Equal(t, "GASOLINA", inv.Category)
	assert.Equal(t, "David", inv.Employee)
	assert.Equal(t, "Enero", inv.FolderMonth)
}

func TestParseDateWithTrailingZ(t *testing.T) {
	f := defaultFixture()
	f.fecha = "2026-03-05T09:30:00Z"

	inv, err := testParser().parse(f.render(), "f.xml", "David", "Marzo")
	require.NoError(t, err)
	assert.Equal(t, time.March, inv.IssueDate.Month())
	assert.Equal(t, time.UTC, inv.IssueDate.Location())
}

func TestParseRejectsWrongRecipient(t *testing.T) {
	f := defaultFixture()
	f.recipientRFC = "OTHERID000XX0"

	_, err := testParser().parse(f.render(), "f.xml", "David", "Enero")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRecipient)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "OTHERID000XX0", vErr.Detail)
}

func TestParseRejectsMissingDate(t *testing.T) {
	f := defaultFixture()
	f.fecha = ""

	_, err := testParser().parse(f.render(), "f.xml", "David", "Enero")
	assert.ErrorIs(t, err, ErrMissingDate)
}

func TestParseRejectsInvalidDate(t *testing.T) {
	f := defaultFixture()
	f.fecha = "13/01/2026"

	_, err := testParser().parse(f.render(), "f.xml", "David", "Enero")
	assert.ErrorIs(t, err, ErrMissingDate)
}

func TestParseRejectsMissingAmounts(t *testing.T) {
	f := defaultFixture()
	f.subTotal = ""
	_, err := testParser().parse(f.render(), "f.xml", "David", "Enero")
	assert.ErrorIs(t, err, ErrMissingAmount)

	f = defaultFixture()
	f.total = ""
	_, err = testParser().parse(f.render(), "f.xml", "David", "Enero")
	assert.ErrorIs(t, err, ErrMissingAmount)
}

func TestParseMalformedXML(t *testing.T) {
	_, err := testParser().parse([]byte("<cfdi:Comprobante"), "f.xml", "David", "Enero")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedDocument)

	var pErr *ParseError
	assert.True(t, errors.As(err, &pErr))
}

func TestParseMissingIssuerYieldsEmptyStrings(t *testing.T) {
	f := defaultFixture()
	f.omitEmisor = true

	inv, err := testParser().parse(f.render(), "f.xml", "David", "Enero")
	require.NoError(t, err)
	assert.Empty(t, inv.Issuer)
	assert.Empty(t, inv.IssuerRFC)
}

func TestParseUUIDNormalization(t *testing.T) {
	f := defaultFixture()
	f.uuid = " {abc-123} "

	inv, err := testParser().parse(f.render(), "f.xml", "David", "Enero")
	require.NoError(t, err)
	assert.Equal(t, "ABC-123", inv.UUID)
}

func TestParseMissingStampYieldsEmptyUUID(t *testing.T) {
	doc := []byte(`<?xml version="1.0"?>
<cfdi:Comprobante xmlns:cfdi="http://www.sat.gob.mx/cfd/4" Fecha="2026-01-13T14:13:12" SubTotal="100.00" Total="116.00">
  <cfdi:Receptor Rfc="` + testRecipientRFC + `"/>
</cfdi:Comprobante>`)

	inv, err := testParser().parse(doc, "f.xml", "David", "Enero")
	require.NoError(t, err)
	assert.Empty(t, inv.UUID)
	assert.Empty(t, inv.Category)
	assert.Empty(t, inv.Folio)
}

func TestParseFolioVariants(t *testing.T) {
	f := defaultFixture()
	f.serie = ""
	inv, err := testParser().parse(f.render(), "f.xml", "David", "Enero")
	require.NoError(t, err)
	assert.Equal(t, "1", inv.Folio)

	f = defaultFixture()
	f.folio = ""
	inv, err = testParser().parse(f.render(), "f.xml", "David", "Enero")
	require.NoError(t, err)
	assert.Equal(t, "A", inv.Folio)
}

func TestParseTaxAggregation(t *testing.T) {
	// An extra transferred line with a non-VAT code, plus withheld lines;
	// withheld amounts accumulate the same as transferred ones.
	doc := []byte(`<?xml version="1.0"?>
<cfdi:Comprobante xmlns:cfdi="http://www.sat.gob.mx/cfd/4" xmlns:tfd="http://www.sat.gob.mx/TimbreFiscalDigital" Fecha="2026-01-13T14:13:12" SubTotal="100.00" Total="130.50">
  <cfdi:Receptor Rfc="` + testRecipientRFC + `"/>
  <cfdi:Impuestos>
    <cfdi:Traslados>
      <cfdi:Traslado Impuesto="002" Importe="16.00"/>
      <cfdi:Traslado Impuesto="003" Importe="8.00"/>
    </cfdi:Traslados>
    <cfdi:Retenciones>
      <cfdi:Retencion Impuesto="002" Importe="4.00"/>
      <cfdi:Retencion Impuesto="001" Importe="2.50"/>
    </cfdi:Retenciones>
  </cfdi:Impuestos>
  <cfdi:Complemento>
    <tfd:TimbreFiscalDigital UUID="11111111-2222-3333-4444-555555555555"/>
  </cfdi:Complemento>
</cfdi:Comprobante>`)

	inv, err := testParser().parse(doc, "f.xml", "David", "Enero")
	require.NoError(t, err)
	assert.Equal(t, "20", inv.IVA.String())
	assert.Equal(t, "10.5", inv.OtherTaxes.String())
}

func TestParseFileReadsFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "factura1.xml")
	require.NoError(t, os.WriteFile(path, defaultFixture().render(), 0o644))

	inv, err := testParser().ParseFile(path, "Laura", "Enero")
	require.NoError(t, err)
	assert.Equal(t, path, inv.SourceFile)
	assert.Equal(t, "Laura", inv.Employee)
}

func TestParseFileMissing(t *testing.T) {
	_, err := testParser().ParseFile(filepath.Join(t.TempDir(), "nope.xml"), "Laura", "Enero")

	var pErr *ParseError
	assert.True(t, errors.As(err, &pErr))
}
