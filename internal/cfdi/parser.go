package cfdi

import (
	"encoding/xml"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"conciliador/internal/category"
	"conciliador/internal/logger"
	"conciliador/pkg/models"
)

// XML namespaces of the CFDI 4.0 schema and its stamp complement.
const (
	nsCFDI = "http://www.sat.gob.mx/cfd/4"
	nsTFD  = "http://www.sat.gob.mx/TimbreFiscalDigital"
)

// ivaTaxCode is the SAT tax code for value-added tax. Every other code
// accumulates into the "other taxes" column.
const ivaTaxCode = "002"

// comprobante mirrors the CFDI 4.0 root element, limited to the attributes
// and children the ledger consumes.
type comprobante struct {
	XMLName     xml.Name     `xml:"http://www.sat.gob.mx/cfd/4 Comprobante"`
	Fecha       string       `xml:"Fecha,attr"`
	Serie       string       `xml:"Serie,attr"`
	Folio       string       `xml:"Folio,attr"`
	SubTotal    string       `xml:"SubTotal,attr"`
	Total       string       `xml:"Total,attr"`
	Emisor      *party       `xml:"http://www.sat.gob.mx/cfd/4 Emisor"`
	Receptor    *party       `xml:"http://www.sat.gob.mx/cfd/4 Receptor"`
	Conceptos   conceptos    `xml:"http://www.sat.gob.mx/cfd/4 Conceptos"`
	Impuestos   *impuestos   `xml:"http://www.sat.gob.mx/cfd/4 Impuestos"`
	Complemento *complemento `xml:"http://www.sat.gob.mx/cfd/4 Complemento"`
}

type party struct {
	RFC    string `xml:"Rfc,attr"`
	Nombre string `xml:"Nombre,attr"`
}

type conceptos struct {
	Concepto []concepto `xml:"http://www.sat.gob.mx/cfd/4 Concepto"`
}

type concepto struct {
	ClaveProdServ string `xml:"ClaveProdServ,attr"`
}

type impuestos struct {
	Traslados   taxList `xml:"http://www.sat.gob.mx/cfd/4 Traslados"`
	Retenciones taxList `xml:"http://www.sat.gob.mx/cfd/4 Retenciones"`
}

// taxList covers both Traslados and Retenciones blocks; the inner line
// elements carry the same Impuesto/Importe attributes.
type taxList struct {
	Traslado  []taxLine `xml:"http://www.sat.gob.mx/cfd/4 Traslado"`
	Retencion []taxLine `xml:"http://www.sat.gob.mx/cfd/4 Retencion"`
}

type taxLine struct {
	Impuesto string `xml:"Impuesto,attr"`
	Importe  string `xml:"Importe,attr"`
}

type complemento struct {
	Timbre *timbre `xml:"http://www.sat.gob.mx/TimbreFiscalDigital TimbreFiscalDigital"`
}

type timbre struct {
	UUID string `xml:"UUID,attr"`
}

// Parser reads CFDI 4.0 invoice documents and turns them into ledger
// records. Construction is cheap; a single parser handles a whole run.
type Parser struct {
	expectedRecipientRFC string
	classifier           *category.Classifier
	log                  zerolog.Logger
}

// NewParser creates a parser that accepts only invoices addressed to the
// given recipient RFC and classifies concepts with the given classifier.
func NewParser(expectedRecipientRFC string, classifier *category.Classifier) *Parser {
	return &Parser{
		expectedRecipientRFC: expectedRecipientRFC,
		classifier:           classifier,
		log:                  logger.WithComponent("cfdi-parser"),
	}
}

// ParseFile reads one invoice document from disk. The employee name and
// folder month come from the directory the file was discovered under and
// are carried through to the ledger row.
func (p *Parser) ParseFile(path, employee, folderMonth string) (*models.Invoice, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{File: path, Err: err}
	}
	return p.parse(data, path, employee, folderMonth)
}

func (p *Parser) parse(data []byte, path, employee, folderMonth string) (*models.Invoice, error) {
	var doc comprobante
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{File: path, Err: fmt.Errorf("%w: %v", ErrMalformedDocument, err)}
	}

	issueDate, err := parseFecha(doc.Fecha)
	if err != nil {
		return nil, &ValidationError{File: path, Err: ErrMissingDate, Detail: doc.Fecha}
	}

	var issuer, issuerRFC string
	if doc.Emisor != nil {
		issuer = doc.Emisor.Nombre
		issuerRFC = doc.Emisor.RFC
	}

	var recipientRFC string
	if doc.Receptor != nil {
		recipientRFC = doc.Receptor.RFC
	}
	if recipientRFC != p.expectedRecipientRFC {
		return nil, &ValidationError{File: path, Err: ErrInvalidRecipient, Detail: recipientRFC}
	}

	subTotal, err := parseAmount(doc.SubTotal)
	if err != nil {
		return nil, &ValidationError{File: path, Err: ErrMissingAmount, Detail: "SubTotal"}
	}
	total, err := parseAmount(doc.Total)
	if err != nil {
		return nil, &ValidationError{File: path, Err: ErrMissingAmount, Detail: "Total"}
	}

	iva, otherTaxes := p.aggregateTaxes(doc.Impuestos, path)

	var uuid string
	if doc.Complemento != nil && doc.Complemento.Timbre != nil {
		uuid = models.NormalizeUUID(doc.Complemento.Timbre.UUID)
	}

	var code string
	if len(doc.Conceptos.Concepto) > 0 {
		// Multi-line invoices are not apportioned: the first concept
		// decides the category for the whole invoice.
		code = doc.Conceptos.Concepto[0].ClaveProdServ
	}

	inv := &models.Invoice{
		UUID:        uuid,
		Folio:       buildFolio(doc.Serie, doc.Folio),
		Issuer:      issuer,
		IssuerRFC:   issuerRFC,
		IssueDate:   issueDate,
		SubTotal:    subTotal,
		IVA:         iva,
		OtherTaxes:  otherTaxes,
		Total:       total,
		Category:    p.classifier.Classify(code),
		Employee:    employee,
		FolderMonth: folderMonth,
		SourceFile:  path,
	}

	p.log.Debug().
		Str("file", path).
		Str("uuid", inv.UUID).
		Str("issuer_rfc", inv.IssuerRFC).
		Str("category", inv.Category).
		Str("total", inv.Total.String()).
		Msg("Invoice parsed")

	return inv, nil
}

// aggregateTaxes sums tax line amounts over both the transferred and the
// withheld blocks. Only the top-level Impuestos element participates;
// per-concept tax breakdowns are ignored, matching the ledger columns.
func (p *Parser) aggregateTaxes(imp *impuestos, path string) (iva, other decimal.Decimal) {
	if imp == nil {
		return decimal.Zero, decimal.Zero
	}
	lines := make([]taxLine, 0, len(imp.Traslados.Traslado)+len(imp.Retenciones.Retencion))
	lines = append(lines, imp.Traslados.Traslado...)
	lines = append(lines, imp.Retenciones.Retencion...)
	for _, line := range lines {
		amount, err := decimal.NewFromString(line.Importe)
		if err != nil {
			p.log.Warn().
				Str("file", path).
				Str("importe", line.Importe).
				Msg("Skipping tax line with unparseable amount")
			continue
		}
		if line.Impuesto == ivaTaxCode {
			iva = iva.Add(amount)
		} else {
			other = other.Add(amount)
		}
	}
	return iva, other
}

// parseFecha parses the Fecha attribute. CFDI timestamps are ISO-8601
// without an offset; a trailing Z is accepted and normalized to UTC.
func parseFecha(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02T15:04:05Z07:00", value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05", value)
}

func parseAmount(value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, ErrMissingAmount
	}
	return decimal.NewFromString(value)
}

// buildFolio combines Serie and Folio into the ledger's folio column.
func buildFolio(serie, folio string) string {
	if serie != "" && folio != "" {
		return serie + "-" + folio
	}
	if folio != "" {
		return folio
	}
	return serie
}
