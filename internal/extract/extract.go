package extract

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hosteleo/go-invoice-backend/internal/normalize"
)

// Canonical field keys in Payload.Factura, with the aliases different
// prompt revisions have produced for each.
var fieldAliases = map[string][]string{
	"proveedor_nombre":  {"proveedor_nombre", "proveedor", "nombre_proveedor", "emisor"},
	"proveedor_cif":     {"proveedor_cif", "cif_proveedor", "proveedor_nif", "nif_proveedor", "cif"},
	"numero_factura":    {"numero_factura", "num_factura", "numero"},
	"fecha_emision":     {"fecha_emision", "fecha", "fecha_factura"},
	"fecha_vencimiento": {"fecha_vencimiento", "vencimiento"},
	"base_imponible":    {"base_imponible", "base", "subtotal"},
	"cuota_iva":         {"cuota_iva", "importe_iva", "iva"},
	"tipo_iva":          {"tipo_iva", "porcentaje_iva"},
	"total":             {"total", "total_factura", "importe_total"},
}

// StringField is a canonical text field with its extraction confidence
// and the source snippet the value was read from.
type StringField struct {
	Value      string
	Confidence float64
	Source     string
}

// AmountField is a canonical monetary or rate field. Set distinguishes
// "extracted as zero" from "not extracted".
type AmountField struct {
	Value      decimal.Decimal
	Set        bool
	Confidence float64
	Source     string
}

// DateField is a canonical date field.
type DateField struct {
	Value      *time.Time
	Confidence float64
	Source     string
}

// Line is one canonical extracted line item.
type Line struct {
	Description string
	Quantity    decimal.Decimal
	Unit        string
	UnitNet     decimal.Decimal
	UnitNetSet  bool
	TotalNet    decimal.Decimal
	TotalNetSet bool
	ProductCode string
	TaxRate     decimal.Decimal
	Confidence  float64
	Source      string
}

// Extraction is the single canonical record the rest of the pipeline
// consumes. Built exactly once per document by FromPayload.
type Extraction struct {
	SupplierName  StringField
	SupplierTaxID StringField
	InvoiceNumber StringField
	IssueDate     DateField
	DueDate       DateField
	NetBase       AmountField
	TaxAmount     AmountField
	TaxRate       AmountField
	Total         AmountField
	Lines         []Line
	Confidence    Scores
}

// FromPayload coalesces field aliases, parses scalars, applies the
// missing-confidence heuristics, and computes the aggregate confidence
// scores.
func FromPayload(p *Payload) *Extraction {
	ex := &Extraction{
		SupplierName:  stringField(p, "proveedor_nombre"),
		SupplierTaxID: stringField(p, "proveedor_cif"),
		InvoiceNumber: stringField(p, "numero_factura"),
		IssueDate:     dateField(p, "fecha_emision"),
		DueDate:       dateField(p, "fecha_vencimiento"),
		NetBase:       amountField(p, "base_imponible"),
		TaxAmount:     amountField(p, "cuota_iva"),
		TaxRate:       amountField(p, "tipo_iva"),
		Total:         amountField(p, "total"),
	}

	// A plausible invoice number is itself evidence the extraction
	// locked onto the right region of the document.
	if ex.InvoiceNumber.Value != "" && !isPlaceholder(ex.InvoiceNumber.Value) &&
		ex.InvoiceNumber.Confidence < 0.85 {
		ex.InvoiceNumber.Confidence = 0.85
	}

	for _, rp := range p.Productos {
		line := Line{
			Description: firstString(rp.DescripcionOriginal, rp.Descripcion,
				rp.ProductoNombre, rp.ProductoEncontrado),
			Unit:        rp.Unidad,
			ProductCode: firstString(rp.CodigoProducto, rp.Codigo),
			Confidence:  rp.ConfianzaLinea,
			Source:      rp.TextoFuente,
		}
		if line.Description == "" {
			continue
		}
		if q, ok := asDecimal(rp.Cantidad); ok && q.IsPositive() {
			line.Quantity = q
		} else {
			line.Quantity = decimal.NewFromInt(1)
		}
		if d, ok := firstDecimal(rp.PrecioUnitarioSinIVA, rp.PrecioUnitario, rp.PrecioUnit); ok {
			line.UnitNet, line.UnitNetSet = d, true
		}
		if d, ok := firstDecimal(rp.PrecioTotalLineaSinIVA, rp.PrecioTotalLinea, rp.Importe); ok {
			line.TotalNet, line.TotalNetSet = d, true
		}
		if d, ok := asDecimal(rp.TipoIVA); ok {
			line.TaxRate = d
		}
		if line.Confidence == 0 {
			line.Confidence = 0.8
		}
		ex.Lines = append(ex.Lines, line)
	}

	ex.Confidence = aggregate(ex)
	return ex
}

func rawFor(p *Payload, key string) (RawField, bool) {
	for _, alias := range fieldAliases[key] {
		if rf, ok := p.Factura[alias]; ok && rf.Valor != nil {
			return rf, true
		}
	}
	return RawField{}, false
}

// heuristicConfidence applies the presence heuristic: a reported
// confidence wins, but a present value with no reported confidence is
// still worth 0.8.
func heuristicConfidence(reported float64, present bool) float64 {
	if reported > 0 {
		return reported
	}
	if present {
		return 0.8
	}
	return 0
}

func stringField(p *Payload, key string) StringField {
	rf, ok := rawFor(p, key)
	if !ok {
		return StringField{}
	}
	v := strings.TrimSpace(asString(rf.Valor))
	return StringField{
		Value:      v,
		Confidence: heuristicConfidence(rf.Confianza, v != ""),
		Source:     rf.TextoFuente,
	}
}

func amountField(p *Payload, key string) AmountField {
	rf, ok := rawFor(p, key)
	if !ok {
		return AmountField{}
	}
	d, parsed := asDecimal(rf.Valor)
	if !parsed {
		return AmountField{Source: rf.TextoFuente}
	}
	return AmountField{
		Value:      d,
		Set:        true,
		Confidence: heuristicConfidence(rf.Confianza, true),
		Source:     rf.TextoFuente,
	}
}

func dateField(p *Payload, key string) DateField {
	rf, ok := rawFor(p, key)
	if !ok {
		return DateField{}
	}
	t, parsed := normalize.ParseDate(asString(rf.Valor))
	if !parsed {
		return DateField{Source: rf.TextoFuente}
	}
	return DateField{
		Value:      &t,
		Confidence: heuristicConfidence(rf.Confianza, true),
		Source:     rf.TextoFuente,
	}
}

var placeholders = map[string]struct{}{
	"s/n": {}, "sn": {}, "n/a": {}, "na": {}, "no disponible": {},
	"desconocido": {}, "sin numero": {}, "sin número": {}, "-": {}, "xxx": {},
	"null": {}, "none": {},
}

func isPlaceholder(s string) bool {
	_, ok := placeholders[strings.ToLower(strings.TrimSpace(s))]
	return ok
}
