// Package extract converts the loosely-typed JSON the LLM returns into
// one canonical extraction record.
//
// LLM output is never trusted structurally: numbers arrive as floats or
// Spanish-formatted strings, any field may be null, and the same field
// shows up under several names across prompt versions. All of that
// tolerance lives here, in a single coalescing pass at the boundary;
// everything downstream works with typed fields only.
package extract

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/hosteleo/go-invoice-backend/internal/normalize"
)

// Payload mirrors the strict-schema contract with the LLM:
// an object of per-field values plus a product array. Unknown keys in
// factura are preserved so alias coalescing can see them.
type Payload struct {
	Factura   map[string]RawField `json:"factura"`
	Productos []RawProduct        `json:"productos"`
}

// RawField is one extracted invoice field. Valor may be a JSON string,
// number, or null; Confianza may be absent or 0.0 even for good values.
type RawField struct {
	Valor       any     `json:"valor"`
	Confianza   float64 `json:"confianza"`
	TextoFuente string  `json:"texto_fuente"`
}

// RawProduct is one extracted line item. The alias columns cover field
// names older prompt revisions produced; coalescing picks the first
// non-empty one.
type RawProduct struct {
	DescripcionOriginal string `json:"descripcion_original"`
	Descripcion         string `json:"descripcion"`
	ProductoNombre      string `json:"producto_nombre"`
	ProductoEncontrado  string `json:"producto_encontrado"`

	Cantidad any    `json:"cantidad"`
	Unidad   string `json:"unidad"`

	PrecioUnitarioSinIVA any `json:"precio_unitario_sin_iva"`
	PrecioUnitario       any `json:"precio_unitario"`
	PrecioUnit           any `json:"precioUnit"`

	PrecioTotalLineaSinIVA any `json:"precio_total_linea_sin_iva"`
	PrecioTotalLinea       any `json:"precio_total_linea"`
	Importe                any `json:"importe"`

	CodigoProducto string  `json:"codigo_producto"`
	Codigo         string  `json:"codigo"`
	TipoIVA        any     `json:"tipo_iva"`
	ConfianzaLinea float64 `json:"confianza_linea"`
	TextoFuente    string  `json:"texto_fuente"`
}

// ParsePayload decodes the LLM response body.
func ParsePayload(data []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// asString renders a JSON scalar as a string; null and non-scalars
// become "".
func asString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return decimal.NewFromFloat(val).String()
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

// asDecimal parses a JSON scalar as an amount. Strings go through the
// Spanish-convention parser so "1.234,56" survives.
func asDecimal(v any) (decimal.Decimal, bool) {
	switch val := v.(type) {
	case float64:
		return decimal.NewFromFloat(val), true
	case json.Number:
		d, err := decimal.NewFromString(val.String())
		return d, err == nil
	case string:
		return normalize.ParseAmount(val)
	default:
		return decimal.Decimal{}, false
	}
}

// firstString returns the first non-empty candidate.
func firstString(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}

// firstDecimal returns the first candidate that parses as an amount.
func firstDecimal(candidates ...any) (decimal.Decimal, bool) {
	for _, c := range candidates {
		if d, ok := asDecimal(c); ok {
			return d, true
		}
	}
	return decimal.Decimal{}, false
}
