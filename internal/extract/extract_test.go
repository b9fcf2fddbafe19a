package extract

import (
	"testing"

	"github.com/shopspring/decimal"
)

const samplePayload = `{
  "factura": {
    "proveedor_nombre": {"valor": "Distribuciones Pérez S.L.", "confianza": 0.93, "texto_fuente": "DISTRIBUCIONES PEREZ S.L."},
    "proveedor_cif": {"valor": "B12345678", "confianza": 0.9},
    "numero_factura": {"valor": "FAC-2024-0042", "confianza": 0.0},
    "fecha_emision": {"valor": "15/03/2024", "confianza": 0.88},
    "base_imponible": {"valor": "1.234,56", "confianza": 0.85},
    "cuota_iva": {"valor": 123.46, "confianza": 0.85},
    "tipo_iva": {"valor": 10, "confianza": 0.8},
    "total": {"valor": "1.358,02", "confianza": 0.85}
  },
  "productos": [
    {"descripcion_original": "Aceite de oliva 5L", "cantidad": 2, "precio_unitario_sin_iva": "23,50", "tipo_iva": 10, "confianza_linea": 0.9},
    {"producto_nombre": "Tomate pera", "cantidad": "1,5", "precioUnit": 1.80, "confianza_linea": 0.0}
  ]
}`

func TestFromPayload_Canonical(t *testing.T) {
	p, err := ParsePayload([]byte(samplePayload))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ex := FromPayload(p)

	if ex.SupplierName.Value != "Distribuciones Pérez S.L." {
		t.Errorf("supplier name = %q", ex.SupplierName.Value)
	}
	if !ex.NetBase.Set || !ex.NetBase.Value.Equal(decimal.RequireFromString("1234.56")) {
		t.Errorf("net base = %v set=%v", ex.NetBase.Value, ex.NetBase.Set)
	}
	if ex.IssueDate.Value == nil || ex.IssueDate.Value.Day() != 15 || int(ex.IssueDate.Value.Month()) != 3 {
		t.Errorf("issue date = %v", ex.IssueDate.Value)
	}
	if len(ex.Lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(ex.Lines))
	}
	if ex.Lines[0].Description != "Aceite de oliva 5L" {
		t.Errorf("line 0 description = %q", ex.Lines[0].Description)
	}
	if !ex.Lines[0].UnitNetSet || !ex.Lines[0].UnitNet.Equal(decimal.RequireFromString("23.5")) {
		t.Errorf("line 0 unit net = %v", ex.Lines[0].UnitNet)
	}
	// Aliased fields coalesce into the same canonical columns.
	if ex.Lines[1].Description != "Tomate pera" {
		t.Errorf("line 1 description = %q", ex.Lines[1].Description)
	}
	if !ex.Lines[1].Quantity.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("line 1 quantity = %v", ex.Lines[1].Quantity)
	}
	if !ex.Lines[1].UnitNetSet || !ex.Lines[1].UnitNet.Equal(decimal.RequireFromString("1.8")) {
		t.Errorf("line 1 unit net = %v", ex.Lines[1].UnitNet)
	}
}

func TestFromPayload_ConfidenceHeuristics(t *testing.T) {
	p, err := ParsePayload([]byte(samplePayload))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ex := FromPayload(p)

	// Non-placeholder invoice number with zero reported confidence is
	// upgraded to 0.85.
	if ex.InvoiceNumber.Confidence != 0.85 {
		t.Errorf("invoice number confidence = %v, want 0.85", ex.InvoiceNumber.Confidence)
	}
	// Zero line confidence with a present value defaults to 0.8.
	if ex.Lines[1].Confidence != 0.8 {
		t.Errorf("line 1 confidence = %v, want 0.8", ex.Lines[1].Confidence)
	}
}

func TestFromPayload_CoherenceUpgrade(t *testing.T) {
	p, err := ParsePayload([]byte(samplePayload))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ex := FromPayload(p)

	// 1234.56 + 123.46 = 1358.02 exactly: coherent, amounts forced to 0.9.
	if !ex.Confidence.Coherent {
		t.Error("expected coherent amounts")
	}
	if ex.Confidence.Amounts != 0.9 {
		t.Errorf("amounts score = %v, want 0.9", ex.Confidence.Amounts)
	}
}

func TestFromPayload_CoherenceDowngrade(t *testing.T) {
	raw := `{"factura": {
		"base_imponible": {"valor": 100, "confianza": 0.95},
		"cuota_iva": {"valor": 21, "confianza": 0.95},
		"total": {"valor": 200, "confianza": 0.95}
	}}`
	p, err := ParsePayload([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ex := FromPayload(p)

	if ex.Confidence.Coherent {
		t.Error("100 + 21 != 200 must not be coherent")
	}
	if ex.Confidence.Amounts != 0.7 {
		t.Errorf("amounts score = %v, want 0.7 despite high field confidence", ex.Confidence.Amounts)
	}
}

func TestFromPayload_NullsTolerated(t *testing.T) {
	raw := `{"factura": {
		"proveedor_nombre": {"valor": null, "confianza": 0.0},
		"total": {"valor": "no legible", "confianza": 0.1}
	}, "productos": [{"descripcion_original": ""}]}`
	p, err := ParsePayload([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ex := FromPayload(p)

	if ex.SupplierName.Value != "" || ex.SupplierName.Confidence != 0 {
		t.Errorf("null field should stay empty: %+v", ex.SupplierName)
	}
	if ex.Total.Set {
		t.Error("unparseable amount must not be Set")
	}
	if len(ex.Lines) != 0 {
		t.Errorf("empty-description product must be dropped, got %d lines", len(ex.Lines))
	}
}

func TestIsPlaceholder(t *testing.T) {
	for _, s := range []string{"S/N", "n/a", " - ", "Desconocido"} {
		if !isPlaceholder(s) {
			t.Errorf("isPlaceholder(%q) = false, want true", s)
		}
	}
	if isPlaceholder("FAC-2024-0042") {
		t.Error("real invoice number flagged as placeholder")
	}
}
