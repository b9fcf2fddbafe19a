package ocr

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func sampleDocument() *Document {
	text := "FACTURA 2024-001\nTomate pera 2,50\nTotal: 5,00"
	return &Document{
		Text: text,
		Pages: []Page{{
			Number: 1,
			Lines: []Line{
				{Span: Span{Start: 0, End: 16}},
				{Span: Span{Start: 17, End: 33}},
				{Span: Span{Start: 34, End: 45}},
			},
			Tables: []Table{{
				BodyRows: []TableRow{{Cells: []TableCell{
					{Span: Span{Start: 17, End: 28}},
					{Span: Span{Start: 29, End: 33}},
				}}},
			}},
			Fields: []FormField{{
				Name:  Span{Start: 34, End: 39},
				Value: Span{Start: 41, End: 45},
			}},
		}},
	}
}

func TestDocument_Resolve(t *testing.T) {
	d := sampleDocument()
	if got := d.Resolve(Span{Start: 0, End: 7}); got != "FACTURA" {
		t.Errorf("Resolve = %q, want FACTURA", got)
	}
	for _, s := range []Span{{Start: -1, End: 5}, {Start: 10, End: 9999}, {Start: 5, End: 5}} {
		if got := d.Resolve(s); got != "" {
			t.Errorf("Resolve(%+v) = %q, want empty", s, got)
		}
	}
}

func TestDocument_LineTexts(t *testing.T) {
	lines := sampleDocument().LineTexts()
	if len(lines) != 3 || lines[1] != "Tomate pera 2,50" {
		t.Fatalf("LineTexts = %v", lines)
	}
}

func TestDocument_TableRows(t *testing.T) {
	rows := sampleDocument().TableRows()
	if len(rows) != 1 || rows[0][0] != "Tomate pera" || rows[0][1] != "2,50" {
		t.Fatalf("TableRows = %v", rows)
	}
}

func TestDocument_FormFields(t *testing.T) {
	fields := sampleDocument().FormFields()
	if fields["Total"] != "5,00" {
		t.Fatalf("FormFields = %v", fields)
	}
}

func TestClient_Process(t *testing.T) {
	var gotReq processRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(sampleDocument())
	}))
	defer srv.Close()

	c, err := NewClient(Config{Endpoint: srv.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	doc, err := c.Process(context.Background(), []byte("%PDF-1.4"), "application/pdf")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if gotReq.MimeType != "application/pdf" {
		t.Errorf("mime type = %q", gotReq.MimeType)
	}
	if decoded, _ := base64.StdEncoding.DecodeString(gotReq.Content); string(decoded) != "%PDF-1.4" {
		t.Errorf("content round-trip = %q", decoded)
	}
	if len(doc.Pages) != 1 {
		t.Errorf("pages = %d", len(doc.Pages))
	}
}

func TestClient_Process_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, _ := NewClient(Config{Endpoint: srv.URL})
	if _, err := c.Process(context.Background(), []byte("x"), "application/pdf"); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}
