package ocr

// Document is the OCR service's page/line/table hierarchy. Every
// element carries a span of character offsets into Text; element
// content is always recovered by resolving the span, never duplicated
// in the structure.
type Document struct {
	Text  string `json:"text"`
	Pages []Page `json:"pages"`
}

// Span is a half-open [Start, End) character range into the full text.
type Span struct {
	Start int `json:"start_index"`
	End   int `json:"end_index"`
}

type Page struct {
	Number int         `json:"page_number"`
	Lines  []Line      `json:"lines"`
	Tables []Table     `json:"tables"`
	Fields []FormField `json:"form_fields"`
}

type Line struct {
	Span Span `json:"span"`
}

type Table struct {
	HeaderRows []TableRow `json:"header_rows"`
	BodyRows   []TableRow `json:"body_rows"`
}

type TableRow struct {
	Cells []TableCell `json:"cells"`
}

type TableCell struct {
	Span Span `json:"span"`
}

// FormField is a detected key/value pair.
type FormField struct {
	Name  Span `json:"name"`
	Value Span `json:"value"`
}

// Resolve returns the substring a span covers, or "" when the span
// falls outside the text. OCR services occasionally emit spans past the
// end of the blob; those are treated as empty rather than fatal.
func (d *Document) Resolve(s Span) string {
	if s.Start < 0 || s.End > len(d.Text) || s.Start >= s.End {
		return ""
	}
	return d.Text[s.Start:s.End]
}

// LineTexts returns every line's resolved text in reading order.
func (d *Document) LineTexts() []string {
	var out []string
	for _, p := range d.Pages {
		for _, l := range p.Lines {
			if t := d.Resolve(l.Span); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}

// TableRows returns every body row of every table as resolved cell
// texts, the shape line-item recovery works from.
func (d *Document) TableRows() [][]string {
	var out [][]string
	for _, p := range d.Pages {
		for _, t := range p.Tables {
			for _, r := range t.BodyRows {
				row := make([]string, len(r.Cells))
				for i, c := range r.Cells {
					row[i] = d.Resolve(c.Span)
				}
				out = append(out, row)
			}
		}
	}
	return out
}

// FormFields returns every detected key/value pair resolved to text.
func (d *Document) FormFields() map[string]string {
	out := make(map[string]string)
	for _, p := range d.Pages {
		for _, f := range p.Fields {
			name := d.Resolve(f.Name)
			if name == "" {
				continue
			}
			out[name] = d.Resolve(f.Value)
		}
	}
	return out
}
