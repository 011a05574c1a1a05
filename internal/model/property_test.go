package model

import "testing"

// TestPropertyValueBagKey tests that bag keys embed the declared type tag.
func TestPropertyValueBagKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		propName string
		value    PropertyValue
		want     string
	}{
		{
			name:     "text property",
			propName: "Status Note",
			value:    PropertyValue{Type: PropertyText, Text: "ok"},
			want:     "text_status_note",
		},
		{
			name:     "number property with same name gets distinct key",
			propName: "Status Note",
			value:    PropertyValue{Type: PropertyNumber},
			want:     "number_status_note",
		},
		{
			name:     "empty name",
			propName: "  ",
			value:    PropertyValue{Type: PropertyTitle},
			want:     "title_unnamed",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.value.BagKey(tt.propName); got != tt.want {
				t.Errorf("BagKey(%q) = %q, want %q", tt.propName, got, tt.want)
			}
		})
	}
}

// TestPropertyValuePlainText tests text rendering per property type.
func TestPropertyValuePlainText(t *testing.T) {
	t.Parallel()

	num := 42.0
	tests := []struct {
		name  string
		value PropertyValue
		want  string
	}{
		{"title", PropertyValue{Type: PropertyTitle, Text: "Roadmap"}, "Roadmap"},
		{"select", PropertyValue{Type: PropertySelect, Select: "Done"}, "Done"},
		{"multi select", PropertyValue{Type: PropertyMultiSelect, MultiSelect: []string{"a", "b"}}, "a, b"},
		{"date range", PropertyValue{Type: PropertyDate, Date: &PropertyDateValue{Start: "2026-01-01", End: "2026-01-31"}}, "2026-01-01 – 2026-01-31"},
		{"point date", PropertyValue{Type: PropertyDate, Date: &PropertyDateValue{Start: "2026-01-01"}}, "2026-01-01"},
		{"nil date", PropertyValue{Type: PropertyDate}, ""},
		{"number has no text form", PropertyValue{Type: PropertyNumber, Number: &num}, ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.value.PlainText(); got != tt.want {
				t.Errorf("PlainText() = %q, want %q", got, tt.want)
			}
		})
	}
}
