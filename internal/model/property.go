package model

import (
	"strconv"
	"strings"
)

// PropertyType tags a property value with its declared type. The tag
// travels with every value because the same property name may carry
// different types across sibling records; merging by name alone would
// silently coerce them.
type PropertyType string

// Property value types.
const (
	PropertyText        PropertyType = "text"
	PropertyTitle       PropertyType = "title"
	PropertyNumber      PropertyType = "number"
	PropertyDate        PropertyType = "date"
	PropertySelect      PropertyType = "select"
	PropertyMultiSelect PropertyType = "multi_select"
	PropertyCheckbox    PropertyType = "checkbox"
	PropertyURL         PropertyType = "url"
	PropertyPeople      PropertyType = "people"
)

// PropertyDateValue is a date property payload. End is empty for point dates.
type PropertyDateValue struct {
	Start string `json:"start"`
	End   string `json:"end,omitempty"`
}

// PropertyValue is a tagged union for one property value. Exactly the
// field matching Type is meaningful; the rest stay at their zero value
// and are omitted from JSON.
type PropertyValue struct {
	Type        PropertyType       `json:"type"`
	Text        string             `json:"text,omitempty"`
	Number      *float64           `json:"number,omitempty"`
	Date        *PropertyDateValue `json:"date,omitempty"`
	Select      string             `json:"select,omitempty"`
	MultiSelect []string           `json:"multi_select,omitempty"`
	Checkbox    *bool              `json:"checkbox,omitempty"`
	URL         string             `json:"url,omitempty"`
	People      []string           `json:"people,omitempty"`
}

// PlainText returns a best-effort text rendering of the value for
// inclusion in searchable record text.
func (v PropertyValue) PlainText() string {
	switch v.Type {
	case PropertyText, PropertyTitle:
		return v.Text
	case PropertySelect:
		return v.Select
	case PropertyMultiSelect:
		return strings.Join(v.MultiSelect, ", ")
	case PropertyURL:
		return v.URL
	case PropertyPeople:
		return strings.Join(v.People, ", ")
	case PropertyDate:
		if v.Date == nil {
			return ""
		}
		if v.Date.End != "" {
			return v.Date.Start + " – " + v.Date.End
		}
		return v.Date.Start
	case PropertyNumber:
		if v.Number == nil {
			return ""
		}
		return strconv.FormatFloat(*v.Number, 'f', -1, 64)
	case PropertyCheckbox:
		if v.Checkbox == nil {
			return ""
		}
		return strconv.FormatBool(*v.Checkbox)
	}
	return ""
}

// BagKey builds the property-bag key for a value under the given source
// property name. The key embeds the type tag so that two records using
// the same name with different declared types never collide into one
// coerced entry.
func (v PropertyValue) BagKey(name string) string {
	cleaned := strings.TrimSpace(strings.ToLower(name))
	cleaned = strings.ReplaceAll(cleaned, " ", "_")
	if cleaned == "" {
		cleaned = "unnamed"
	}
	return string(v.Type) + "_" + cleaned
}
