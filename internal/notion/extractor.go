package notion

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/fyrsmithlabs/activitymap/internal/record"
)

// PropertyExtractor reads record fields from Notion page properties by name.
//
// Dates are taken from a date mentioned in a title, a date property, a
// formula or rollup date, or a created_time property. An empty DateProp uses
// the page's own created_time.
type PropertyExtractor struct {
	DateProp  string
	ValueProp string
	TagsProp  string
}

var _ record.Extractor = PropertyExtractor{}

func property(r record.Raw, name string) gjson.Result {
	return gjson.GetBytes(r.JSON, "properties."+gjson.Escape(name))
}

// Date implements record.Extractor.
func (p PropertyExtractor) Date(r record.Raw) (string, bool) {
	if p.DateProp == "" {
		return nonEmpty(gjson.GetBytes(r.JSON, "created_time"))
	}
	prop := property(r, p.DateProp)
	if !prop.Exists() {
		return "", false
	}
	for _, path := range []string{
		"title.0.mention.date.start",
		"date.start",
		"formula.date.start",
		"rollup.date.start",
		"created_time",
		"last_edited_time",
	} {
		if s, ok := nonEmpty(prop.Get(path)); ok {
			return s, true
		}
	}
	// A plain-text title or rich_text holding the date itself.
	s := strings.TrimSpace(plainText(prop))
	return s, s != ""
}

// Value implements record.Extractor. It returns a float64, a numeric string or nil.
func (p PropertyExtractor) Value(r record.Raw) any {
	prop := property(r, p.ValueProp)
	for _, path := range []string{"rollup.number", "number", "formula.number"} {
		if v := prop.Get(path); v.Type == gjson.Number {
			return v.Float()
		}
	}
	if v := prop.Get("formula.string"); v.Type == gjson.String {
		return v.String()
	}
	return nil
}

// Tags implements record.Extractor. It returns []string, a comma separated
// string or nil depending on the property type.
func (p PropertyExtractor) Tags(r record.Raw) any {
	prop := property(r, p.TagsProp)
	if !prop.Exists() {
		return nil
	}
	switch prop.Get("type").String() {
	case "multi_select":
		var names []string
		for _, opt := range prop.Get("multi_select").Array() {
			names = append(names, opt.Get("name").String())
		}
		return names
	case "select":
		if name := prop.Get("select.name"); name.Exists() {
			return []string{name.String()}
		}
		return nil
	case "rich_text", "title":
		return plainText(prop)
	case "formula":
		if prop.Get("formula.type").String() == "string" {
			return prop.Get("formula.string").String()
		}
		return nil
	case "rollup":
		var names []string
		for _, item := range prop.Get("rollup.array").Array() {
			for _, opt := range item.Get("multi_select").Array() {
				names = append(names, opt.Get("name").String())
			}
			if name := item.Get("select.name"); name.Exists() {
				names = append(names, name.String())
			}
		}
		return names
	}
	return nil
}

// plainText joins the plain_text of a rich_text or title property.
func plainText(prop gjson.Result) string {
	items := prop.Get("rich_text")
	if !items.Exists() {
		items = prop.Get("title")
	}
	var b strings.Builder
	for _, t := range items.Array() {
		b.WriteString(t.Get("plain_text").String())
	}
	return b.String()
}

func nonEmpty(v gjson.Result) (string, bool) {
	if v.Type != gjson.String {
		return "", false
	}
	s := strings.TrimSpace(v.String())
	return s, s != ""
}
