package record

import "github.com/tidwall/gjson"

// PathExtractor resolves fields with gjson paths, for plain JSON records such as
// {"date": "2024-03-01", "minutes": 30, "tags": ["go"]}.
type PathExtractor struct {
	DatePath  string
	ValuePath string
	TagsPath  string
}

// DefaultPaths is the layout of exported record files.
var DefaultPaths = PathExtractor{DatePath: "date", ValuePath: "value", TagsPath: "tags"}

func (p PathExtractor) Date(r Raw) (string, bool) {
	v := gjson.GetBytes(r.JSON, p.DatePath)
	if !v.Exists() || v.Type == gjson.Null {
		return "", false
	}
	return v.String(), true
}

func (p PathExtractor) Value(r Raw) any {
	return gjson.GetBytes(r.JSON, p.ValuePath).Value()
}

func (p PathExtractor) Tags(r Raw) any {
	return gjson.GetBytes(r.JSON, p.TagsPath).Value()
}
