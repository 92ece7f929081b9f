package record

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"iter"
	"os"
	"strconv"

	"github.com/tidwall/gjson"
)

// maxLineSize bounds one JSON-lines record.
const maxLineSize = 4 * 1024 * 1024

// FileSource reads records from a local JSON file: either a single JSON array
// of objects or one object per line (JSON lines).
type FileSource struct {
	Path string
}

// Records implements Source.
func (f FileSource) Records(ctx context.Context) iter.Seq2[Raw, error] {
	return func(yield func(Raw, error) bool) {
		data, err := os.ReadFile(f.Path)
		if err != nil {
			yield(Raw{}, fmt.Errorf("failed to read records file: %w", err))
			return
		}

		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			if !gjson.ValidBytes(trimmed) {
				yield(Raw{}, fmt.Errorf("records file %s is not valid JSON", f.Path))
				return
			}
			i := 0
			gjson.ParseBytes(trimmed).ForEach(func(_, value gjson.Result) bool {
				if err := ctx.Err(); err != nil {
					yield(Raw{}, err)
					return false
				}
				i++
				return yield(Raw{ID: recordID(value, i), JSON: []byte(value.Raw)}, nil)
			})
			return
		}

		scanner := bufio.NewScanner(bytes.NewReader(trimmed))
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		line := 0
		for scanner.Scan() {
			if err := ctx.Err(); err != nil {
				yield(Raw{}, err)
				return
			}
			line++
			text := bytes.TrimSpace(scanner.Bytes())
			if len(text) == 0 {
				continue
			}
			raw := Raw{ID: recordID(gjson.ParseBytes(text), line), JSON: bytes.Clone(text)}
			if !yield(raw, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(Raw{}, fmt.Errorf("failed to scan records file: %w", err))
		}
	}
}

func recordID(v gjson.Result, n int) string {
	if id := v.Get("id"); id.Exists() {
		return id.String()
	}
	return "#" + strconv.Itoa(n)
}
