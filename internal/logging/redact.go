package logging

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/activitymap/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const redacted = "[REDACTED]"

// tokenPrefixes are the Notion integration token prefixes kept visible
// so an operator can tell which kind of token was configured.
var tokenPrefixes = []string{"ntn_", "secret_"}

// Secret logs a config.Secret as its token kind and length, e.g.
// "ntn_[REDACTED:50]". An empty secret logs as "[unset]".
func Secret(key string, val config.Secret) zap.Field {
	return Token(key, val.Value())
}

// Token logs a raw credential the same way Secret does.
func Token(key, val string) zap.Field {
	if val == "" {
		return zap.String(key, "[unset]")
	}
	prefix := ""
	for _, p := range tokenPrefixes {
		if strings.HasPrefix(val, p) {
			prefix = p
			break
		}
	}
	return zap.String(key, fmt.Sprintf("%s[REDACTED:%d]", prefix, len(val)))
}

// rules decides which keys and values never reach the encoder verbatim.
type rules struct {
	keys     map[string]struct{}
	patterns []*regexp.Regexp
}

func compileRules(cfg RedactionConfig) (*rules, error) {
	r := &rules{keys: make(map[string]struct{}, len(cfg.Fields))}
	for _, f := range cfg.Fields {
		r.keys[strings.ToLower(f)] = struct{}{}
	}
	for _, p := range cfg.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		r.patterns = append(r.patterns, re)
	}
	return r, nil
}

func (r *rules) key(k string) bool {
	if r == nil {
		return false
	}
	_, ok := r.keys[strings.ToLower(k)]
	return ok
}

// scrub replaces every pattern match inside val, leaving the rest of the
// message readable.
func (r *rules) scrub(val string) string {
	if r == nil {
		return val
	}
	for _, re := range r.patterns {
		val = re.ReplaceAllString(val, redacted)
	}
	return val
}

// field rewrites one per-entry field. Fields already masked by Secret or
// Token are left alone.
func (r *rules) field(f zapcore.Field) zapcore.Field {
	if f.Type == zapcore.StringType {
		if r.key(f.Key) && !strings.Contains(f.String, "[REDACTED") {
			return zap.String(f.Key, redacted)
		}
		return zap.String(f.Key, r.scrub(f.String))
	}
	if r.key(f.Key) {
		return zap.String(f.Key, redacted)
	}
	return f
}

// RedactingEncoder masks sensitive keys and token-shaped values before
// they are written.
type RedactingEncoder struct {
	zapcore.Encoder
	rules *rules
}

// NewRedactingEncoder wraps base. A disabled config passes everything through.
func NewRedactingEncoder(base zapcore.Encoder, cfg RedactionConfig) (*RedactingEncoder, error) {
	if !cfg.Enabled {
		return &RedactingEncoder{Encoder: base}, nil
	}
	r, err := compileRules(cfg)
	if err != nil {
		return nil, err
	}
	return &RedactingEncoder{Encoder: base, rules: r}, nil
}

// EncodeEntry covers the fields passed at the call site, which zap hands
// straight to the wrapped encoder's clone.
func (e *RedactingEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	if e.rules == nil {
		return e.Encoder.EncodeEntry(ent, fields)
	}
	ent.Message = e.rules.scrub(ent.Message)
	clean := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		clean[i] = e.rules.field(f)
	}
	return e.Encoder.EncodeEntry(ent, clean)
}

func (e *RedactingEncoder) AddString(key, val string) {
	if e.rules.key(key) && !strings.Contains(val, "[REDACTED") {
		val = redacted
	}
	e.Encoder.AddString(key, e.rules.scrub(val))
}

func (e *RedactingEncoder) AddByteString(key string, val []byte) {
	if e.rules.key(key) {
		e.Encoder.AddString(key, redacted)
		return
	}
	e.Encoder.AddByteString(key, val)
}

func (e *RedactingEncoder) AddReflected(key string, val any) error {
	if e.rules.key(key) {
		e.Encoder.AddString(key, redacted)
		return nil
	}
	return e.Encoder.AddReflected(key, val)
}

func (e *RedactingEncoder) AddObject(key string, obj zapcore.ObjectMarshaler) error {
	if e.rules.key(key) {
		e.Encoder.AddString(key, redacted)
		return nil
	}
	return e.Encoder.AddObject(key, obj)
}

// Clone keeps the compiled rules; zap clones the encoder for every With.
func (e *RedactingEncoder) Clone() zapcore.Encoder {
	return &RedactingEncoder{Encoder: e.Encoder.Clone(), rules: e.rules}
}
