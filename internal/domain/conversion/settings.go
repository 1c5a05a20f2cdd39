package conversion

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	apperrors "github.com/target/engage-api/internal/errors"
)

// DefaultSettingsPath locates conversion settings inside a journey's settings document.
const DefaultSettingsPath = "conversionTracking"

type rawSettings struct {
	Enabled   bool          `json:"enabled"`
	Events    []string      `json:"events"`
	TimeLimit *rawTimeLimit `json:"timeLimit"`
}

type rawTimeLimit struct {
	Unit  string          `json:"unit"`
	Value json.RawMessage `json:"value"`
}

// ParseSettings decodes and validates a conversion settings object
// ({"enabled", "events", "timeLimit": {"unit", "value"}}). An empty or null
// document yields disabled settings.
func ParseSettings(raw []byte) (Settings, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Settings{}, nil
	}

	var in rawSettings
	if err := json.Unmarshal(raw, &in); err != nil {
		return Settings{}, apperrors.Wrap(err, apperrors.ErrCodeValidation, "conversion settings must be a JSON object")
	}

	s := Settings{Enabled: in.Enabled, TrackedEvents: in.Events}
	if in.TimeLimit != nil {
		limit, err := parseTimeLimit(*in.TimeLimit)
		if err != nil {
			return Settings{}, err
		}
		s.TimeLimit = &limit
	}
	return s.Normalize()
}

func parseTimeLimit(in rawTimeLimit) (TimeLimit, error) {
	unit, ok := ParseTimeUnit(in.Unit)
	if !ok {
		return TimeLimit{}, apperrors.ValidationField("timeLimit.unit",
			fmt.Sprintf("unit must be one of: Minutes, Hours, Days, Weeks (got %q)", in.Unit))
	}

	value, err := parseLimitValue(in.Value)
	if err != nil {
		return TimeLimit{}, err
	}
	return TimeLimit{Unit: unit, Value: value}, nil
}

// parseLimitValue accepts a JSON number or a numeric string holding a whole number.
func parseLimitValue(raw json.RawMessage) (int64, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return 0, apperrors.ValidationField("timeLimit.value", "value is required and cannot be empty")
	}
	if unquoted, err := strconv.Unquote(text); err == nil {
		text = strings.TrimSpace(unquoted)
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, apperrors.ValidationField("timeLimit.value", "value must be a number")
	}
	if f != math.Trunc(f) {
		return 0, apperrors.ValidationField("timeLimit.value", "value must be a whole number")
	}
	if f < 0 {
		return 0, apperrors.ValidationField("timeLimit.value", "value must be non-negative")
	}
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
	if f >= math.MaxInt64 {
		return 0, apperrors.ValidationField("timeLimit.value", "value cannot exceed the supported window length")
	}
	return int64(f), nil
}

// Normalize trims and de-duplicates tracked event names, keeping first-seen
// order, and validates the time limit.
func (s Settings) Normalize() (Settings, error) {
	out := Settings{Enabled: s.Enabled}

	seen := make(map[string]struct{}, len(s.TrackedEvents))
	for _, name := range s.TrackedEvents {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out.TrackedEvents = append(out.TrackedEvents, name)
	}

	if s.TimeLimit != nil {
		limit := *s.TimeLimit
		if !limit.Unit.Valid() {
			if u, ok := ParseTimeUnit(string(limit.Unit)); ok {
				limit.Unit = u
			} else {
				return Settings{}, apperrors.ValidationField("timeLimit.unit",
					fmt.Sprintf("unit must be one of: Minutes, Hours, Days, Weeks (got %q)", limit.Unit))
			}
		}
		if limit.Value < 0 {
			return Settings{}, apperrors.ValidationField("timeLimit.value", "value must be non-negative")
		}
		if limit.Value > math.MaxInt64/int64(limit.Unit.Duration()) {
			return Settings{}, apperrors.ValidationField("timeLimit.value", "value cannot exceed the supported window length")
		}
		out.TimeLimit = &limit
	}
	return out, nil
}

// Extractor pulls conversion settings out of a larger journey settings document.
type Extractor struct {
	path string
}

// NewExtractor returns an Extractor reading settings at the JMESPath expression
// path. An empty path uses DefaultSettingsPath.
func NewExtractor(path string) (*Extractor, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultSettingsPath
	}
	if _, err := jmespath.Compile(path); err != nil {
		return nil, fmt.Errorf("compile settings path %q: %w", path, err)
	}
	return &Extractor{path: path}, nil
}

// Path returns the JMESPath expression in use.
func (e *Extractor) Path() string { return e.path }

// Extract returns the validated conversion settings embedded in doc. A missing
// document or a document without conversion settings yields disabled settings.
func (e *Extractor) Extract(doc []byte) (Settings, error) {
	doc = bytes.TrimSpace(doc)
	if len(doc) == 0 {
		return Settings{}, nil
	}

	var data any
	if err := json.Unmarshal(doc, &data); err != nil {
		return Settings{}, apperrors.Wrap(err, apperrors.ErrCodeValidation, "journey settings must be valid JSON")
	}

	found, err := jmespath.Search(e.path, data)
	if err != nil {
		return Settings{}, fmt.Errorf("search journey settings: %w", err)
	}
	if found == nil {
		return Settings{}, nil
	}

	raw, err := json.Marshal(found)
	if err != nil {
		return Settings{}, fmt.Errorf("marshal conversion settings: %w", err)
	}
	return ParseSettings(raw)
}

// ExtractSettings reads settings at DefaultSettingsPath.
func ExtractSettings(doc []byte) (Settings, error) {
	return (&Extractor{path: DefaultSettingsPath}).Extract(doc)
}

// Merge writes s into doc at the extractor's path, leaving every other key
// untouched. Only dotted field paths can be written.
func (e *Extractor) Merge(doc []byte, s Settings) ([]byte, error) {
	return MergeSettings(doc, e.path, s)
}

// Fields splits the extractor's path into object keys. It fails for paths
// using anything beyond dotted field access, such as indexes or filters.
func (e *Extractor) Fields() ([]string, error) {
	return FieldPath(e.path)
}

// FieldPath splits a dotted JMESPath field path ("a.b.c") into its keys.
func FieldPath(path string) ([]string, error) {
	keys := strings.Split(path, ".")
	for _, k := range keys {
		if !isIdentifier(k) {
			return nil, fmt.Errorf("settings path %q is not a plain field path", path)
		}
	}
	return keys, nil
}

// MergeSettings writes s into doc at the dotted field path. doc may be empty.
func MergeSettings(doc []byte, path string, s Settings) ([]byte, error) {
	keys, err := FieldPath(path)
	if err != nil {
		return nil, err
	}

	root := map[string]any{}
	if trimmed := bytes.TrimSpace(doc); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&root); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "journey settings must be a JSON object")
		}
	}

	node := root
	for _, k := range keys[:len(keys)-1] {
		child, ok := node[k].(map[string]any)
		if !ok {
			child = map[string]any{}
			node[k] = child
		}
		node = child
	}
	node[keys[len(keys)-1]] = s
	return json.Marshal(root)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// MarshalJSON always emits "events" as an array.
func (s Settings) MarshalJSON() ([]byte, error) {
	type plain Settings
	p := plain(s)
	if p.TrackedEvents == nil {
		p.TrackedEvents = []string{}
	}
	return json.Marshal(p)
}
