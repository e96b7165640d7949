package roles

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/memtower/pkg/errors"
	"github.com/matzehuels/memtower/pkg/trace"
)

// Format is a rules file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// rawMatcher is a matcher as written in a rules file: a bare string or an
// object {type: "regex", expr: "..."}.
type rawMatcher struct {
	Literal string `json:"-" yaml:"-" toml:"-"`
	Type    string `json:"type" yaml:"type" toml:"type"`
	Expr    string `json:"expr" yaml:"expr" toml:"expr"`
	object  bool
}

func (m *rawMatcher) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &m.Literal)
	}
	type plain rawMatcher
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*m = rawMatcher(p)
	m.object = true
	return nil
}

func (m *rawMatcher) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&m.Literal)
	}
	type plain rawMatcher
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*m = rawMatcher(p)
	m.object = true
	return nil
}

// UnmarshalTOML receives the already-decoded value (a string or a table).
func (m *rawMatcher) UnmarshalTOML(v any) error {
	switch t := v.(type) {
	case string:
		m.Literal = t
		return nil
	case map[string]any:
		m.object = true
		m.Type, _ = t["type"].(string)
		m.Expr, _ = t["expr"].(string)
		return nil
	}
	return fmt.Errorf("matcher must be a string or a table, got %T", v)
}

type rawRules struct {
	InOut         []rawMatcher `json:"inout" yaml:"inout" toml:"inout"`
	In            []rawMatcher `json:"in" yaml:"in" toml:"in"`
	Out           []rawMatcher `json:"out" yaml:"out" toml:"out"`
	CaseSensitive bool         `json:"case_sensitive" yaml:"case_sensitive" toml:"case_sensitive"`
}

// Parse decodes JSON rules, gunzipping them first if needed.
func Parse(data []byte) (*Rules, error) {
	return ParseFormat(data, FormatJSON)
}

// ParseFormat decodes rules in the given encoding.
func ParseFormat(data []byte, format Format) (*Rules, error) {
	data, _ = trace.ReadOrDecompress(data)

	var raw rawRules
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &raw)
	case FormatYAML:
		err = yaml.Unmarshal(data, &raw)
	case FormatTOML:
		err = toml.Unmarshal(data, &raw)
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown rules format %q", format)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidRules, err, "decode %s rules", format)
	}
	return raw.compile()
}

// Load reads a rules file. The encoding is chosen by extension (.yaml,
// .yml, .toml, anything else is JSON), ignoring a trailing .gz.
func Load(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "rules file %s", path)
		}
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return ParseFormat(data, FormatForPath(path))
}

// FormatForPath guesses the rules encoding from a file name.
func FormatForPath(path string) Format {
	ext := strings.ToLower(filepath.Ext(strings.TrimSuffix(strings.ToLower(path), ".gz")))
	switch ext {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	}
	return FormatJSON
}

func (raw rawRules) compile() (*Rules, error) {
	r := &Rules{CaseSensitive: raw.CaseSensitive}
	var err error
	if r.InOut, err = compileList("inout", raw.InOut); err != nil {
		return nil, err
	}
	if r.In, err = compileList("in", raw.In); err != nil {
		return nil, err
	}
	if r.Out, err = compileList("out", raw.Out); err != nil {
		return nil, err
	}
	return r, nil
}

func compileList(slot string, raw []rawMatcher) ([]Matcher, error) {
	out := make([]Matcher, 0, len(raw))
	for i, rm := range raw {
		if !rm.object {
			out = append(out, Literal(rm.Literal))
			continue
		}
		if rm.Type != "regex" {
			return nil, errors.New(errors.ErrCodeInvalidRules, "%s[%d]: unknown matcher type %q", slot, i, rm.Type)
		}
		m, err := Pattern(rm.Expr)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidRules, err, "%s[%d]: bad pattern", slot, i)
		}
		out = append(out, m)
	}
	return out, nil
}
