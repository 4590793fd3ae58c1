package fields

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"infinite-experiment/plp/internal/common"
	"infinite-experiment/plp/internal/constants"
)

// Option is one choice of a select, checkbox, radio, rating or matrix field.
type Option struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Options is the decoded options blob of a field. Choices and Rows keep the
// order in which they were declared.
//
//	{"options": {"1": "Red", "2": "Blue"}, "multi": false}
//	{"rows": {"a": "Listening"}, "options": {"1": "Weak", "2": "Strong"}}
//	{"max": 5}
type Options struct {
	Choices []Option
	Rows    []Option
	Multi   bool
	Max     int
}

// ParseOptions decodes a stored options blob. An empty blob is valid.
func ParseOptions(raw string) (Options, error) {
	var opts Options
	if strings.TrimSpace(raw) == "" {
		return opts, nil
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &top); err != nil {
		return opts, malformed(err)
	}

	var err error
	if v, ok := top["options"]; ok {
		if opts.Choices, err = orderedOptions(v); err != nil {
			return opts, malformed(err)
		}
	}
	if v, ok := top["rows"]; ok {
		if opts.Rows, err = orderedOptions(v); err != nil {
			return opts, malformed(err)
		}
	}
	if v, ok := top["multi"]; ok {
		var m any
		if err := json.Unmarshal(v, &m); err != nil {
			return opts, malformed(err)
		}
		opts.Multi = cast.ToBool(m)
	}
	if v, ok := top["max"]; ok {
		var m any
		if err := json.Unmarshal(v, &m); err != nil {
			return opts, malformed(err)
		}
		opts.Max = cast.ToInt(m)
	}
	return opts, nil
}

// Label maps a choice key to its label.
func (o Options) Label(key string) (string, bool) {
	for _, c := range o.Choices {
		if c.Key == key {
			return c.Label, true
		}
	}
	return "", false
}

// Labels maps each key in turn, skipping keys that are no longer declared.
func (o Options) Labels(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if l, ok := o.Label(k); ok {
			out = append(out, l)
		}
	}
	return out
}

// orderedOptions reads a JSON object of key to label without losing key order.
// A JSON array of labels is accepted too and keyed from 1.
func orderedOptions(raw json.RawMessage) ([]Option, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	var out []Option
	switch tok {
	case json.Delim('{'):
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, err
			}
			var label any
			if err := dec.Decode(&label); err != nil {
				return nil, err
			}
			out = append(out, Option{Key: kt.(string), Label: cast.ToString(label)})
		}
	case json.Delim('['):
		for i := 1; dec.More(); i++ {
			var label any
			if err := dec.Decode(&label); err != nil {
				return nil, err
			}
			out = append(out, Option{Key: fmt.Sprint(i), Label: cast.ToString(label)})
		}
	default:
		return nil, fmt.Errorf("options must be an object or a list, got %v", tok)
	}
	return out, nil
}

func malformed(err error) error {
	ae := common.ConfigError(constants.ErrCodeConfigMalformed, "invalid field options: %v", err)
	ae.Err = err
	return ae
}
