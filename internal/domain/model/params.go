package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ParamKind enumerates the value kinds a job parameter may hold.
type ParamKind int

const (
	// ParamString is a JSON string.
	ParamString ParamKind = iota + 1
	// ParamNumber is a JSON number, kept in its literal form.
	ParamNumber
	// ParamBool is a JSON boolean.
	ParamBool
	// ParamObject is a nested JSON object.
	ParamObject
)

func (k ParamKind) String() string {
	switch k {
	case ParamString:
		return "string"
	case ParamNumber:
		return "number"
	case ParamBool:
		return "bool"
	case ParamObject:
		return "object"
	default:
		return "unknown"
	}
}

// ParamValue is a single job parameter value. Exactly one of the typed fields
// is meaningful, selected by Kind.
type ParamValue struct {
	Kind   ParamKind
	Str    string
	Num    json.Number
	Bool   bool
	Object Params
}

// StringParam builds a string parameter.
func StringParam(s string) ParamValue { return ParamValue{Kind: ParamString, Str: s} }

// NumberParam builds a number parameter from its literal form.
func NumberParam(n string) ParamValue { return ParamValue{Kind: ParamNumber, Num: json.Number(n)} }

// BoolParam builds a boolean parameter.
func BoolParam(b bool) ParamValue { return ParamValue{Kind: ParamBool, Bool: b} }

// ObjectParam builds a nested object parameter.
func ObjectParam(p Params) ParamValue { return ParamValue{Kind: ParamObject, Object: p} }

// Interface converts the value into plain Go values suitable for encoding or evaluation.
func (v ParamValue) Interface() any {
	switch v.Kind {
	case ParamString:
		return v.Str
	case ParamNumber:
		return v.Num
	case ParamBool:
		return v.Bool
	case ParamObject:
		return v.Object.Map()
	default:
		return nil
	}
}

// MarshalJSON encodes the value as its natural JSON form.
func (v ParamValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// Params is the decoded parameter mapping handed to a dispatch call.
type Params map[string]ParamValue

// Map converts the parameters into a map of plain Go values.
func (p Params) Map() map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v.Interface()
	}
	return out
}

// ParseError reports malformed job input parameters.
type ParseError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("parse input params")
	if e.Path != "" {
		b.WriteString(" at ")
		b.WriteString(e.Path)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseParams decodes a job's serialized input parameters. Blank input yields an
// empty mapping. The top level must be a JSON object and every value must be a
// string, number, boolean or nested object.
func ParseParams(input string) (Params, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return Params{}, nil
	}

	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, &ParseError{Reason: "invalid JSON", Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &ParseError{Reason: "unexpected trailing data"}
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, &ParseError{Reason: fmt.Sprintf("expected a JSON object, got %s", describeJSON(raw))}
	}
	return convertObject(obj, "")
}

func convertObject(obj map[string]any, path string) (Params, error) {
	out := make(Params, len(obj))
	for key, raw := range obj {
		keyPath := joinParamPath(path, key)
		v, err := convertValue(raw, keyPath)
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}

func convertValue(raw any, path string) (ParamValue, error) {
	switch v := raw.(type) {
	case string:
		return StringParam(v), nil
	case json.Number:
		return ParamValue{Kind: ParamNumber, Num: v}, nil
	case bool:
		return BoolParam(v), nil
	case map[string]any:
		nested, err := convertObject(v, path)
		if err != nil {
			return ParamValue{}, err
		}
		return ObjectParam(nested), nil
	default:
		return ParamValue{}, &ParseError{
			Path:   path,
			Reason: fmt.Sprintf("unsupported value kind %s", describeJSON(raw)),
		}
	}
}

func joinParamPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

func describeJSON(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "bool"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// EncodeParams renders params as a compact JSON object.
func EncodeParams(p Params) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if err := enc.Encode(p.Map()); err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
