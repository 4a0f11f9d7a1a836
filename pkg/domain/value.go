package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ValueKind hints how a dynamic value should be interpreted.
// The zero value (KindAuto) means "use whatever the wire encoding says".
type ValueKind string

const (
	KindAuto    ValueKind = ""
	KindString  ValueKind = "string"
	KindNumber  ValueKind = "number"
	KindBoolean ValueKind = "boolean"
	KindColor   ValueKind = "color"
	KindEnum    ValueKind = "enum"
	KindObject  ValueKind = "object"
	KindArray   ValueKind = "array"
	KindNull    ValueKind = "null"
)

// ParseValueKind validates a kind received from the wire.
func ParseValueKind(s string) (ValueKind, error) {
	switch k := ValueKind(strings.ToLower(s)); k {
	case KindAuto, KindString, KindNumber, KindBoolean, KindColor, KindEnum, KindObject, KindArray, KindNull:
		return k, nil
	}
	return KindAuto, fmt.Errorf("unknown value kind %q", s)
}

// Coerce converts a decoded JSON value to the representation implied by kind.
// Colors and enums are carried as their string/number form.
func Coerce(kind ValueKind, v any) (any, error) {
	switch kind {
	case KindAuto:
		return v, nil
	case KindNull:
		return nil, nil
	case KindString, KindEnum:
		switch t := v.(type) {
		case string:
			return t, nil
		case nil:
			return "", nil
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64), nil
		case bool:
			return strconv.FormatBool(t), nil
		}
	case KindNumber, KindColor:
		switch t := v.(type) {
		case float64:
			return t, nil
		case int:
			return float64(t), nil
		case json.Number:
			return t.Float64()
		case string:
			if kind == KindColor && strings.HasPrefix(t, "#") {
				n, err := strconv.ParseUint(strings.TrimPrefix(t, "#"), 16, 32)
				if err != nil {
					return nil, fmt.Errorf("invalid color %q: %w", t, err)
				}
				return float64(n), nil
			}
			return strconv.ParseFloat(strings.TrimSpace(t), 64)
		}
	case KindBoolean:
		switch t := v.(type) {
		case bool:
			return t, nil
		case string:
			return strconv.ParseBool(strings.TrimSpace(t))
		case float64:
			return t != 0, nil
		}
	case KindObject:
		switch t := v.(type) {
		case map[string]any, Props:
			return t, nil
		case string:
			var m map[string]any
			if err := json.Unmarshal([]byte(t), &m); err != nil {
				return nil, fmt.Errorf("invalid object literal: %w", err)
			}
			return m, nil
		}
	case KindArray:
		switch t := v.(type) {
		case []any:
			return t, nil
		case string:
			var a []any
			if err := json.Unmarshal([]byte(t), &a); err != nil {
				return nil, fmt.Errorf("invalid array literal: %w", err)
			}
			return a, nil
		}
	default:
		return nil, fmt.Errorf("unknown value kind %q", kind)
	}
	return nil, fmt.Errorf("cannot use %T as %s", v, kind)
}

// Value is a typed property value. Mutable values may be edited through setData.
type Value struct {
	Kind    ValueKind
	Data    any
	Mutable bool
}

// Editable wraps data as a mutable value of the given kind.
func Editable(kind ValueKind, data any) Value {
	return Value{Kind: kind, Data: data, Mutable: true}
}

// ReadOnly wraps data as an immutable value of the given kind.
func ReadOnly(kind ValueKind, data any) Value {
	return Value{Kind: kind, Data: data}
}

func (v Value) MarshalJSON() ([]byte, error) {
	kind := v.Kind
	if kind == KindAuto {
		kind = KindString
	}
	return json.Marshal(struct {
		Type    ValueKind `json:"__type__"`
		Mutable bool      `json:"__mutable__"`
		Value   any       `json:"value"`
	}{kind, v.Mutable, v.Data})
}

// Prop is a single entry of a Props.
type Prop struct {
	Key   string
	Value any
}

// Props is an insertion-ordered property map. It marshals to a JSON object
// whose keys keep their insertion order.
type Props []Prop

// Get returns the value stored under key.
func (p Props) Get(key string) (any, bool) {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return nil, false
}

// Set replaces the value under key, or appends it.
func (p *Props) Set(key string, v any) {
	for i := range *p {
		if (*p)[i].Key == key {
			(*p)[i].Value = v
			return
		}
	}
	*p = append(*p, Prop{Key: key, Value: v})
}

// Keys returns the keys in insertion order.
func (p Props) Keys() []string {
	keys := make([]string, len(p))
	for i, kv := range p {
		keys[i] = kv.Key
	}
	return keys
}

func (p Props) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kv := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(kv.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(kv.Value)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", kv.Key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (p *Props) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	v, err := decodeOrdered(dec)
	if err != nil {
		return err
	}
	props, ok := v.(Props)
	if !ok {
		return fmt.Errorf("expected JSON object, got %T", v)
	}
	*p = props
	return nil
}

// Group is a named section of a node's data.
type Group struct {
	Name  string
	Props Props
}

// Groups is the ordered list of data sections of a node.
type Groups []Group

// Get returns the properties of the named group.
func (g Groups) Get(name string) (Props, bool) {
	for _, grp := range g {
		if grp.Name == name {
			return grp.Props, true
		}
	}
	return nil, false
}

// Lookup resolves a path of the form [group, key, nested...] against g.
func (g Groups) Lookup(path []string) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}
	props, ok := g.Get(path[0])
	if !ok {
		return nil, false
	}
	var cur any = props
	for _, key := range path[1:] {
		switch t := cur.(type) {
		case Props:
			cur, ok = t.Get(key)
		case map[string]any:
			cur, ok = t[key]
		default:
			ok = false
		}
		if !ok {
			return nil, false
		}
	}
	if v, isValue := cur.(Value); isValue {
		return v.Data, true
	}
	return cur, true
}

func (g Groups) MarshalJSON() ([]byte, error) {
	props := make(Props, len(g))
	for i, grp := range g {
		inner := grp.Props
		if inner == nil {
			inner = Props{}
		}
		props[i] = Prop{Key: grp.Name, Value: inner}
	}
	return props.MarshalJSON()
}

func (g *Groups) UnmarshalJSON(data []byte) error {
	var props Props
	if err := props.UnmarshalJSON(data); err != nil {
		return err
	}
	out := make(Groups, 0, len(props))
	for _, kv := range props {
		inner, _ := kv.Value.(Props)
		out = append(out, Group{Name: kv.Key, Props: inner})
	}
	*g = out
	return nil
}

// decodeOrdered decodes the next JSON value, keeping object key order by
// producing Props instead of maps.
func decodeOrdered(dec *json.Decoder) (any, error) {
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			props := Props{}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, _ := keyTok.(string)
				v, err := decodeOrdered(dec)
				if err != nil {
					return nil, err
				}
				props = append(props, Prop{Key: key, Value: v})
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return props, nil
		case '[':
			arr := []any{}
			for dec.More() {
				v, err := decodeOrdered(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f, nil
		}
		return t.String(), nil
	default:
		return t, nil
	}
}
