package types

import (
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/google/go-querystring/query"
)

// Params is an ordered mapping of request parameters. Setting a key that is
// already present replaces its value but keeps its original position, so
// merging caller parameters over defaults is "later write wins".
type Params struct {
	keys   []string
	values map[string]interface{}
}

// NewParams returns a new empty parameter set.
func NewParams() *Params {
	return &Params{
		values: make(map[string]interface{}),
	}
}

// P builds a parameter set from alternating key/value pairs, for example
// P("max_id", "abc", "count", 12). It panics on an odd number of arguments or a
// non-string key.
func P(kv ...interface{}) *Params {
	if len(kv)%2 != 0 {
		panic("types.P: odd number of arguments")
	}

	p := NewParams()

	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("types.P: key %v is not a string", kv[i]))
		}

		p.Set(key, kv[i+1])
	}

	return p
}

// Set sets the value of key.
func (p *Params) Set(key string, value interface{}) {
	if p.values == nil {
		p.values = make(map[string]interface{})
	}

	_, found := p.values[key]
	if !found {
		p.keys = append(p.keys, key)
	}

	p.values[key] = value
}

// Get returns the value of key and whether it is present.
func (p *Params) Get(key string) (interface{}, bool) {
	if p == nil {
		return nil, false
	}

	v, found := p.values[key]
	return v, found
}

// Keys returns the keys in insertion order.
func (p *Params) Keys() []string {
	if p == nil {
		return nil
	}

	keys := make([]string, len(p.keys))
	copy(keys, p.keys)

	return keys
}

// Len returns the number of keys. A nil Params is empty.
func (p *Params) Len() int {
	if p == nil {
		return 0
	}

	return len(p.keys)
}

// Merge sets every key of other on p, in other's order. A nil other is a no-op.
func (p *Params) Merge(other *Params) {
	if other == nil {
		return
	}

	for _, key := range other.keys {
		p.Set(key, other.values[key])
	}
}

// ParamsOf encodes the struct v with its `url` tags, as go-querystring does,
// keeping the order in which the fields are declared. Fields left out of the
// encoding (omitempty, "-") are not set.
func ParamsOf(v interface{}) (*Params, error) {
	vals, err := query.Values(v)
	if err != nil {
		return nil, err
	}

	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	p := NewParams()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			continue
		}

		name := strings.Split(field.Tag.Get("url"), ",")[0]
		if name == "-" {
			continue
		}

		if name == "" {
			name = field.Name
		}

		values, found := vals[name]
		if !found || len(values) == 0 {
			continue
		}

		p.Set(name, values[0])
	}

	return p, nil
}

// Map returns a copy of the parameters as a plain map, suitable for JSON
// encoding.
func (p *Params) Map() map[string]interface{} {
	res := make(map[string]interface{}, p.Len())

	if p == nil {
		return res
	}

	for key, value := range p.values {
		res[key] = value
	}

	return res
}

// Encode returns the URL encoded form of the parameters ("a=1&b=2"), keys in
// insertion order.
func (p *Params) Encode() string {
	if p.Len() == 0 {
		return ""
	}

	var buf strings.Builder

	for i, key := range p.keys {
		if i > 0 {
			buf.WriteByte('&')
		}

		buf.WriteString(url.QueryEscape(key))
		buf.WriteByte('=')
		buf.WriteString(url.QueryEscape(FormatValue(p.values[key])))
	}

	return buf.String()
}

// FormatValue renders a parameter value the way it is sent on the wire.
func FormatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int8, int16, int32, int64:
		return strconv.FormatInt(reflect.ValueOf(val).Int(), 10)
	case uint, uint8, uint16, uint32, uint64:
		return strconv.FormatUint(reflect.ValueOf(val).Uint(), 10)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
