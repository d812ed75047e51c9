package containers

import (
	"cmp"
	"fmt"
	"iter"
	"reflect"
	"slices"
)

// Pair is one key/value entry of an OrderedMap.
type Pair struct {
	Key   any
	Value any
}

// OrderedMap is an insertion-ordered mapping with unique keys.
// Keys that Go cannot hash ([]byte, Tuple, []any) are indexed by content.
// The zero value is ready to use. Not safe for concurrent mutation.
type OrderedMap struct {
	pairs []Pair
	index map[any]int
}

// NewOrderedMap inserts pairs in order; a repeated key overwrites the
// value but keeps its first position.
func NewOrderedMap(pairs ...Pair) *OrderedMap {
	m := &OrderedMap{}
	for _, p := range pairs {
		m.Set(p.Key, p.Value)
	}
	return m
}

type bytesKey string

type reprKey string

func indexKey(k any) any {
	switch v := k.(type) {
	case nil:
		return nil
	case []byte:
		return bytesKey(v)
	case Tuple, []any:
		return reprKey(fmt.Sprintf("%#v", v))
	}
	if reflect.ValueOf(k).Comparable() {
		return k
	}
	return reprKey(fmt.Sprintf("%T:%#v", k, k))
}

func (m *OrderedMap) Set(k, v any) {
	if m.index == nil {
		m.index = make(map[any]int)
	}
	ik := indexKey(k)
	if i, ok := m.index[ik]; ok {
		m.pairs[i].Value = v
		return
	}
	m.index[ik] = len(m.pairs)
	m.pairs = append(m.pairs, Pair{Key: k, Value: v})
}

func (m *OrderedMap) Get(k any) (any, bool) {
	if m == nil || m.index == nil {
		return nil, false
	}
	i, ok := m.index[indexKey(k)]
	if !ok {
		return nil, false
	}
	return m.pairs[i].Value, true
}

// Delete removes k and reports whether it was present.
func (m *OrderedMap) Delete(k any) bool {
	if m == nil || m.index == nil {
		return false
	}
	ik := indexKey(k)
	i, ok := m.index[ik]
	if !ok {
		return false
	}
	m.pairs = slices.Delete(m.pairs, i, i+1)
	delete(m.index, ik)
	for j := i; j < len(m.pairs); j++ {
		m.index[indexKey(m.pairs[j].Key)] = j
	}
	return true
}

func (m *OrderedMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.pairs)
}

func (m *OrderedMap) Keys() []any {
	out := make([]any, m.Len())
	for i := range out {
		out[i] = m.pairs[i].Key
	}
	return out
}

func (m *OrderedMap) Values() []any {
	out := make([]any, m.Len())
	for i := range out {
		out[i] = m.pairs[i].Value
	}
	return out
}

// Pairs returns a copy of the entries in order.
func (m *OrderedMap) Pairs() []Pair {
	if m == nil {
		return nil
	}
	return slices.Clone(m.pairs)
}

func (m *OrderedMap) All() iter.Seq2[any, any] {
	return func(yield func(any, any) bool) {
		for i := 0; i < m.Len(); i++ {
			if !yield(m.pairs[i].Key, m.pairs[i].Value) {
				return
			}
		}
	}
}

// Equal reports whether both maps hold deeply equal entries in the same
// order.
func (m *OrderedMap) Equal(o *OrderedMap) bool {
	if m.Len() != o.Len() {
		return false
	}
	for i := 0; i < m.Len(); i++ {
		if !reflect.DeepEqual(m.pairs[i], o.pairs[i]) {
			return false
		}
	}
	return true
}

// OrderedDictionary encodes a mapping as an Array of (key, value) Rows and
// decodes it back into an *OrderedMap.
type OrderedDictionary struct {
	key, value Container
	arr        *Array
}

var _ Container = (*OrderedDictionary)(nil)

// NewOrderedDictionary reads entries until the buffer is exhausted.
func NewOrderedDictionary(key, value Container) (*OrderedDictionary, error) {
	return newOrderedDictionary(key, value, 0)
}

// NewFixedOrderedDictionary holds exactly n entries.
func NewFixedOrderedDictionary(key, value Container, n int) (*OrderedDictionary, error) {
	if n < 1 {
		return nil, invalidValue("n", n, ">= 1")
	}
	return newOrderedDictionary(key, value, n)
}

func newOrderedDictionary(key, value Container, n int) (*OrderedDictionary, error) {
	row, err := NewRow(key, value)
	if err != nil {
		return nil, err
	}
	arr, err := NewArray(row)
	if err != nil {
		return nil, err
	}
	arr.n = n
	return &OrderedDictionary{key: key, value: value, arr: arr}, nil
}

func (c *OrderedDictionary) Kind() Kind                { return KindOrderedDictionary }
func (c *OrderedDictionary) Fixed() bool               { return c.arr.Fixed() }
func (c *OrderedDictionary) DataSize() (int, bool)     { return c.arr.DataSize() }
func (c *OrderedDictionary) KeyContainer() Container   { return c.key }
func (c *OrderedDictionary) ValueContainer() Container { return c.value }

// Len is the entry count, when set at construction.
func (c *OrderedDictionary) Len() (int, bool) { return c.arr.Len() }

// Encode accepts *OrderedMap, OrderedMap, []Pair (duplicate keys are
// written as given) or a Go map with string or numeric keys, which is
// written in ascending key order.
func (c *OrderedDictionary) Encode(v any) (Result, error) {
	pairs, err := dictPairs(v)
	if err != nil {
		return Result{}, err
	}
	rows := make([]any, len(pairs))
	for i, p := range pairs {
		rows[i] = []any{p.Key, p.Value}
	}
	r, err := c.arr.Encode(rows)
	if err != nil {
		return Result{}, err
	}
	r.Value = toOrderedMap(r.Value)
	return r, nil
}

func (c *OrderedDictionary) Decode(data []byte, entire bool) (Result, error) {
	r, err := c.arr.Decode(data, entire)
	if err != nil {
		return Result{}, err
	}
	r.Value = toOrderedMap(r.Value)
	return r, nil
}

func toOrderedMap(v any) *OrderedMap {
	rows, _ := asSlice(v)
	m := &OrderedMap{}
	for _, row := range rows {
		kv, _ := asSlice(row)
		m.Set(kv[0], kv[1])
	}
	return m
}

func dictPairs(v any) ([]Pair, error) {
	switch m := v.(type) {
	case *OrderedMap:
		if m == nil {
			return nil, invalidType("value", v, "non-nil *OrderedMap")
		}
		return m.pairs, nil
	case OrderedMap:
		return m.pairs, nil
	case []Pair:
		return m, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return nil, invalidType("value", v, "mapping")
	}
	keys := rv.MapKeys()
	cmpKeys, ok := keyCompare(rv.Type().Key())
	if !ok {
		return nil, invalidType("value", v, "map with string or numeric keys")
	}
	slices.SortFunc(keys, cmpKeys)
	pairs := make([]Pair, len(keys))
	for i, k := range keys {
		pairs[i] = Pair{Key: k.Interface(), Value: rv.MapIndex(k).Interface()}
	}
	return pairs, nil
}

func keyCompare(t reflect.Type) (func(a, b reflect.Value) int, bool) {
	switch t.Kind() {
	case reflect.String:
		return func(a, b reflect.Value) int { return cmp.Compare(a.String(), b.String()) }, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(a, b reflect.Value) int { return cmp.Compare(a.Int(), b.Int()) }, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return func(a, b reflect.Value) int { return cmp.Compare(a.Uint(), b.Uint()) }, true
	case reflect.Float32, reflect.Float64:
		return func(a, b reflect.Value) int { return cmp.Compare(a.Float(), b.Float()) }, true
	}
	return nil, false
}
