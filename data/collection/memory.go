package collection

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Memory is a Collection held in process memory. Documents are stored in
// their BSON form so decoding behaves as it does against MongoDB.
type Memory struct {
	mu    sync.Mutex
	name  string
	docs  map[string]bson.M
	order []string
}

// NewMemory creates an empty in-memory collection.
func NewMemory(name string) *Memory {
	return &Memory{name: name, docs: make(map[string]bson.M)}
}

// Len returns the number of stored documents.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

func (m *Memory) FindOne(ctx context.Context, filter bson.M, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := normalize(filter)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	_, doc := m.first(f)
	if doc == nil {
		return ErrNotFound
	}
	data, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	return bson.Unmarshal(data, out)
}

func (m *Memory) InsertOne(ctx context.Context, doc any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d, err := normalize(doc)
	if err != nil {
		return err
	}
	key, ok := docKey(d)
	if !ok {
		return fmt.Errorf("%s: document has no _id", m.name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.docs[key]; exists {
		return ErrDuplicate
	}
	m.docs[key] = d
	m.order = append(m.order, key)
	return nil
}

func (m *Memory) UpdateOne(ctx context.Context, filter, update bson.M, upsert bool) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f, err := normalize(filter)
	if err != nil {
		return 0, err
	}
	u, err := normalize(update)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, doc := m.first(f); doc != nil {
		if err := applyUpdate(doc, u, false); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if !upsert {
		return 0, nil
	}

	doc := bson.M{}
	for k, v := range f {
		if strings.HasPrefix(k, "$") || isOperatorDoc(v) {
			continue
		}
		setPath(doc, k, v)
	}
	if err := applyUpdate(doc, u, true); err != nil {
		return 0, err
	}
	if _, ok := doc["_id"]; !ok {
		doc["_id"] = NewID()
	}
	key, _ := docKey(doc)
	if _, exists := m.docs[key]; exists {
		return 0, ErrDuplicate
	}
	m.docs[key] = doc
	m.order = append(m.order, key)
	return 1, nil
}

func (m *Memory) DeleteOne(ctx context.Context, filter bson.M) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f, err := normalize(filter)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	idx, doc := m.first(f)
	if doc == nil {
		return 0, nil
	}
	key := m.order[idx]
	delete(m.docs, key)
	m.order = append(m.order[:idx], m.order[idx+1:]...)
	return 1, nil
}

// EnsureIndex is a no-op; every in-memory update runs under one lock.
func (m *Memory) EnsureIndex(context.Context, string, bool) error {
	return nil
}

func (m *Memory) first(filter bson.M) (int, bson.M) {
	for i, key := range m.order {
		doc := m.docs[key]
		if matches(doc, filter) {
			return i, doc
		}
	}
	return -1, nil
}

func normalize(v any) (bson.M, error) {
	if v == nil {
		return bson.M{}, nil
	}
	data, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("invalid document: %w", err)
	}
	out := bson.M{}
	if err := bson.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("invalid document: %w", err)
	}
	return out, nil
}

func docKey(doc bson.M) (string, bool) {
	id, ok := doc["_id"]
	if !ok || id == nil {
		return "", false
	}
	if oid, ok := id.(primitive.ObjectID); ok {
		return oid.Hex(), true
	}
	return fmt.Sprint(id), true
}

func matches(doc, filter bson.M) bool {
	for key, want := range filter {
		got, present := getPath(doc, key)
		if ops, ok := asMap(want); ok && isOperatorDoc(want) {
			for op, arg := range ops {
				switch op {
				case "$exists":
					if truthy(arg) != present {
						return false
					}
				case "$ne":
					if present && valuesEqual(got, arg) {
						return false
					}
					if !present && arg == nil {
						return false
					}
				case "$eq":
					if !present || !valuesEqual(got, arg) {
						return false
					}
				default:
					return false
				}
			}
			continue
		}
		if !present {
			if want != nil {
				return false
			}
			continue
		}
		if !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

func applyUpdate(doc, update bson.M, inserting bool) error {
	for op, arg := range update {
		fields, ok := asMap(arg)
		if !ok {
			return fmt.Errorf("update operator %s expects a document", op)
		}
		switch op {
		case "$set":
			for k, v := range fields {
				setPath(doc, k, v)
			}
		case "$setOnInsert":
			if inserting {
				for k, v := range fields {
					setPath(doc, k, v)
				}
			}
		case "$unset":
			for k := range fields {
				unsetPath(doc, k)
			}
		case "$inc":
			for k, v := range fields {
				cur, _ := getPath(doc, k)
				sum, err := addNumbers(cur, v)
				if err != nil {
					return fmt.Errorf("$inc %s: %w", k, err)
				}
				setPath(doc, k, sum)
			}
		default:
			return fmt.Errorf("unsupported update operator %s", op)
		}
	}
	return nil
}

func isOperatorDoc(v any) bool {
	m, ok := asMap(v)
	if !ok || len(m) == 0 {
		return false
	}
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return false
		}
	}
	return true
}

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case bson.M:
		return t, true
	case map[string]any:
		return t, true
	case bson.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = e.Value
		}
		return m, true
	}
	return nil, false
}

func getPath(doc map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	cur := doc
	for i, p := range parts {
		v, ok := cur[p]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		next, ok := asMap(v)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return nil, false
}

func setPath(doc map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, p := range parts[:len(parts)-1] {
		next, ok := asMap(cur[p])
		if !ok {
			next = bson.M{}
			cur[p] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}

func unsetPath(doc map[string]any, path string) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, p := range parts[:len(parts)-1] {
		next, ok := asMap(cur[p])
		if !ok {
			return
		}
		cur = next
	}
	delete(cur, parts[len(parts)-1])
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case nil:
		return false
	}
	if f, ok := toFloat(v); ok {
		return f != 0
	}
	return true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func addNumbers(cur, delta any) (any, error) {
	if cur == nil {
		cur = int32(0)
	}
	d, ok := toFloat(delta)
	if !ok {
		return nil, fmt.Errorf("non-numeric increment %v", delta)
	}
	c, ok := toFloat(cur)
	if !ok {
		return nil, fmt.Errorf("non-numeric field value %v", cur)
	}
	_, curFloat := cur.(float64)
	_, deltaFloat := delta.(float64)
	if curFloat || deltaFloat {
		return c + d, nil
	}
	return int64(c) + int64(d), nil
}

func valuesEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	if ta, ok := a.(primitive.DateTime); ok {
		switch tb := b.(type) {
		case primitive.DateTime:
			return ta == tb
		case time.Time:
			return ta == primitive.NewDateTimeFromTime(tb)
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}
