package corecaller

import (
	"fmt"
	"maps"
	"sync"
	"time"

	otelattribute "go.opentelemetry.io/otel/attribute"
)

// Tags is a set of span attributes, safe for concurrent use.
// The zero value is an empty set; With allocates on first use.
type Tags struct {
	mux *sync.RWMutex
	m   map[string]any
}

func newTags(size int) Tags {
	return Tags{
		mux: new(sync.RWMutex),
		m:   make(map[string]any, size),
	}
}

// NewTags unions plain maps into Tags.
// Empty maps, nil maps, or no arguments at all are fine.
func NewTags(mapsToUnion ...map[string]any) Tags {
	size := 0
	if len(mapsToUnion) > 0 {
		size = len(mapsToUnion[0])
	}

	tags := newTags(size)
	for _, m := range mapsToUnion {
		maps.Copy(tags.m, m)
	}

	return tags
}

// NewTag is a shorthand for a single tag set.
func NewTag(k string, v any) Tags {
	tags := newTags(1)
	tags.m[k] = v

	return tags
}

// With adds a tag to the set. The existing set is modified, unless it
// is the zero value.
func (t Tags) With(k string, v any) Tags {
	if !t.isValid() {
		return NewTag(k, v)
	}

	t.mux.Lock()
	t.m[k] = v
	t.mux.Unlock()

	return t
}

// Len returns the number of tags.
func (t Tags) Len() int {
	if !t.isValid() {
		return 0
	}

	t.mux.RLock()
	defer t.mux.RUnlock()

	return len(t.m)
}

// Range calls rangeFn for each tag until it returns false,
// the same way Go 1.23+ iterators stop.
func (t Tags) Range(rangeFn func(k string, v any) (valid bool)) {
	if !t.isValid() {
		return
	}

	t.mux.RLock()
	defer t.mux.RUnlock()

	for k, v := range t.m {
		if !rangeFn(k, v) {
			return
		}
	}
}

// Union merges the provided tags into a new copy. Later sets win.
func (t Tags) Union(tags ...Tags) Tags {
	allTags := newTags(t.Len())

	t.copyTo(allTags.m)
	for _, other := range tags {
		other.copyTo(allTags.m)
	}

	return allTags
}

// WithGlobalTags returns a copy of t with the global tags of the enabled
// config added, useful for re-using tags for purposes other than tracing.
func (t Tags) WithGlobalTags() Tags {
	globalTags := currentConfig().GlobalTagsMap()
	allTags := newTags(len(globalTags) + t.Len())

	for k, v := range globalTags {
		allTags.m[k] = v
	}
	t.copyTo(allTags.m)

	return allTags
}

func (t Tags) isValid() bool {
	return t.mux != nil
}

func (t Tags) copyTo(dst map[string]any) {
	if !t.isValid() {
		return
	}

	t.mux.RLock()
	maps.Copy(dst, t.m)
	t.mux.RUnlock()
}

func attributesOf(tags []Tags) []otelattribute.KeyValue {
	allTags := NewTags().Union(tags...)

	attributes := make([]otelattribute.KeyValue, 0, allTags.Len())
	allTags.Range(func(k string, v any) bool {
		attributes = append(attributes, toAttribute(k, v))
		return true
	})

	return attributes
}

func toAttribute(k string, v any) otelattribute.KeyValue {
	switch v := v.(type) {
	case nil:
		return otelattribute.String(k, "")
	case string:
		return otelattribute.String(k, v)
	case int:
		return otelattribute.Int(k, v)
	case int32:
		return otelattribute.Int64(k, int64(v))
	case int64:
		return otelattribute.Int64(k, v)
	case uint32:
		return otelattribute.Int64(k, int64(v))
	case float32:
		return otelattribute.Float64(k, float64(v))
	case float64:
		return otelattribute.Float64(k, v)
	case bool:
		return otelattribute.Bool(k, v)
	case time.Duration:
		return otelattribute.String(k, v.String())
	case []string:
		return otelattribute.StringSlice(k, v)
	case []int:
		return otelattribute.IntSlice(k, v)
	case []int64:
		return otelattribute.Int64Slice(k, v)
	case []float64:
		return otelattribute.Float64Slice(k, v)
	case []bool:
		return otelattribute.BoolSlice(k, v)
	case *string:
		if v == nil {
			return otelattribute.String(k, "")
		}
		return otelattribute.String(k, *v)
	case *int:
		if v == nil {
			return otelattribute.String(k, "")
		}
		return otelattribute.Int(k, *v)
	case *int64:
		if v == nil {
			return otelattribute.String(k, "")
		}
		return otelattribute.Int64(k, *v)
	case *bool:
		if v == nil {
			return otelattribute.String(k, "")
		}
		return otelattribute.Bool(k, *v)
	case error:
		return otelattribute.String(k, v.Error())
	case fmt.Stringer:
		return otelattribute.Stringer(k, v)
	}

	return otelattribute.String(k, fmt.Sprintf("%v", v))
}
