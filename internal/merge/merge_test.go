package merge

import (
	"reflect"
	"testing"
)

type sample struct {
	Enabled *bool
	Limits  map[string]int
	Tags    []string
	Name    string
	Nested  *nested
	hidden  int
}

type nested struct {
	Labels []string
}

func ptr[T any](v T) *T { return &v }

func TestOverwriteReplacesPresentFieldsOnly(t *testing.T) {
	base := sample{
		Enabled: ptr(true),
		Limits:  map[string]int{"a": 1, "b": 2},
		Tags:    []string{"x"},
		Name:    "base",
	}
	patch := sample{
		Limits: map[string]int{"c": 3},
		Name:   "patch",
	}

	got := Overwrite(base, patch)

	if got.Enabled == nil || !*got.Enabled {
		t.Fatalf("expected Enabled kept from base, got %+v", got.Enabled)
	}
	if !reflect.DeepEqual(got.Limits, map[string]int{"c": 3}) {
		t.Fatalf("expected maps replaced wholesale, got %+v", got.Limits)
	}
	if !reflect.DeepEqual(got.Tags, []string{"x"}) {
		t.Fatalf("expected Tags kept from base, got %+v", got.Tags)
	}
	if got.Name != "patch" {
		t.Fatalf("expected Name from patch, got %q", got.Name)
	}
}

func TestOverwriteTreatsEmptyNonNilAsPresent(t *testing.T) {
	base := sample{Tags: []string{"x", "y"}}
	patch := sample{Tags: []string{}}

	got := Overwrite(base, patch)
	if got.Tags == nil || len(got.Tags) != 0 {
		t.Fatalf("expected empty slice to clear tags, got %#v", got.Tags)
	}
}

func TestOverwriteDetachesResult(t *testing.T) {
	base := sample{Limits: map[string]int{"a": 1}, Nested: &nested{Labels: []string{"l"}}}
	patch := sample{Tags: []string{"t"}}

	got := Overwrite(base, patch)
	got.Limits["a"] = 99
	got.Nested.Labels[0] = "changed"
	got.Tags[0] = "changed"

	if base.Limits["a"] != 1 {
		t.Fatalf("expected base map untouched, got %+v", base.Limits)
	}
	if base.Nested.Labels[0] != "l" {
		t.Fatalf("expected base nested untouched, got %+v", base.Nested.Labels)
	}
	if patch.Tags[0] != "t" {
		t.Fatalf("expected patch untouched, got %+v", patch.Tags)
	}
}

func TestOverwriteDisjointUpdatesUnion(t *testing.T) {
	first := Overwrite(sample{}, sample{Name: "a"})
	second := Overwrite(first, sample{Tags: []string{"b"}})
	if second.Name != "a" || !reflect.DeepEqual(second.Tags, []string{"b"}) {
		t.Fatalf("expected union of updates, got %+v", second)
	}
}

func TestCloneCopiesNestedValues(t *testing.T) {
	src := sample{Limits: map[string]int{"a": 1}, Nested: &nested{Labels: []string{"l"}}, hidden: 7}
	clone := Clone(src)
	if !reflect.DeepEqual(src, clone) {
		t.Fatalf("expected equal clone, got %+v", clone)
	}
	clone.Limits["a"] = 2
	clone.Nested.Labels[0] = "x"
	if src.Limits["a"] != 1 || src.Nested.Labels[0] != "l" {
		t.Fatalf("expected source detached from clone: %+v", src)
	}
}

func TestPresentFields(t *testing.T) {
	fields := PresentFields(sample{Name: "n", Tags: []string{}})
	names := make([]string, 0, len(fields))
	for _, field := range fields {
		names = append(names, field.Name)
	}
	if !reflect.DeepEqual(names, []string{"Tags", "Name"}) {
		t.Fatalf("unexpected present fields: %v", names)
	}
	if PresentFields(42) != nil {
		t.Fatalf("expected nil for non-struct input")
	}
}
