package sources

import (
	"reflect"
	"testing"
)

func TestSplitList(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"  ", nil},
		{"a", []string{"a"}},
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , ,b ", []string{"a", "b"}},
	}
	for _, c := range cases {
		if got := SplitList(c.in); !reflect.DeepEqual(got, c.want) {
			t.Fatalf("SplitList(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParseTaxonomyFilter(t *testing.T) {
	include, exclude := ParseTaxonomyFilter("workshop,-cancelled,social, -private ,-")
	if !reflect.DeepEqual(include, []string{"workshop", "social"}) {
		t.Fatalf("include = %v", include)
	}
	if !reflect.DeepEqual(exclude, []string{"cancelled", "private"}) {
		t.Fatalf("exclude = %v", exclude)
	}

	include, exclude = ParseTaxonomyFilter("")
	if include != nil || exclude != nil {
		t.Fatalf("empty filter: include=%v exclude=%v", include, exclude)
	}
}
