package query

import (
	"errors"
	"strings"
	"testing"

	"github.com/corvus-cloud/vecgate/internal/domain"
	"github.com/corvus-cloud/vecgate/internal/domain/search/filter"
)

func mustParse(t *testing.T, raw map[string]any) filter.Node {
	t.Helper()
	node, err := filter.Parse(raw)
	if err != nil {
		t.Fatalf("parse filter: %v", err)
	}
	return node
}

func docTokens() *DocumentDialect {
	return NewDocumentDialect(DocumentConfig{Container: "items"})
}

func TestCompileFilter_Eq(t *testing.T) {
	frag, err := compileFilter(mustParse(t, map[string]any{"category": "books"}), docTokens(), &paramGen{})
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}

	want := `c["metadata"]["category"] = @p0`
	if frag.text != want {
		t.Errorf("text = %q, want %q", frag.text, want)
	}
	if len(frag.params) != 1 || frag.params[0].Name != "p0" || frag.params[0].Value != "books" {
		t.Errorf("params = %+v", frag.params)
	}
}

func TestCompileFilter_EqStringifiesScalars(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want string
	}{
		{"int", 42, "42"},
		{"float", 4.5, "4.5"},
		{"bool", true, "true"},
		{"string", "x", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frag, err := compileFilter(mustParse(t, map[string]any{"a": tt.raw}), docTokens(), &paramGen{})
			if err != nil {
				t.Fatalf("compile error: %v", err)
			}
			if frag.params[0].Value != tt.want {
				t.Errorf("param value = %v, want %q", frag.params[0].Value, tt.want)
			}
		})
	}
}

func TestCompileFilter_NumericCast(t *testing.T) {
	frag, err := compileFilter(
		mustParse(t, map[string]any{"price": map[string]any{"$gte": 10}}), docTokens(), &paramGen{})
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}

	want := `StringToNumber(c["metadata"]["price"]) >= @p0`
	if frag.text != want {
		t.Errorf("text = %q, want %q", frag.text, want)
	}
	if v, ok := frag.params[0].Value.(int64); !ok || v != 10 {
		t.Errorf("param value = %v (%T), want int64(10)", frag.params[0].Value, frag.params[0].Value)
	}
}

func TestCompileFilter_NumericOpStringValueSkipsCast(t *testing.T) {
	frag, err := compileFilter(
		mustParse(t, map[string]any{"version": map[string]any{"$gt": "1.2"}}), docTokens(), &paramGen{})
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}

	want := `c["metadata"]["version"] > @p0`
	if frag.text != want {
		t.Errorf("text = %q, want %q", frag.text, want)
	}
}

func TestCompileFilter_Between(t *testing.T) {
	t.Run("numeric bounds cast", func(t *testing.T) {
		frag, err := compileFilter(
			mustParse(t, map[string]any{"price": map[string]any{"$between": []any{5, 20}}}), docTokens(), &paramGen{})
		if err != nil {
			t.Fatalf("compile error: %v", err)
		}
		want := `(StringToNumber(c["metadata"]["price"]) >= @p0 AND StringToNumber(c["metadata"]["price"]) <= @p1)`
		if frag.text != want {
			t.Errorf("text = %q, want %q", frag.text, want)
		}
		if len(frag.params) != 2 {
			t.Fatalf("params = %d, want 2", len(frag.params))
		}
	})

	t.Run("textual bounds stay lexical", func(t *testing.T) {
		frag, err := compileFilter(
			mustParse(t, map[string]any{"tag": map[string]any{"$between": []any{"a", "m"}}}), docTokens(), &paramGen{})
		if err != nil {
			t.Fatalf("compile error: %v", err)
		}
		if strings.Contains(frag.text, "StringToNumber") {
			t.Errorf("text = %q, unexpected numeric cast", frag.text)
		}
	})

	t.Run("mixed bounds cast", func(t *testing.T) {
		frag, err := compileFilter(
			mustParse(t, map[string]any{"v": map[string]any{"$between": []any{"1", 2}}}), docTokens(), &paramGen{})
		if err != nil {
			t.Fatalf("compile error: %v", err)
		}
		if !strings.Contains(frag.text, "StringToNumber") {
			t.Errorf("text = %q, want numeric cast", frag.text)
		}
	})
}

func TestCompileFilter_InNotIn(t *testing.T) {
	frag, err := compileFilter(
		mustParse(t, map[string]any{"category": map[string]any{"$in": []any{"books", 3}}}), docTokens(), &paramGen{})
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	want := `c["metadata"]["category"] IN (@p0, @p1)`
	if frag.text != want {
		t.Errorf("text = %q, want %q", frag.text, want)
	}
	if frag.params[1].Value != "3" {
		t.Errorf("second param = %v, want \"3\"", frag.params[1].Value)
	}

	frag, err = compileFilter(
		mustParse(t, map[string]any{"category": map[string]any{"$nin": []string{"spam"}}}), docTokens(), &paramGen{})
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	if !strings.Contains(frag.text, "NOT IN (@p0)") {
		t.Errorf("text = %q, want NOT IN", frag.text)
	}
}

func TestCompileFilter_Like(t *testing.T) {
	frag, err := compileFilter(
		mustParse(t, map[string]any{"title": map[string]any{"$like": "%go%"}}), docTokens(), &paramGen{})
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	want := `c["metadata"]["title"] LIKE @p0`
	if frag.text != want {
		t.Errorf("text = %q, want %q", frag.text, want)
	}
	if frag.params[0].Value != "%go%" {
		t.Errorf("param = %v, want pattern", frag.params[0].Value)
	}
}

func TestCompileFilter_Connectives(t *testing.T) {
	frag, err := compileFilter(mustParse(t, map[string]any{
		"$or": []any{
			map[string]any{"a": "x"},
			map[string]any{"$and": []any{
				map[string]any{"b": map[string]any{"$gt": 1}},
				map[string]any{"c": map[string]any{"$lt": 5}},
			}},
		},
	}), docTokens(), &paramGen{})
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}

	want := `(c["metadata"]["a"] = @p0 OR ` +
		`(StringToNumber(c["metadata"]["b"]) > @p1 AND StringToNumber(c["metadata"]["c"]) < @p2))`
	if frag.text != want {
		t.Errorf("text = %q, want %q", frag.text, want)
	}
	if len(frag.params) != 3 {
		t.Errorf("params = %d, want 3", len(frag.params))
	}
}

func TestCompileFilter_SingleChildDegenerates(t *testing.T) {
	frag, err := compileFilter(mustParse(t, map[string]any{
		"$and": []any{map[string]any{"a": "x"}},
	}), docTokens(), &paramGen{})
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	if strings.HasPrefix(frag.text, "(") {
		t.Errorf("text = %q, single child should not be wrapped", frag.text)
	}
}

func TestCompileFilter_NoValueLeaksIntoText(t *testing.T) {
	// Hostile-looking values must end up in params only.
	payload := `'; DROP TABLE items --`
	frag, err := compileFilter(mustParse(t, map[string]any{
		"a": payload,
		"b": map[string]any{"$in": []any{payload}},
		"c": map[string]any{"$like": payload},
	}), docTokens(), &paramGen{})
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	if strings.Contains(frag.text, "DROP") {
		t.Errorf("text = %q, value leaked into statement", frag.text)
	}
	if len(frag.params) != 3 {
		t.Errorf("params = %d, want 3", len(frag.params))
	}
}

func TestCompileFilter_ParamNamesSequential(t *testing.T) {
	frag, err := compileFilter(mustParse(t, map[string]any{
		"a": "1",
		"b": "2",
		"c": "3",
	}), docTokens(), &paramGen{})
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	for i, p := range frag.params {
		want := "p" + string(rune('0'+i))
		if p.Name != want {
			t.Errorf("param %d name = %q, want %q", i, p.Name, want)
		}
	}
}

func TestCompileFilter_NilNode(t *testing.T) {
	_, err := compileFilter(nil, docTokens(), &paramGen{})
	if !errors.Is(err, domain.ErrUnsupportedOperator) {
		t.Errorf("error = %v, want ErrUnsupportedOperator", err)
	}
}
