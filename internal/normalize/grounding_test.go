package normalize_test

import (
	"reflect"
	"testing"

	"github.com/aiushlabs/aiush-gateway/internal/normalize"
	"github.com/aiushlabs/aiush-gateway/pkg/provider/llm"
)

func TestSources_NilMetadata(t *testing.T) {
	t.Parallel()

	if got := normalize.Sources(nil); got != nil {
		t.Errorf("Sources(nil) = %v, want nil", got)
	}
}

func TestSources_DefaultsAndOrder(t *testing.T) {
	t.Parallel()

	md := &llm.GroundingMetadata{Chunks: []llm.GroundingChunk{
		{Web: &llm.WebSource{Title: "WHO fact sheet", URI: "https://who.int/a"}},
		{Web: nil},
		{Web: &llm.WebSource{Title: "", URI: "https://example.com/b"}},
		{Web: &llm.WebSource{Title: "No link", URI: ""}},
		{Web: &llm.WebSource{Title: "WHO fact sheet", URI: "https://who.int/a"}},
	}}

	want := []normalize.SearchResult{
		{Title: "WHO fact sheet", URI: "https://who.int/a"},
		{Title: "Source", URI: "https://example.com/b"},
		{Title: "No link", URI: "#"},
		{Title: "WHO fact sheet", URI: "https://who.int/a"},
	}

	got := normalize.Sources(md)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Sources = %+v, want %+v", got, want)
	}
}

func TestSources_NoUsableChunks(t *testing.T) {
	t.Parallel()

	md := &llm.GroundingMetadata{Chunks: []llm.GroundingChunk{{Web: nil}, {Web: nil}}}
	if got := normalize.Sources(md); got != nil {
		t.Errorf("Sources = %v, want nil so the field is omitted from JSON", got)
	}
}
