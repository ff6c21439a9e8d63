package normalize

import "github.com/aiushlabs/aiush-gateway/pkg/provider/llm"

// Sources walks upstream grounding metadata and produces the ordered
// searchResults list. Chunks without a web reference are skipped;
// absent titles default to "Source" and absent URIs to "#". Upstream
// order is preserved and duplicates pass through untouched.
//
// The return value is nil — not an empty slice — when no chunk yields a
// usable reference, so the field is omitted from the serialized
// Response rather than rendered as an empty list.
func Sources(md *llm.GroundingMetadata) []SearchResult {
	if md == nil {
		return nil
	}

	var results []SearchResult
	for _, chunk := range md.Chunks {
		if chunk.Web == nil {
			continue
		}
		title := chunk.Web.Title
		if title == "" {
			title = "Source"
		}
		uri := chunk.Web.URI
		if uri == "" {
			uri = "#"
		}
		results = append(results, SearchResult{Title: title, URI: uri})
	}
	return results
}
