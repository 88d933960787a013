package merge

import (
	"strings"

	"github.com/dgallion1/specgest/internal/schema"
)

// Assemble shapes the merged result like the original schema document: the
// title, each leaf replaced by its resolved value with provenance, and the
// not-found list. This is the structure report-generation collaborators
// consume.
func Assemble(walked *schema.Walked, merged *MergedResult) map[string]any {
	params := map[string]any{}
	for _, sec := range walked.Skeleton.Sections {
		target := params
		for _, seg := range strings.Split(sec.Name, "/") {
			next, ok := target[seg].(map[string]any)
			if !ok {
				next = map[string]any{}
				target[seg] = next
			}
			target = next
		}
		for _, name := range sec.Params {
			res, ok := merged.Resolved[name]
			if !ok {
				continue
			}
			var value any = res.Text
			if res.Numeric {
				value = res.Value
			}
			target[name] = map[string]any{
				"value":       value,
				"text":        res.Text,
				"unit":        res.Unit,
				"page_index":  res.Page,
				"bbox":        res.BBox,
				"chunk_index": res.ChunkIndex,
			}
		}
	}

	notFound := merged.NotFound
	if notFound == nil {
		notFound = []string{}
	}
	return map[string]any{
		"title":          walked.Skeleton.Title,
		"parameters":     params,
		"not_found_list": notFound,
	}
}
