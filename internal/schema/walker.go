package schema

import (
	"sort"
	"strings"
)

// Walk flattens the schema document into leaf parameter descriptors and the
// structural skeleton. It is a pure transform: the document is not mutated.
//
// The document must carry the three-part shape required of a target schema: a
// title section, a parameters section and a not-found-list section. Shared
// definitions under $defs (or definitions) are resolved through $ref; a ref
// that cannot be resolved, a ref cycle, or a parameter-name collision within
// a section fails with *Error.
func Walk(doc *Document) (*Walked, error) {
	if doc == nil || doc.root == nil {
		return nil, schemaErr(ErrMalformed, "", "empty schema document")
	}

	props, ok := mapValue(doc.root, "properties")
	if !ok {
		return nil, schemaErr(ErrMalformed, "", "top-level properties missing")
	}
	for _, key := range []string{"title", "parameters", "not_found_list"} {
		if _, ok := props[key]; !ok {
			return nil, schemaErr(ErrMalformed, "", "required top-level section %q missing", key)
		}
	}

	w := &walker{root: doc.root, visiting: map[string]bool{}, seen: map[string]string{}}

	paramsNode, _, err := w.resolve(props["parameters"], "parameters")
	if err != nil {
		return nil, err
	}
	sections, ok := mapValue(paramsNode, "properties")
	if !ok {
		return nil, schemaErr(ErrMalformed, "parameters", "parameters section has no properties")
	}

	walked := &Walked{
		Skeleton: Skeleton{
			Title:    stringValue(doc.root, "title"),
			Required: stringSlice(doc.root, "required"),
		},
	}
	for _, name := range sortedKeys(sections) {
		if err := w.walkSection(walked, name, sections[name]); err != nil {
			return nil, err
		}
	}
	return walked, nil
}

type walker struct {
	root     map[string]any
	visiting map[string]bool   // $ref targets on the current resolution path
	seen     map[string]string // parameter name -> section that declared it
}

// walkSection recurses into one section, collecting leaf descriptors. A
// property whose resolved node itself has properties is a nested subsection.
// Refs expanded for a node stay marked as visiting until the walk under that
// node completes, so a cycle that re-enters a definition through a
// properties level is caught on re-entry instead of recursing forever.
func (w *walker) walkSection(out *Walked, path string, raw any) error {
	node, refs, err := w.resolve(raw, path)
	if err != nil {
		return err
	}
	defer w.release(refs)
	props, ok := mapValue(node, "properties")
	if !ok {
		return schemaErr(ErrMalformed, path, "section has no properties")
	}

	sec := Section{Name: path}
	for _, name := range sortedKeys(props) {
		if !validName(name) {
			return schemaErr(ErrMalformed, path+"/"+name, "parameter name is not ASCII-safe")
		}
		child, childRefs, err := w.resolve(props[name], path+"/"+name)
		if err != nil {
			return err
		}
		if _, nested := mapValue(child, "properties"); nested {
			err := w.walkSection(out, path+"/"+name, child)
			w.release(childRefs)
			if err != nil {
				return err
			}
			continue
		}
		w.release(childRefs)
		// Parameter names key the merged result, so they must be unique
		// across the whole document, not just within their section.
		if prev, dup := w.seen[name]; dup {
			return schemaErr(ErrCollision, path+"/"+name, "parameter already declared in section %s", prev)
		}
		w.seen[name] = path
		out.Descriptors = append(out.Descriptors, Descriptor{
			Name:        name,
			Section:     path,
			Label:       stringValue(child, "title"),
			Description: stringValue(child, "description"),
			DesiredUnit: stringValue(child, "desiredUnit"),
		})
		sec.Params = append(sec.Params, name)
	}
	if len(sec.Params) > 0 {
		out.Skeleton.Sections = append(out.Skeleton.Sections, sec)
	}
	return nil
}

// resolve expands $ref chains and allOf compositions into a plain schema
// node. Every ref expanded on the way is marked visiting and returned to the
// caller, which releases the marks once it is done walking under the resolved
// node. A ref met while still marked is a cycle, whether it closes inside one
// chain or through a nested properties level.
func (w *walker) resolve(raw any, path string) (map[string]any, []string, error) {
	node, ok := raw.(map[string]any)
	if !ok {
		return nil, nil, schemaErr(ErrMalformed, path, "schema node is not an object")
	}

	if ref, ok := node["$ref"].(string); ok {
		if w.visiting[ref] {
			return nil, nil, schemaErr(ErrCyclic, path, "reference cycle through %s", ref)
		}
		target, err := w.deref(ref, path)
		if err != nil {
			return nil, nil, err
		}
		w.visiting[ref] = true
		resolved, refs, err := w.resolve(target, path)
		if err != nil {
			return nil, nil, err
		}
		return resolved, append(refs, ref), nil
	}

	if branches, ok := node["allOf"].([]any); ok {
		return w.mergeAllOf(node, branches, path)
	}
	return node, nil, nil
}

func (w *walker) release(refs []string) {
	for _, ref := range refs {
		delete(w.visiting, ref)
	}
}

// mergeAllOf composes the branches' properties into one node. The same
// parameter name arriving from two branches is a collision, not an override.
func (w *walker) mergeAllOf(node map[string]any, branches []any, path string) (map[string]any, []string, error) {
	merged := map[string]any{}
	mergedProps := map[string]any{}
	var refs []string
	for k, v := range node {
		if k != "allOf" {
			merged[k] = v
		}
	}
	for _, branch := range branches {
		resolved, branchRefs, err := w.resolve(branch, path)
		if err != nil {
			return nil, nil, err
		}
		refs = append(refs, branchRefs...)
		for k, v := range resolved {
			if k == "properties" {
				continue
			}
			if _, exists := merged[k]; !exists {
				merged[k] = v
			}
		}
		props, ok := mapValue(resolved, "properties")
		if !ok {
			continue
		}
		for name, sub := range props {
			if _, exists := mergedProps[name]; exists {
				return nil, nil, schemaErr(ErrCollision, path+"/"+name, "parameter declared by more than one allOf branch")
			}
			mergedProps[name] = sub
		}
	}
	if len(mergedProps) > 0 {
		merged["properties"] = mergedProps
	}
	return merged, refs, nil
}

// deref navigates a local JSON pointer ("#/$defs/...").
func (w *walker) deref(ref, path string) (any, error) {
	if !strings.HasPrefix(ref, "#/") {
		return nil, schemaErr(ErrUnresolvedRef, path, "only local refs are supported, got %q", ref)
	}
	var cur any = w.root
	for _, seg := range strings.Split(strings.TrimPrefix(ref, "#/"), "/") {
		seg = strings.ReplaceAll(strings.ReplaceAll(seg, "~1", "/"), "~0", "~")
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, schemaErr(ErrUnresolvedRef, path, "cannot resolve %q", ref)
		}
		cur, ok = m[seg]
		if !ok {
			return nil, schemaErr(ErrUnresolvedRef, path, "cannot resolve %q", ref)
		}
	}
	return cur, nil
}

func mapValue(m map[string]any, key string) (map[string]any, bool) {
	v, ok := m[key].(map[string]any)
	return v, ok
}

func stringValue(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func stringSlice(m map[string]any, key string) []string {
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
