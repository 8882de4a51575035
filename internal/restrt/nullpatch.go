package restrt

import (
	language "github.com/restgraph/restgraph/internal/language"
	normalize "github.com/restgraph/restgraph/internal/normalize"
)

// patchSelection inserts an explicit null for every selected field absent
// from value. The consuming query layer treats an undefined field as a
// validation failure, so every requested field the server omitted becomes a
// typed null instead. Arrays are patched element-wise; fragment spreads and
// inline fragments substitute their selection sets. A field named like the
// type tag is exempt. The pass is idempotent: re-running it changes nothing.
func patchSelection(doc *language.QueryDocument, sel language.SelectionSet, value any) any {
	switch val := value.(type) {
	case []any:
		for i, item := range val {
			val[i] = patchSelection(doc, sel, item)
		}
		return val
	case map[string]any:
		for _, f := range collectNodeFields(doc, sel, typeTagOf(val)) {
			if f.Name == normalize.TypeNameKey {
				continue
			}
			key := responseName(f)
			child, ok := val[key]
			if !ok {
				val[key] = nil
				continue
			}
			if len(f.SelectionSet) > 0 && child != nil {
				val[key] = patchSelection(doc, f.SelectionSet, child)
			}
		}
		return val
	default:
		return value
	}
}

// responseName is the field's externally visible key: its alias when present,
// otherwise its name.
func responseName(f *language.Field) string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

func typeTagOf(val map[string]any) string {
	tag, _ := val[normalize.TypeNameKey].(string)
	return tag
}

// collectNodeFields expands fragments and groups duplicate response names in
// document order, merging their selection sets. Fragments with a type
// condition are substituted unless the value carries a different type tag.
func collectNodeFields(doc *language.QueryDocument, sel language.SelectionSet, typeTag string) []*language.Field {
	var ordered []*language.Field
	index := map[string]int{}
	visited := map[string]bool{}
	collectNodeFieldsImpl(doc, sel, typeTag, &ordered, index, visited)
	return ordered
}

func collectNodeFieldsImpl(doc *language.QueryDocument, sel language.SelectionSet, typeTag string, ordered *[]*language.Field, index map[string]int, visited map[string]bool) {
	for _, selection := range sel {
		switch s := selection.(type) {
		case *language.Field:
			key := responseName(s)
			if i, ok := index[key]; ok {
				merged := *(*ordered)[i]
				merged.SelectionSet = append(append(language.SelectionSet{}, merged.SelectionSet...), s.SelectionSet...)
				(*ordered)[i] = &merged
				continue
			}
			index[key] = len(*ordered)
			*ordered = append(*ordered, s)
		case *language.InlineFragment:
			if skipFragment(s.TypeCondition, typeTag) {
				continue
			}
			collectNodeFieldsImpl(doc, s.SelectionSet, typeTag, ordered, index, visited)
		case *language.FragmentSpread:
			if visited[s.Name] {
				continue
			}
			visited[s.Name] = true
			def := doc.Fragments.ForName(s.Name)
			if def == nil {
				continue
			}
			if skipFragment(def.TypeCondition, typeTag) {
				continue
			}
			collectNodeFieldsImpl(doc, def.SelectionSet, typeTag, ordered, index, visited)
		}
	}
}

// skipFragment drops a fragment only when both a type condition and a value
// type tag are known and they disagree. Without a schema there is nothing
// more to check.
func skipFragment(condition, typeTag string) bool {
	return condition != "" && typeTag != "" && condition != typeTag
}
