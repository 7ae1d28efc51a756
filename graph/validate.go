package graph

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Validate turns a decoded model response into an ExtractionResult.
//
// The model is not trusted to emit well-formed output, so Validate never
// fails: entries that are not records, lack required fields, carry an empty
// or duplicate normalised id, or reference unknown concepts are dropped, and
// missing optional fields are defaulted. Concepts keep their first occurrence
// and insertion order. Relationship endpoints must match the normalised
// concept ids exactly; they are not normalised here. Relationships sharing an
// ordered (source, target) pair are all kept.
func Validate(raw map[string]any) *ExtractionResult {
	result := &ExtractionResult{
		Concepts:      []Concept{},
		Relationships: []Relationship{},
		Hierarchy:     []HierarchyEntry{},
	}
	if raw == nil {
		return result
	}

	seen := make(map[string]bool)
	for _, item := range asList(raw["concepts"]) {
		rec, ok := item.(map[string]any)
		if !ok {
			continue
		}
		rawID, hasID := rec["id"]
		rawName, hasName := rec["name"]
		if !hasID || !hasName {
			continue
		}

		id := Normalize(stringify(rawID))
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		result.Concepts = append(result.Concepts, Concept{
			ID:          id,
			Name:        stringify(rawName),
			Description: stringify(rec["description"]),
			Type:        conceptType(rec["type"]),
			Importance:  score(rec["importance"], DefaultImportance, 1, 10),
			Keywords:    stringList(rec["keywords"]),
		})
	}

	for _, item := range asList(raw["relationships"]) {
		rec, ok := item.(map[string]any)
		if !ok {
			continue
		}
		src, ok := rec["source"].(string)
		if !ok || !seen[src] {
			continue
		}
		tgt, ok := rec["target"].(string)
		if !ok || !seen[tgt] {
			continue
		}

		relType := strings.TrimSpace(stringify(rec["relationship_type"]))
		if relType == "" {
			relType = DefaultRelationshipType
		}

		result.Relationships = append(result.Relationships, Relationship{
			Source:           src,
			Target:           tgt,
			RelationshipType: relType,
			Strength:         score(rec["strength"], DefaultStrength, 1, 10),
			Description:      stringify(rec["description"]),
		})
	}

	for _, item := range asList(raw["hierarchy"]) {
		rec, ok := item.(map[string]any)
		if !ok {
			continue
		}
		result.Hierarchy = append(result.Hierarchy, HierarchyEntry{
			Parent:   stringify(rec["parent"]),
			Children: stringList(rec["children"]),
			Level:    score(rec["level"], 1, 1, math.MaxInt32),
		})
	}

	result.Summary = stringify(raw["summary"])
	return result
}

// ValidateGroups cleans a decoded grouping response against the concept ids
// of an already-validated result. Group concept references are normalised,
// unknown ids are dropped, each concept is kept in the first group that
// claims it, and groups left empty are removed.
func ValidateGroups(raw map[string]any, concepts []Concept) []Group {
	known := make(map[string]bool, len(concepts))
	for _, c := range concepts {
		known[c.ID] = true
	}

	groups := []Group{}
	if raw == nil {
		return groups
	}

	claimed := make(map[string]bool)
	usedIDs := make(map[string]bool)
	for i, item := range asList(raw["groups"]) {
		rec, ok := item.(map[string]any)
		if !ok {
			continue
		}

		var members []string
		for _, ref := range stringList(rec["concepts"]) {
			id := Normalize(ref)
			if !known[id] || claimed[id] {
				continue
			}
			claimed[id] = true
			members = append(members, id)
		}
		if len(members) == 0 {
			continue
		}

		id := Normalize(stringify(rec["group_id"]))
		if id == "" || usedIDs[id] {
			id = fmt.Sprintf("group_%d", i+1)
		}
		usedIDs[id] = true

		name := strings.TrimSpace(stringify(rec["group_name"]))
		if name == "" {
			name = id
		}

		groups = append(groups, Group{
			ID:          id,
			Name:        name,
			Description: stringify(rec["description"]),
			Concepts:    members,
			Color:       strings.TrimSpace(stringify(rec["color"])),
			Priority:    score(rec["priority"], 3, 1, 5),
		})
	}
	return groups
}

func asList(v any) []any {
	list, _ := v.([]any)
	return list
}

// stringify renders a JSON scalar as text. Objects, arrays and null become
// the empty string.
func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	default:
		return ""
	}
}

func stringList(v any) []string {
	out := []string{}
	for _, item := range asList(v) {
		s := strings.TrimSpace(stringify(item))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func conceptType(v any) string {
	t := strings.ToLower(strings.TrimSpace(stringify(v)))
	if validConceptType(t) {
		return t
	}
	return TypeOther
}

// score reads an integer attribute that may arrive as a number or a numeric
// string, rounding fractions and clamping into [lo, hi]. Anything else yields
// def.
func score(v any, def, lo, hi int) int {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case int:
		f = float64(x)
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return def
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return def
		}
		f = n
	default:
		return def
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}

	f = math.Round(f)
	if f < float64(lo) {
		return lo
	}
	if f > float64(hi) {
		return hi
	}
	return int(f)
}
