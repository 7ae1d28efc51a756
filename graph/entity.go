package graph

// Concept type constants accepted from the extraction model.
const (
	TypeCategory   = "category"
	TypeEntity     = "entity"
	TypeProcess    = "process"
	TypeDefinition = "definition"
	TypeOther      = "other"
)

// Default attribute values filled in during validation.
const (
	DefaultImportance       = 5
	DefaultStrength         = 5
	DefaultRelationshipType = "related_to"
)

// Common relationship types suggested to the model. Relationship types are
// free-form, so these are hints rather than an allow-list.
const (
	RelDependsOn = "depends_on"
	RelPartOf    = "part_of"
	RelRelatedTo = "related_to"
	RelDefines   = "defines"
	RelIncludes  = "includes"
	RelCauses    = "causes"
	RelEnables   = "enables"
)

// Concept is a validated graph node.
type Concept struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
	Importance  int      `json:"importance"`
	Keywords    []string `json:"keywords"`
}

// Relationship is a validated directed edge between two concepts.
type Relationship struct {
	Source           string `json:"source"`
	Target           string `json:"target"`
	RelationshipType string `json:"relationship_type"`
	Strength         int    `json:"strength"`
	Description      string `json:"description"`
}

// HierarchyEntry groups child concepts under a parent. Entries are passed
// through from the model as-is; their ids are not checked.
type HierarchyEntry struct {
	Parent   string   `json:"parent"`
	Children []string `json:"children"`
	Level    int      `json:"level"`
}

// ExtractionResult is the validated form of a model extraction.
type ExtractionResult struct {
	Concepts      []Concept        `json:"concepts"`
	Relationships []Relationship   `json:"relationships"`
	Hierarchy     []HierarchyEntry `json:"hierarchy"`
	Summary       string           `json:"summary"`
}

// Group is a validated cluster of related concepts.
type Group struct {
	ID          string   `json:"group_id"`
	Name        string   `json:"group_name"`
	Description string   `json:"description"`
	Concepts    []string `json:"concepts"`
	Color       string   `json:"color"`
	Priority    int      `json:"priority"`
}

func validConceptType(t string) bool {
	switch t {
	case TypeCategory, TypeEntity, TypeProcess, TypeDefinition, TypeOther:
		return true
	}
	return false
}
