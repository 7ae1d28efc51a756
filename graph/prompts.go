package graph

import (
	"encoding/json"
	"fmt"
)

// defaultConceptBudget is the budget the extraction prompt is written for;
// other budgets get an explicit note appended.
const defaultConceptBudget = 25

const extractionSystemPrompt = "You are an expert document analyzer specializing in concept extraction and relationship mapping."

const conceptExtractionPrompt = `You are an expert at analyzing documents and extracting key concepts, relationships, and hierarchical structures.

Given the following document text, please:

1. **Identify Key Concepts**: Extract the main concepts, entities, ideas, and important terms
2. **Define Relationships**: Determine how concepts relate to each other (dependencies, hierarchies, associations)
3. **Create Hierarchy**: Organize concepts into logical groups or levels where applicable

Document Text:
` + "```" + `
%s
` + "```" + `

Please return your analysis in the following JSON format:

{
    "concepts": [
        {
            "id": "unique_concept_id",
            "name": "Concept Name",
            "description": "Brief description of the concept",
            "type": "category|entity|process|definition|other",
            "importance": 1-10,
            "keywords": ["keyword1", "keyword2"]
        }
    ],
    "relationships": [
        {
            "source": "concept_id_1",
            "target": "concept_id_2",
            "relationship_type": "depends_on|part_of|related_to|defines|includes|causes|enables",
            "strength": 1-10,
            "description": "Brief description of the relationship"
        }
    ],
    "hierarchy": [
        {
            "parent": "parent_concept_id",
            "children": ["child_concept_id_1", "child_concept_id_2"],
            "level": 1
        }
    ],
    "summary": "Brief summary of the document's main themes and structure"
}

Guidelines:
- Use descriptive, consistent concept IDs (lowercase, underscores)
- Relationship sources and targets must use exactly the concept IDs listed under "concepts"
- Focus on the most important concepts (aim for 10-30 concepts depending on document length)
- Relationship types should be meaningful and consistent
- Importance and strength scores should reflect actual significance
- Include both explicit and implicit relationships
- Consider temporal, causal, and hierarchical relationships
`

const conceptGroupingPrompt = `Given the following concepts from a document, please organize them into logical groups or clusters that represent different themes, topics, or functional areas.

Concepts:
` + "```json" + `
%s
` + "```" + `

Please return a JSON structure that groups related concepts:

{
    "groups": [
        {
            "group_id": "unique_group_id",
            "group_name": "Descriptive Group Name",
            "description": "Brief description of what this group represents",
            "concepts": ["concept_id_1", "concept_id_2"],
            "color": "#hex_color_code",
            "priority": 1-5
        }
    ]
}

Guidelines:
- Create 3-8 meaningful groups
- Each concept should belong to exactly one primary group
- Group names should be descriptive and concise
- Use distinct colors for visualization
- Priority indicates importance (1=highest, 5=lowest)
`

// extractionPrompt renders the extraction prompt for text with a concept
// budget.
func extractionPrompt(text string, maxConcepts int) string {
	prompt := fmt.Sprintf(conceptExtractionPrompt, text)
	if maxConcepts != defaultConceptBudget {
		prompt += fmt.Sprintf("\n\nNote: Focus on the top %d most important concepts.", maxConcepts)
	}
	return prompt
}

// groupingPrompt renders the grouping prompt for the given concepts.
func groupingPrompt(concepts []Concept) (string, error) {
	type brief struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
		Type        string `json:"type"`
	}
	items := make([]brief, len(concepts))
	for i, c := range concepts {
		items[i] = brief{ID: c.ID, Name: c.Name, Description: c.Description, Type: c.Type}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(conceptGroupingPrompt, string(data)), nil
}
