package store

import "fmt"

// schemaSQL returns the DDL for all tables. embeddingDim controls the
// vec0 virtual table dimension.
func schemaSQL(embeddingDim int) string {
	return fmt.Sprintf(`
-- Store-wide settings fixed at creation time
CREATE TABLE IF NOT EXISTS store_meta (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

-- Uploaded documents, deduplicated by content hash
CREATE TABLE IF NOT EXISTS documents (
    id INTEGER PRIMARY KEY,
    filename TEXT NOT NULL,
    file_type TEXT NOT NULL,
    content_hash TEXT NOT NULL UNIQUE,
    size_bytes INTEGER NOT NULL DEFAULT 0,
    metadata JSON,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- One row per successful extraction run
CREATE TABLE IF NOT EXISTS analyses (
    id TEXT PRIMARY KEY,
    document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    summary TEXT,
    hierarchy JSON,
    statistics JSON,
    concept_groups JSON,
    max_concepts INTEGER NOT NULL,
    model TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Validated concepts in extraction order
CREATE TABLE IF NOT EXISTS concepts (
    id INTEGER PRIMARY KEY,
    analysis_id TEXT NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
    concept_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    concept_type TEXT NOT NULL,
    importance INTEGER NOT NULL,
    keywords JSON,
    position INTEGER NOT NULL,
    UNIQUE(analysis_id, concept_id)
);

-- Validated relationships in extraction order, duplicates included
CREATE TABLE IF NOT EXISTS relationships (
    id INTEGER PRIMARY KEY,
    analysis_id TEXT NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
    source TEXT NOT NULL,
    target TEXT NOT NULL,
    relationship_type TEXT NOT NULL,
    strength INTEGER NOT NULL,
    description TEXT,
    position INTEGER NOT NULL
);

-- Concept embeddings via sqlite-vec, keyed by concepts.id
CREATE VIRTUAL TABLE IF NOT EXISTS vec_concepts USING vec0(
    concept_rowid INTEGER PRIMARY KEY,
    embedding float[%d]
);

-- Indexes
CREATE INDEX IF NOT EXISTS idx_analyses_document ON analyses(document_id);
CREATE INDEX IF NOT EXISTS idx_analyses_created ON analyses(created_at);
CREATE INDEX IF NOT EXISTS idx_concepts_analysis ON concepts(analysis_id, position);
CREATE INDEX IF NOT EXISTS idx_relationships_analysis ON relationships(analysis_id, position);
`, embeddingDim)
}
