package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/brunobiangulo/conceptgraph/graph"
)

func init() {
	sqlite_vec.Auto()
}

// ErrNotFound is returned when an analysis id does not exist.
var ErrNotFound = errors.New("store: not found")

// Document represents a row in the documents table.
type Document struct {
	ID          int64          `json:"id"`
	Filename    string         `json:"filename"`
	FileType    string         `json:"file_type"`
	ContentHash string         `json:"content_hash"`
	SizeBytes   int64          `json:"size_bytes"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   string         `json:"created_at"`
}

// Analysis is one persisted extraction together with its source document.
type Analysis struct {
	ID          string                 `json:"id"`
	Document    Document               `json:"document"`
	Result      graph.ExtractionResult `json:"result"`
	Statistics  graph.Statistics       `json:"statistics"`
	Groups      []graph.Group          `json:"groups"`
	MaxConcepts int                    `json:"max_concepts"`
	Model       string                 `json:"model,omitempty"`
	CreatedAt   string                 `json:"created_at"`
}

// AnalysisSummary is the listing form of an analysis.
type AnalysisSummary struct {
	ID            string `json:"id"`
	Filename      string `json:"filename"`
	FileType      string `json:"file_type"`
	Concepts      int    `json:"concepts"`
	Relationships int    `json:"relationships"`
	CreatedAt     string `json:"created_at"`
}

// ConceptMatch is a vector search hit.
type ConceptMatch struct {
	AnalysisID string        `json:"analysis_id"`
	Filename   string        `json:"filename"`
	Concept    graph.Concept `json:"concept"`
	Score      float64       `json:"score"`
}

// Store wraps the SQLite database for all analysis persistence.
type Store struct {
	db           *sql.DB
	embeddingDim int
}

// New opens (or creates) a SQLite database at the given path and
// initialises the schema including the sqlite-vec virtual table.
func New(dbPath string, embeddingDim int) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL(embeddingDim)); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, embeddingDim: embeddingDim}

	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// EmbeddingDim returns the configured embedding dimension.
func (s *Store) EmbeddingDim() int {
	return s.embeddingDim
}

// --- Analysis operations ---

// SaveAnalysis stores a and its document in one transaction. The document row
// is shared with earlier analyses of identical content. a.Document.ID is set
// on return.
func (s *Store) SaveAnalysis(ctx context.Context, a *Analysis) error {
	if a.ID == "" {
		return fmt.Errorf("saving analysis: empty id")
	}
	docMeta, err := json.Marshal(a.Document.Metadata)
	if err != nil {
		return fmt.Errorf("encoding document metadata: %w", err)
	}
	hierarchy, err := json.Marshal(orEmpty(a.Result.Hierarchy))
	if err != nil {
		return fmt.Errorf("encoding hierarchy: %w", err)
	}
	stats, err := json.Marshal(a.Statistics)
	if err != nil {
		return fmt.Errorf("encoding statistics: %w", err)
	}
	groups, err := json.Marshal(orEmpty(a.Groups))
	if err != nil {
		return fmt.Errorf("encoding groups: %w", err)
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO documents (filename, file_type, content_hash, size_bytes, metadata)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(content_hash) DO UPDATE SET
				filename = excluded.filename,
				metadata = excluded.metadata
		`, a.Document.Filename, a.Document.FileType, a.Document.ContentHash,
			a.Document.SizeBytes, string(docMeta)); err != nil {
			return fmt.Errorf("upserting document: %w", err)
		}
		// LastInsertId is not reliable after the UPDATE branch of an upsert.
		if err := tx.QueryRowContext(ctx,
			"SELECT id FROM documents WHERE content_hash = ?", a.Document.ContentHash,
		).Scan(&a.Document.ID); err != nil {
			return fmt.Errorf("reading document id: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO analyses (id, document_id, summary, hierarchy, statistics, concept_groups, max_concepts, model)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, a.ID, a.Document.ID, a.Result.Summary, string(hierarchy), string(stats),
			string(groups), a.MaxConcepts, a.Model); err != nil {
			return fmt.Errorf("inserting analysis: %w", err)
		}

		conceptStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO concepts (analysis_id, concept_id, name, description, concept_type, importance, keywords, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer conceptStmt.Close()

		for i, c := range a.Result.Concepts {
			kw, err := json.Marshal(orEmpty(c.Keywords))
			if err != nil {
				return err
			}
			if _, err := conceptStmt.ExecContext(ctx, a.ID, c.ID, c.Name, c.Description,
				c.Type, c.Importance, string(kw), i); err != nil {
				return fmt.Errorf("inserting concept %q: %w", c.ID, err)
			}
		}

		relStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO relationships (analysis_id, source, target, relationship_type, strength, description, position)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer relStmt.Close()

		for i, r := range a.Result.Relationships {
			if _, err := relStmt.ExecContext(ctx, a.ID, r.Source, r.Target,
				r.RelationshipType, r.Strength, r.Description, i); err != nil {
				return fmt.Errorf("inserting relationship %s->%s: %w", r.Source, r.Target, err)
			}
		}
		return nil
	})
}

// GetAnalysis loads an analysis with its concepts and relationships in their
// original order.
func (s *Store) GetAnalysis(ctx context.Context, id string) (*Analysis, error) {
	a := &Analysis{ID: id}
	var (
		summary, model                 sql.NullString
		hierarchy, stats, groups, meta sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT a.summary, a.hierarchy, a.statistics, a.concept_groups, a.max_concepts, a.model, a.created_at,
			d.id, d.filename, d.file_type, d.content_hash, d.size_bytes, d.metadata, d.created_at
		FROM analyses a
		JOIN documents d ON d.id = a.document_id
		WHERE a.id = ?
	`, id).Scan(&summary, &hierarchy, &stats, &groups, &a.MaxConcepts, &model, &a.CreatedAt,
		&a.Document.ID, &a.Document.Filename, &a.Document.FileType, &a.Document.ContentHash,
		&a.Document.SizeBytes, &meta, &a.Document.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("analysis %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	a.Result.Summary = summary.String
	a.Model = model.String

	if err := decodeJSON(hierarchy, &a.Result.Hierarchy); err != nil {
		return nil, fmt.Errorf("decoding hierarchy: %w", err)
	}
	if err := decodeJSON(stats, &a.Statistics); err != nil {
		return nil, fmt.Errorf("decoding statistics: %w", err)
	}
	if err := decodeJSON(groups, &a.Groups); err != nil {
		return nil, fmt.Errorf("decoding groups: %w", err)
	}
	if err := decodeJSON(meta, &a.Document.Metadata); err != nil {
		return nil, fmt.Errorf("decoding document metadata: %w", err)
	}

	if a.Result.Concepts, err = s.concepts(ctx, id); err != nil {
		return nil, err
	}
	if a.Result.Relationships, err = s.relationships(ctx, id); err != nil {
		return nil, err
	}
	if a.Result.Hierarchy == nil {
		a.Result.Hierarchy = []graph.HierarchyEntry{}
	}
	if a.Groups == nil {
		a.Groups = []graph.Group{}
	}
	return a, nil
}

func (s *Store) concepts(ctx context.Context, analysisID string) ([]graph.Concept, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT concept_id, name, description, concept_type, importance, keywords
		FROM concepts WHERE analysis_id = ? ORDER BY position
	`, analysisID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []graph.Concept{}
	for rows.Next() {
		c, err := scanConcept(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConcept(row scanner, extra ...any) (graph.Concept, error) {
	var (
		c        graph.Concept
		desc, kw sql.NullString
	)
	dest := append([]any{&c.ID, &c.Name, &desc, &c.Type, &c.Importance, &kw}, extra...)
	if err := row.Scan(dest...); err != nil {
		return c, err
	}
	c.Description = desc.String
	if err := decodeJSON(kw, &c.Keywords); err != nil {
		return c, fmt.Errorf("decoding keywords of %q: %w", c.ID, err)
	}
	if c.Keywords == nil {
		c.Keywords = []string{}
	}
	return c, nil
}

func (s *Store) relationships(ctx context.Context, analysisID string) ([]graph.Relationship, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source, target, relationship_type, strength, description
		FROM relationships WHERE analysis_id = ? ORDER BY position
	`, analysisID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []graph.Relationship{}
	for rows.Next() {
		var r graph.Relationship
		var desc sql.NullString
		if err := rows.Scan(&r.Source, &r.Target, &r.RelationshipType, &r.Strength, &desc); err != nil {
			return nil, err
		}
		r.Description = desc.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListAnalyses returns analyses newest first. A non-positive limit returns
// all of them.
func (s *Store) ListAnalyses(ctx context.Context, limit int) ([]AnalysisSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, d.filename, d.file_type,
			(SELECT COUNT(*) FROM concepts c WHERE c.analysis_id = a.id),
			(SELECT COUNT(*) FROM relationships r WHERE r.analysis_id = a.id),
			a.created_at
		FROM analyses a
		JOIN documents d ON d.id = a.document_id
		ORDER BY a.created_at DESC, a.rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []AnalysisSummary{}
	for rows.Next() {
		var a AnalysisSummary
		if err := rows.Scan(&a.ID, &a.Filename, &a.FileType, &a.Concepts,
			&a.Relationships, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteAnalysis removes an analysis, its concepts, relationships and
// embeddings. The document row is removed once no analysis references it.
func (s *Store) DeleteAnalysis(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var docID int64
		err := tx.QueryRowContext(ctx, "SELECT document_id FROM analyses WHERE id = ?", id).Scan(&docID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("analysis %s: %w", id, ErrNotFound)
		}
		if err != nil {
			return err
		}

		// vec0 tables do not take part in foreign key cascades.
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM vec_concepts WHERE concept_rowid IN (
				SELECT id FROM concepts WHERE analysis_id = ?
			)`, id); err != nil {
			return fmt.Errorf("deleting embeddings: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM analyses WHERE id = ?", id); err != nil {
			return fmt.Errorf("deleting analysis: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM documents WHERE id = ?
			AND NOT EXISTS (SELECT 1 FROM analyses WHERE document_id = ?)
		`, docID, docID); err != nil {
			return fmt.Errorf("deleting document: %w", err)
		}
		return nil
	})
}

// --- Embedding operations ---

// InsertConceptEmbeddings stores one vector per concept id of the analysis.
// Vectors are matched to concepts by id; unknown ids are an error.
func (s *Store) InsertConceptEmbeddings(ctx context.Context, analysisID string, vectors map[string][]float32) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for conceptID, vec := range vectors {
			if len(vec) != s.embeddingDim {
				return fmt.Errorf("embedding for %q has dimension %d, want %d", conceptID, len(vec), s.embeddingDim)
			}
			var rowID int64
			if err := tx.QueryRowContext(ctx,
				"SELECT id FROM concepts WHERE analysis_id = ? AND concept_id = ?",
				analysisID, conceptID).Scan(&rowID); err != nil {
				return fmt.Errorf("looking up concept %q: %w", conceptID, err)
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT OR REPLACE INTO vec_concepts (concept_rowid, embedding) VALUES (?, ?)",
				rowID, serializeFloat32(vec)); err != nil {
				return fmt.Errorf("inserting embedding for %q: %w", conceptID, err)
			}
		}
		return nil
	})
}

// SimilarConcepts performs a KNN search over all stored concept embeddings.
func (s *Store) SimilarConcepts(ctx context.Context, query []float32, k int) ([]ConceptMatch, error) {
	if len(query) != s.embeddingDim {
		return nil, fmt.Errorf("query has dimension %d, want %d", len(query), s.embeddingDim)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.concept_id, c.name, c.description, c.concept_type, c.importance, c.keywords,
			v.distance, c.analysis_id, d.filename
		FROM vec_concepts v
		JOIN concepts c ON c.id = v.concept_rowid
		JOIN analyses a ON a.id = c.analysis_id
		JOIN documents d ON d.id = a.document_id
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance
	`, serializeFloat32(query), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ConceptMatch{}
	for rows.Next() {
		var m ConceptMatch
		var distance float64
		c, err := scanConcept(rows, &distance, &m.AnalysisID, &m.Filename)
		if err != nil {
			return nil, err
		}
		m.Concept = c
		// Convert distance to similarity score
		m.Score = 1.0 - distance
		out = append(out, m)
	}
	return out, rows.Err()
}

// CountEmbeddings returns the number of stored concept vectors.
func (s *Store) CountEmbeddings(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vec_concepts").Scan(&n)
	return n, err
}

// --- helpers ---

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func decodeJSON(v sql.NullString, dest any) error {
	if !v.Valid || v.String == "" || v.String == "null" {
		return nil
	}
	return json.Unmarshal([]byte(v.String), dest)
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// serializeFloat32 converts a float32 slice to little-endian bytes for sqlite-vec.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
