package knowledge

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is the part of *pgxpool.Pool the store uses.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PGStore reads and writes the concept/condition table in postgres. The
// schema lives in migrations/001_knowledge.sql.
type PGStore struct {
	pool querier
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Load(ctx context.Context) (*Table, error) {
	concepts, err := s.loadConcepts(ctx)
	if err != nil {
		return nil, err
	}
	conditions, err := s.loadConditions(ctx)
	if err != nil {
		return nil, err
	}
	t, err := NewTable(concepts, conditions)
	if err != nil {
		return nil, fmt.Errorf("knowledge table in postgres: %w", err)
	}
	return t, nil
}

func (s *PGStore) loadConcepts(ctx context.Context) ([]Concept, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, kind, cluster, seriousness, question
		FROM kb_concept ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("query kb_concept: %w", err)
	}
	defer rows.Close()

	var concepts []Concept
	idx := make(map[string]int)
	for rows.Next() {
		var c Concept
		var seriousness string
		if err := rows.Scan(&c.ID, &c.Name, &c.Kind, &c.Cluster, &seriousness, &c.Question); err != nil {
			return nil, fmt.Errorf("scan kb_concept: %w", err)
		}
		c.Seriousness = Seriousness(seriousness)
		idx[c.ID] = len(concepts)
		concepts = append(concepts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate kb_concept: %w", err)
	}

	synRows, err := s.pool.Query(ctx, `
		SELECT concept_id, phrase FROM kb_concept_synonym ORDER BY concept_id, position`)
	if err != nil {
		return nil, fmt.Errorf("query kb_concept_synonym: %w", err)
	}
	defer synRows.Close()
	for synRows.Next() {
		var conceptID, phrase string
		if err := synRows.Scan(&conceptID, &phrase); err != nil {
			return nil, fmt.Errorf("scan kb_concept_synonym: %w", err)
		}
		if i, ok := idx[conceptID]; ok {
			concepts[i].Synonyms = append(concepts[i].Synonyms, phrase)
		}
	}
	return concepts, synRows.Err()
}

func (s *PGStore) loadConditions(ctx context.Context) ([]Condition, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, common_name, severity, acuteness, prevalence
		FROM kb_condition ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("query kb_condition: %w", err)
	}
	defer rows.Close()

	var conditions []Condition
	idx := make(map[string]int)
	for rows.Next() {
		var c Condition
		var severity string
		if err := rows.Scan(&c.ID, &c.Name, &c.CommonName, &severity, &c.Acuteness, &c.Prevalence); err != nil {
			return nil, fmt.Errorf("scan kb_condition: %w", err)
		}
		c.Severity = Severity(severity)
		idx[c.ID] = len(conditions)
		conditions = append(conditions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate kb_condition: %w", err)
	}

	wRows, err := s.pool.Query(ctx, `
		SELECT condition_id, concept_id, weight FROM kb_condition_weight ORDER BY condition_id, position`)
	if err != nil {
		return nil, fmt.Errorf("query kb_condition_weight: %w", err)
	}
	defer wRows.Close()
	for wRows.Next() {
		var condID string
		var w Weight
		if err := wRows.Scan(&condID, &w.ConceptID, &w.Weight); err != nil {
			return nil, fmt.Errorf("scan kb_condition_weight: %w", err)
		}
		if i, ok := idx[condID]; ok {
			conditions[i].Weights = append(conditions[i].Weights, w)
		}
	}
	return conditions, wRows.Err()
}

// Seed replaces the stored table with t in a single transaction.
func (s *PGStore) Seed(ctx context.Context, t *Table) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range []string{
		`DELETE FROM kb_condition_weight`,
		`DELETE FROM kb_condition`,
		`DELETE FROM kb_concept_synonym`,
		`DELETE FROM kb_concept`,
	} {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("clear knowledge tables: %w", err)
		}
	}

	batch := &pgx.Batch{}
	for i, c := range t.concepts {
		batch.Queue(`INSERT INTO kb_concept (id, name, kind, cluster, seriousness, question, position)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`, c.ID, c.Name, c.Kind, c.Cluster, string(c.Seriousness), c.Question, i)
		for j, syn := range c.Synonyms {
			batch.Queue(`INSERT INTO kb_concept_synonym (concept_id, phrase, position) VALUES ($1,$2,$3)`, c.ID, syn, j)
		}
	}
	for i, cond := range t.conditions {
		batch.Queue(`INSERT INTO kb_condition (id, name, common_name, severity, acuteness, prevalence, position)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`, cond.ID, cond.Name, cond.CommonName, string(cond.Severity), cond.Acuteness, cond.Prevalence, i)
		for j, w := range cond.Weights {
			batch.Queue(`INSERT INTO kb_condition_weight (condition_id, concept_id, weight, position) VALUES ($1,$2,$3,$4)`,
				cond.ID, w.ConceptID, w.Weight, j)
		}
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert knowledge rows: %w", err)
	}
	return tx.Commit(ctx)
}
