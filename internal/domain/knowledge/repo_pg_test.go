package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// -- Fakes --

type fakeRows struct {
	pgx.Rows
	data [][]any
	pos  int
}

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos <= len(r.data)
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.pos-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), len(row))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = row[i].(string)
		case *float64:
			*p = row[i].(float64)
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}

func (r *fakeRows) Err() error { return nil }
func (r *fakeRows) Close()     {}

type fakeBatchResults struct{ pgx.BatchResults }

func (fakeBatchResults) Close() error { return nil }

type fakeTx struct {
	pgx.Tx
	execs     []string
	batch     *pgx.Batch
	committed bool
}

func (tx *fakeTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	tx.execs = append(tx.execs, sql)
	return pgconn.CommandTag{}, nil
}

func (tx *fakeTx) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	tx.batch = b
	return fakeBatchResults{}
}

func (tx *fakeTx) Commit(context.Context) error   { tx.committed = true; return nil }
func (tx *fakeTx) Rollback(context.Context) error { return nil }

// fakeDB answers each query with the rows registered for the first table
// name found in its FROM clause.
type fakeDB struct {
	tables map[string][][]any
	tx     *fakeTx
	err    error
}

func (db *fakeDB) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	if db.err != nil {
		return nil, db.err
	}
	from := strings.Fields(sql[strings.Index(sql, "FROM")+len("FROM"):])[0]
	return &fakeRows{data: db.tables[from]}, nil
}

func (db *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	db.tx = &fakeTx{}
	return db.tx, nil
}

// -- Load --

func TestPGStore_LoadGroupsSynonymsAndWeights(t *testing.T) {
	db := &fakeDB{tables: map[string][][]any{
		"kb_concept": {
			{"s_headache", "Headache", "symptom", "headache", "", ""},
			{"s_neck_stiffness", "Neck stiffness", "symptom", "headache", "serious", "Is your neck stiff?"},
		},
		"kb_concept_synonym": {
			{"s_headache", "head pain"},
			{"s_headache", "pounding head"},
			{"s_neck_stiffness", "stiff neck"},
			{"s_unknown", "ignored"},
		},
		"kb_condition": {
			{"c_migraine", "Migraine", "", "moderate", "chronic", "common"},
			{"c_meningitis", "Meningitis", "", "severe", "acute", "rare"},
		},
		"kb_condition_weight": {
			{"c_meningitis", "s_neck_stiffness", 0.4},
			{"c_meningitis", "s_headache", 0.2},
			{"c_migraine", "s_headache", 0.4},
		},
	}}

	tbl, err := (&PGStore{pool: db}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	concepts := tbl.Concepts()
	if len(concepts) != 2 || concepts[0].ID != "s_headache" || concepts[1].ID != "s_neck_stiffness" {
		t.Fatalf("expected concepts in row order, got %+v", concepts)
	}
	if got := concepts[0].Synonyms; len(got) != 2 || got[0] != "head pain" || got[1] != "pounding head" {
		t.Errorf("unexpected headache synonyms %v", got)
	}
	if !concepts[1].IsSerious() || concepts[1].Question != "Is your neck stiff?" {
		t.Errorf("unexpected neck stiffness concept %+v", concepts[1])
	}

	conditions := tbl.Conditions()
	if len(conditions) != 2 || conditions[0].ID != "c_migraine" {
		t.Fatalf("expected conditions in row order, got %+v", conditions)
	}
	if w := conditions[0].Weights; len(w) != 1 || w[0].ConceptID != "s_headache" {
		t.Errorf("unexpected migraine weights %+v", w)
	}
	if w := conditions[1].Weights; len(w) != 2 || w[0].ConceptID != "s_neck_stiffness" || w[1].Weight != 0.2 {
		t.Errorf("unexpected meningitis weights %+v", w)
	}
}

func TestPGStore_LoadRejectsInvalidTable(t *testing.T) {
	db := &fakeDB{tables: map[string][][]any{
		"kb_concept":          {{"s_headache", "Headache", "symptom", "", "", ""}},
		"kb_condition":        {{"c_x", "X", "", "moderate", "", ""}},
		"kb_condition_weight": {{"c_x", "s_missing", 0.5}},
	}}
	if _, err := (&PGStore{pool: db}).Load(context.Background()); err == nil {
		t.Fatal("expected error for a weight on an unknown concept")
	}
}

func TestPGStore_LoadQueryError(t *testing.T) {
	db := &fakeDB{err: errors.New("connection refused")}
	_, err := (&PGStore{pool: db}).Load(context.Background())
	if err == nil || !strings.Contains(err.Error(), "kb_concept") {
		t.Fatalf("expected wrapped query error, got %v", err)
	}
}

// -- Seed --

func TestPGStore_SeedReplacesRows(t *testing.T) {
	tbl := MustTable(
		[]Concept{
			{ID: "s_a", Name: "A", Synonyms: []string{"a1", "a2"}},
			{ID: "s_b", Name: "B"},
		},
		[]Condition{
			{ID: "c_x", Name: "X", Severity: SeverityMild, Weights: []Weight{{"s_a", 0.5}, {"s_b", 0.3}}},
		},
	)
	db := &fakeDB{}
	if err := (&PGStore{pool: db}).Seed(context.Background(), tbl); err != nil {
		t.Fatalf("Seed() error: %v", err)
	}

	if len(db.tx.execs) != 4 || !strings.Contains(db.tx.execs[0], "kb_condition_weight") {
		t.Errorf("expected four deletes starting with weights, got %v", db.tx.execs)
	}
	if !db.tx.committed {
		t.Error("expected commit")
	}

	counts := map[string]int{}
	for _, q := range db.tx.batch.QueuedQueries {
		table := strings.Fields(q.SQL[strings.Index(q.SQL, "INTO")+len("INTO"):])[0]
		counts[table]++
	}
	want := map[string]int{"kb_concept": 2, "kb_concept_synonym": 2, "kb_condition": 1, "kb_condition_weight": 2}
	for table, n := range want {
		if counts[table] != n {
			t.Errorf("%s: expected %d inserts, got %d", table, n, counts[table])
		}
	}

	second := db.tx.batch.QueuedQueries[2]
	if second.Arguments[0] != "s_a" || second.Arguments[1] != "a2" || second.Arguments[2] != 1 {
		t.Errorf("expected second synonym of s_a at position 1, got %v", second.Arguments)
	}
}
