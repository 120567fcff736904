package store

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/persona-bot/internal/index"
	"github.com/rcliao/persona-bot/internal/markov"
	"github.com/rcliao/persona-bot/internal/persona"
	"github.com/rcliao/persona-bot/internal/tokenizer"
)

// SQLiteStore holds persona model artifacts in a single SQLite bundle.
type SQLiteStore struct {
	db      *sql.DB
	entropy *rand.Rand
}

// Open opens or creates the model database at the given path.
func Open(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS models (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL UNIQUE,
		markov_order INTEGER NOT NULL,
		ngram_max    INTEGER NOT NULL,
		keep_marks   INTEGER NOT NULL,
		lemmatize    INTEGER NOT NULL,
		created_at   TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS terms (
		model_id TEXT NOT NULL REFERENCES models(id) ON DELETE CASCADE,
		idx      INTEGER NOT NULL,
		term     TEXT NOT NULL,
		idf      REAL NOT NULL,
		PRIMARY KEY (model_id, idx)
	);

	CREATE TABLE IF NOT EXISTS replies (
		model_id TEXT NOT NULL REFERENCES models(id) ON DELETE CASCADE,
		doc_idx  INTEGER NOT NULL,
		text     TEXT NOT NULL,
		PRIMARY KEY (model_id, doc_idx)
	);

	CREATE TABLE IF NOT EXISTS vectors (
		model_id TEXT NOT NULL REFERENCES models(id) ON DELETE CASCADE,
		doc_idx  INTEGER NOT NULL,
		term_idx INTEGER NOT NULL,
		weight   REAL NOT NULL,
		PRIMARY KEY (model_id, doc_idx, term_idx)
	);
	CREATE INDEX IF NOT EXISTS idx_vectors_doc ON vectors(model_id, doc_idx);

	CREATE TABLE IF NOT EXISTS transitions (
		model_id TEXT NOT NULL REFERENCES models(id) ON DELETE CASCADE,
		prefix   TEXT NOT NULL,
		next     TEXT NOT NULL,
		count    INTEGER NOT NULL,
		PRIMARY KEY (model_id, prefix, next)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveModel persists a trained persona model, replacing any previous
// build for the same persona name in one transaction.
func (s *SQLiteStore) SaveModel(ctx context.Context, m *persona.Model) error {
	if m == nil || m.Index == nil || m.Chain == nil {
		return fmt.Errorf("save model: incomplete model")
	}
	if m.Index.Size() != len(m.Replies) {
		return fmt.Errorf("save model %s: %d rows vs %d replies", m.Name, m.Index.Size(), len(m.Replies))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Cascade clears terms, replies, vectors, and transitions.
	if _, err := tx.ExecContext(ctx, `DELETE FROM models WHERE name = ?`, m.Name); err != nil {
		return fmt.Errorf("replace model: %w", err)
	}

	id := s.newID()
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO models (id, name, markov_order, ngram_max, keep_marks, lemmatize, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, m.Name, m.Chain.Order, m.Index.NGramMax,
		boolInt(m.Tokenizer.KeepSentenceMarks), boolInt(m.Tokenizer.Lemmatize), now)
	if err != nil {
		return fmt.Errorf("insert model: %w", err)
	}

	termStmt, err := tx.PrepareContext(ctx, `INSERT INTO terms (model_id, idx, term, idf) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer termStmt.Close()
	for term, idx := range m.Index.Vocab {
		if _, err := termStmt.ExecContext(ctx, id, idx, term, m.Index.IDF[idx]); err != nil {
			return fmt.Errorf("insert term: %w", err)
		}
	}

	replyStmt, err := tx.PrepareContext(ctx, `INSERT INTO replies (model_id, doc_idx, text) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer replyStmt.Close()
	for i, text := range m.Replies {
		if _, err := replyStmt.ExecContext(ctx, id, i, text); err != nil {
			return fmt.Errorf("insert reply: %w", err)
		}
	}

	vecStmt, err := tx.PrepareContext(ctx, `INSERT INTO vectors (model_id, doc_idx, term_idx, weight) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer vecStmt.Close()
	for docIdx, row := range m.Index.Rows {
		for termIdx, weight := range row {
			if _, err := vecStmt.ExecContext(ctx, id, docIdx, termIdx, weight); err != nil {
				return fmt.Errorf("insert vector: %w", err)
			}
		}
	}

	transStmt, err := tx.PrepareContext(ctx, `INSERT INTO transitions (model_id, prefix, next, count) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer transStmt.Close()
	for prefix, succ := range m.Chain.Transitions {
		for next, count := range succ {
			if _, err := transStmt.ExecContext(ctx, id, prefix, next, count); err != nil {
				return fmt.Errorf("insert transition: %w", err)
			}
		}
	}

	return tx.Commit()
}

// LoadModel reconstructs a persona model from the database. A missing
// persona is a plain error; a structurally invalid artifact fails with
// ErrCorruptModel.
func (s *SQLiteStore) LoadModel(ctx context.Context, name string) (*persona.Model, error) {
	var (
		id          string
		markovOrder int
		ngramMax    int
		keepMarks   int
		lemmatize   int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, markov_order, ngram_max, keep_marks, lemmatize FROM models WHERE name = ?`, name).
		Scan(&id, &markovOrder, &ngramMax, &keepMarks, &lemmatize)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("model not found: %s", name)
	}
	if err != nil {
		return nil, err
	}
	if markovOrder < 1 || ngramMax < 1 {
		return nil, fmt.Errorf("%w: model %s has invalid parameters", ErrCorruptModel, name)
	}

	vocab, idf, err := s.loadTerms(ctx, id, name)
	if err != nil {
		return nil, err
	}
	replies, err := s.loadReplies(ctx, id, name)
	if err != nil {
		return nil, err
	}
	rows, err := s.loadVectors(ctx, id, name, len(replies), len(idf))
	if err != nil {
		return nil, err
	}
	transitions, err := s.loadTransitions(ctx, id, name)
	if err != nil {
		return nil, err
	}

	return &persona.Model{
		Name:    name,
		Replies: replies,
		Index:   &index.Index{Vocab: vocab, IDF: idf, Rows: rows, NGramMax: ngramMax},
		Chain:   markov.New(markovOrder, transitions),
		Tokenizer: tokenizer.Config{
			KeepSentenceMarks: keepMarks != 0,
			Lemmatize:         lemmatize != 0,
		},
	}, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *SQLiteStore) loadTerms(ctx context.Context, id, name string) (map[string]int, []float64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, term, idf FROM terms WHERE model_id = ? ORDER BY idx`, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	vocab := make(map[string]int)
	var idf []float64
	want := 0
	for rows.Next() {
		var (
			idx  int
			term string
			w    float64
		)
		if err := rows.Scan(&idx, &term, &w); err != nil {
			return nil, nil, err
		}
		if idx != want {
			return nil, nil, fmt.Errorf("%w: model %s vocabulary has a gap at index %d", ErrCorruptModel, name, want)
		}
		if _, dup := vocab[term]; dup {
			return nil, nil, fmt.Errorf("%w: model %s has duplicate term %q", ErrCorruptModel, name, term)
		}
		vocab[term] = idx
		idf = append(idf, w)
		want++
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	if len(vocab) == 0 {
		return nil, nil, fmt.Errorf("%w: model %s has no vocabulary", ErrCorruptModel, name)
	}
	return vocab, idf, nil
}

func (s *SQLiteStore) loadReplies(ctx context.Context, id, name string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_idx, text FROM replies WHERE model_id = ? ORDER BY doc_idx`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var replies []string
	for rows.Next() {
		var (
			idx  int
			text string
		)
		if err := rows.Scan(&idx, &text); err != nil {
			return nil, err
		}
		if idx != len(replies) {
			return nil, fmt.Errorf("%w: model %s replies have a gap at index %d", ErrCorruptModel, name, len(replies))
		}
		replies = append(replies, text)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(replies) == 0 {
		return nil, fmt.Errorf("%w: model %s has no replies", ErrCorruptModel, name)
	}
	return replies, nil
}

func (s *SQLiteStore) loadVectors(ctx context.Context, id, name string, docCount, termCount int) ([]index.SparseVector, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_idx, term_idx, weight FROM vectors WHERE model_id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// A row may legitimately have no entries: a document whose terms were
	// all cut by the vocabulary cap vectorizes to zero. Every doc still
	// gets a (possibly empty) vector.
	vecs := make([]index.SparseVector, docCount)
	for i := range vecs {
		vecs[i] = make(index.SparseVector)
	}
	for rows.Next() {
		var (
			docIdx, termIdx int
			weight          float64
		)
		if err := rows.Scan(&docIdx, &termIdx, &weight); err != nil {
			return nil, err
		}
		if docIdx < 0 || docIdx >= docCount {
			return nil, fmt.Errorf("%w: model %s vector row %d has no aligned reply", ErrCorruptModel, name, docIdx)
		}
		if termIdx < 0 || termIdx >= termCount {
			return nil, fmt.Errorf("%w: model %s vector references unknown term %d", ErrCorruptModel, name, termIdx)
		}
		vecs[docIdx][termIdx] = weight
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return vecs, nil
}

func (s *SQLiteStore) loadTransitions(ctx context.Context, id, name string) (map[string]map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT prefix, next, count FROM transitions WHERE model_id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transitions := make(map[string]map[string]int)
	for rows.Next() {
		var (
			prefix, next string
			count        int
		)
		if err := rows.Scan(&prefix, &next, &count); err != nil {
			return nil, err
		}
		if count < 1 {
			return nil, fmt.Errorf("%w: model %s transition %q -> %q has count %d", ErrCorruptModel, name, prefix, next, count)
		}
		succ := transitions[prefix]
		if succ == nil {
			succ = make(map[string]int)
			transitions[prefix] = succ
		}
		succ[next] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return transitions, nil
}

// ListModels returns summaries of all stored persona models.
func (s *SQLiteStore) ListModels(ctx context.Context) ([]ModelInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.name, m.markov_order, m.created_at,
		       (SELECT COUNT(*) FROM replies r WHERE r.model_id = m.id),
		       (SELECT COUNT(*) FROM terms t WHERE t.model_id = m.id),
		       (SELECT COUNT(DISTINCT prefix) FROM transitions tr WHERE tr.model_id = m.id)
		FROM models m ORDER BY m.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []ModelInfo
	for rows.Next() {
		var (
			info      ModelInfo
			createdAt string
		)
		if err := rows.Scan(&info.ID, &info.Name, &info.Order, &createdAt,
			&info.Utterances, &info.Terms, &info.Prefixes); err != nil {
			return nil, err
		}
		info.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Replies returns the stored reply texts for a persona in corpus order.
func (s *SQLiteStore) Replies(ctx context.Context, name string) ([]string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM models WHERE name = ?`, name).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("model not found: %s", name)
	}
	if err != nil {
		return nil, err
	}
	return s.loadReplies(ctx, id, name)
}

// Close closes the store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
