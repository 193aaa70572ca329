// internal/store/store.go
//
// MySQL document store for validated records.
//
// Context
// -------
// Each collection is one table holding the record as a JSON document:
//
//	id          BIGINT UNSIGNED AUTO_INCREMENT
//	data        JSON
//	created_at  DATETIME(6)
//
// Fields marked `unique` in a record type become a stored generated column
// plus a UNIQUE KEY, so the BlogPost slug invariant is enforced by the
// database rather than by the schema layer.  The column holds the SHA-256 of
// the unquoted value, which keeps the key 32 bytes wide whatever the string
// length.  JSON null and absent values map to SQL NULL, and a UNIQUE KEY
// admits any number of those.
//
// Workflow
// --------
//  1. st := store.New(db)
//  2. st.Migrate(ctx, reg.Types())               // once at boot.
//  3. id, err := st.Insert(ctx, rec.Collection(), rec)
//
// Notes
// -----
//   - Table and column names are spliced into SQL, so every collection and
//     field name is re-checked against the identifier patterns first.
//   - Duplicate-key failures (MySQL 1062) surface as ErrDuplicate.
//   - Oxford commas, two spaces after periods.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/docschema/internal/schema"
)

var (
	// ErrNotFound is returned by Get when no document has the given id.
	ErrNotFound = errors.New("document not found")

	// ErrDuplicate is returned by Insert when a unique field collides.
	ErrDuplicate = errors.New("duplicate document")
)

// erDupEntry is MySQL's ER_DUP_ENTRY.
const erDupEntry = 1062

var fieldIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Document is one stored record.
type Document struct {
	ID         uint64          `json:"id"`
	Collection string          `json:"collection"`
	Data       json.RawMessage `json:"data"`
	CreatedAt  time.Time       `json:"created_at"`
}

type row struct {
	ID        uint64    `db:"id"`
	Data      []byte    `db:"data"`
	CreatedAt time.Time `db:"created_at"`
}

func (r row) document(collection string) Document {
	return Document{
		ID:         r.ID,
		Collection: collection,
		Data:       json.RawMessage(r.Data),
		CreatedAt:  r.CreatedAt,
	}
}

// Store persists records.  Safe for concurrent use.
type Store struct {
	db *sqlx.DB
}

// New wraps an open pool.
func New(db *sqlx.DB) *Store { return &Store{db: db} }

// Migrate creates one table per record type if it does not exist yet.
func (s *Store) Migrate(ctx context.Context, types []*schema.RecordType) error {
	for _, rt := range types {
		ddl, err := createTableSQL(rt)
		if err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("migrate %s: %w", rt.Collection, err)
		}
	}
	return nil
}

// Insert stores rec in collection and returns the new id.
func (s *Store) Insert(ctx context.Context, collection string, rec schema.Record) (uint64, error) {
	table, err := quoteTable(collection)
	if err != nil {
		return 0, err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("encode %s record: %w", collection, err)
	}

	res, err := s.db.ExecContext(ctx, "INSERT INTO "+table+" (data) VALUES (?)", data)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == erDupEntry {
			return 0, fmt.Errorf("%w: %s", ErrDuplicate, me.Message)
		}
		return 0, fmt.Errorf("insert %s: %w", collection, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", collection, err)
	}
	return uint64(id), nil
}

// Get fetches a single document by id.
func (s *Store) Get(ctx context.Context, collection string, id uint64) (Document, error) {
	table, err := quoteTable(collection)
	if err != nil {
		return Document{}, err
	}
	var r row
	err = s.db.GetContext(ctx, &r,
		"SELECT id, data, created_at FROM "+table+" WHERE id = ?", id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return Document{}, ErrNotFound
	case err != nil:
		return Document{}, fmt.Errorf("get %s/%d: %w", collection, id, err)
	}
	return r.document(collection), nil
}

// List returns up to limit documents ordered by id, skipping offset.
func (s *Store) List(ctx context.Context, collection string, limit, offset int) ([]Document, error) {
	table, err := quoteTable(collection)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || offset < 0 {
		return nil, fmt.Errorf("list %s: bad window limit=%d offset=%d", collection, limit, offset)
	}

	var rows []row
	if err := s.db.SelectContext(ctx, &rows,
		"SELECT id, data, created_at FROM "+table+" ORDER BY id LIMIT ? OFFSET ?",
		limit, offset); err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	out := make([]Document, len(rows))
	for i, r := range rows {
		out[i] = r.document(collection)
	}
	return out, nil
}

/*──────────────────────────── DDL helpers ───────────────────────────────────*/

func quoteTable(collection string) (string, error) {
	if !schema.ValidCollection(collection) {
		return "", fmt.Errorf("invalid collection name %q", collection)
	}
	return "`" + collection + "`", nil
}

// uniqueColumn names the generated column for a unique field.  The prefix
// keeps it clear of id, data, and created_at.
func uniqueColumn(field string) string { return "u_" + field }

// uniqueExpr hashes the value at $.field, or yields NULL for JSON null.
func uniqueExpr(field string) string {
	extract := "JSON_EXTRACT(data, '$." + field + "')"
	return "CASE WHEN JSON_TYPE(" + extract + ") = 'NULL' THEN NULL" +
		" ELSE UNHEX(SHA2(JSON_UNQUOTE(" + extract + "), 256)) END"
}

func createTableSQL(rt *schema.RecordType) (string, error) {
	table, err := quoteTable(rt.Collection)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS " + table + " (\n")
	b.WriteString("  id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,\n")
	b.WriteString("  data JSON NOT NULL,\n")
	b.WriteString("  created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),\n")

	uniq := rt.UniqueFields()
	for _, f := range uniq {
		if !fieldIdent.MatchString(f) {
			return "", fmt.Errorf("%s: invalid unique field name %q", rt.Name, f)
		}
		fmt.Fprintf(&b, "  %s BINARY(32) GENERATED ALWAYS AS (%s) STORED,\n",
			uniqueColumn(f), uniqueExpr(f))
	}

	b.WriteString("  PRIMARY KEY (id)")
	for _, f := range uniq {
		fmt.Fprintf(&b, ",\n  UNIQUE KEY uq_%s (%s)", f, uniqueColumn(f))
	}
	b.WriteString("\n) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4")
	return b.String(), nil
}
