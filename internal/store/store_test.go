// internal/store/store_test.go
//
// Unit-tests for the document store using sqlmock.
//
// Run: go test ./internal/store -v

package store

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/docschema/internal/schema"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "mysql")), mock
}

func blogPost(t *testing.T) schema.Record {
	t.Helper()
	reg, err := schema.Builtin()
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}
	rec, err := reg.Validate("BlogPost", map[string]any{
		"title":   "Hello",
		"slug":    "hello",
		"content": "body",
	})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return rec
}

func TestCreateTableSQL_UniqueSlug(t *testing.T) {
	reg, err := schema.Builtin()
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}
	rt, _ := reg.Lookup("BlogPost")

	ddl, err := createTableSQL(rt)
	if err != nil {
		t.Fatalf("createTableSQL: %v", err)
	}
	for _, want := range []string{
		"CREATE TABLE IF NOT EXISTS `blogpost`",
		// Hashed, so slugs of any length fit the key.
		"u_slug BINARY(32) GENERATED ALWAYS AS (" +
			"CASE WHEN JSON_TYPE(JSON_EXTRACT(data, '$.slug')) = 'NULL' THEN NULL" +
			" ELSE UNHEX(SHA2(JSON_UNQUOTE(JSON_EXTRACT(data, '$.slug')), 256)) END) STORED",
		"UNIQUE KEY uq_slug (u_slug)",
	} {
		if !strings.Contains(ddl, want) {
			t.Errorf("ddl missing %q:\n%s", want, ddl)
		}
	}
	if strings.Contains(ddl, "VARCHAR") {
		t.Errorf("unique column must not be length-bounded:\n%s", ddl)
	}

	user, _ := reg.Lookup("User")
	ddl, _ = createTableSQL(user)
	if strings.Contains(ddl, "UNIQUE KEY") {
		t.Errorf("user table should have no unique keys:\n%s", ddl)
	}
}

func TestCreateTableSQL_NullableUnique(t *testing.T) {
	reg, err := schema.NewRegistry([]*schema.RecordType{{
		Name: "Account",
		Fields: []schema.FieldSpec{
			{Name: "handle", Type: schema.KindString, Required: true},
			{Name: "phone", Type: schema.KindString, Nullable: true, Unique: true},
		},
	}})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	rt, _ := reg.Lookup("Account")

	ddl, err := createTableSQL(rt)
	if err != nil {
		t.Fatalf("createTableSQL: %v", err)
	}
	// A JSON null must become SQL NULL, never the string "null", so many
	// documents without a phone can coexist under the unique key.
	if !strings.Contains(ddl, "CASE WHEN JSON_TYPE(JSON_EXTRACT(data, '$.phone')) = 'NULL' THEN NULL") {
		t.Fatalf("null phone not mapped to SQL NULL:\n%s", ddl)
	}
	if !strings.Contains(ddl, "UNIQUE KEY uq_phone (u_phone)") {
		t.Fatalf("missing unique key:\n%s", ddl)
	}

	rec, err := reg.Validate("Account", map[string]any{"handle": "ada"})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if v, ok := rec.Get("phone"); !ok || v != nil {
		t.Fatalf("phone = %v, %v; want explicit null", v, ok)
	}
}

func TestMigrate(t *testing.T) {
	st, mock := newMock(t)
	reg, _ := schema.Builtin()

	for _, c := range []string{"user", "product", "blogpost", "message"} {
		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS `" + c + "`")).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}

	if err := st.Migrate(context.Background(), reg.Types()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestInsert(t *testing.T) {
	st, mock := newMock(t)
	rec := blogPost(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `blogpost` (data) VALUES (?)")).
		WithArgs([]byte(`{"title":"Hello","slug":"hello","cover_image":null,"excerpt":null,"content":"body","tags":[]}`)).
		WillReturnResult(sqlmock.NewResult(7, 1))

	id, err := st.Insert(context.Background(), "blogpost", rec)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if id != 7 {
		t.Fatalf("id = %d, want 7", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestInsert_Duplicate(t *testing.T) {
	st, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `blogpost`")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'hello' for key 'uq_slug'"})

	_, err := st.Insert(context.Background(), "blogpost", blogPost(t))
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
}

func TestInsert_BadCollection(t *testing.T) {
	st, _ := newMock(t)
	if _, err := st.Insert(context.Background(), "blog`post", blogPost(t)); err == nil {
		t.Fatalf("expected invalid collection error")
	}
}

func TestGet(t *testing.T) {
	st, mock := newMock(t)
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, data, created_at FROM `user` WHERE id = ?")).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "data", "created_at"}).
			AddRow(uint64(3), []byte(`{"name":"Ada"}`), ts))

	doc, err := st.Get(context.Background(), "user", 3)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if doc.ID != 3 || doc.Collection != "user" || string(doc.Data) != `{"name":"Ada"}` || !doc.CreatedAt.Equal(ts) {
		t.Fatalf("unexpected doc: %+v", doc)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	st, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, data, created_at FROM `user` WHERE id = ?")).
		WithArgs(uint64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "data", "created_at"}))

	if _, err := st.Get(context.Background(), "user", 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestList(t *testing.T) {
	st, mock := newMock(t)
	ts := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, data, created_at FROM `message` ORDER BY id LIMIT ? OFFSET ?")).
		WithArgs(2, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "data", "created_at"}).
			AddRow(uint64(11), []byte(`{"name":"a"}`), ts).
			AddRow(uint64(12), []byte(`{"name":"b"}`), ts))

	docs, err := st.List(context.Background(), "message", 2, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != 11 || docs[1].ID != 12 {
		t.Fatalf("unexpected docs: %+v", docs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestList_BadWindow(t *testing.T) {
	st, _ := newMock(t)
	if _, err := st.List(context.Background(), "message", 0, 0); err == nil {
		t.Fatalf("expected error for zero limit")
	}
}
