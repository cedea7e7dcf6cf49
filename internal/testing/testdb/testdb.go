package testdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/forgo/courtside/api/internal/database"
)

// TestDB is a SurrealDB database in a namespace owned by one test. The
// namespace is removed when the test finishes.
type TestDB struct {
	DB        database.Database
	Namespace string
	t         *testing.T
}

var (
	schemaOnce sync.Once
	schema     []string
	schemaErr  error

	seq atomic.Int64
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// moduleRoot walks up from the working directory to the directory holding
// go.mod.
func moduleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("go.mod not found above working directory")
		}
		dir = parent
	}
}

// loadSchema reads migrations/*.surql in file name order, once per process
func loadSchema() ([]string, error) {
	schemaOnce.Do(func() {
		root, err := moduleRoot()
		if err != nil {
			schemaErr = err
			return
		}
		files, err := filepath.Glob(filepath.Join(root, "migrations", "*.surql"))
		if err != nil {
			schemaErr = err
			return
		}
		if len(files) == 0 {
			schemaErr = fmt.Errorf("no migrations under %s", root)
			return
		}
		slices.Sort(files)
		for _, f := range files {
			content, err := os.ReadFile(f)
			if err != nil {
				schemaErr = fmt.Errorf("reading %s: %w", filepath.Base(f), err)
				return
			}
			schema = append(schema, string(content))
		}
	})
	return schema, schemaErr
}

// New connects to the test SurrealDB, creates a fresh namespace and applies
// the migrations. The test is skipped when no database is reachable, unless
// TEST_DB_REQUIRED is set.
func New(t *testing.T) *TestDB {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := database.Config{
		Host:      envOr("TEST_DB_HOST", "localhost"),
		Port:      envOr("TEST_DB_PORT", "8000"),
		User:      envOr("TEST_DB_USER", "root"),
		Password:  envOr("TEST_DB_PASSWORD", "root"),
		Namespace: fmt.Sprintf("courtside_test_%d_%d", time.Now().UnixNano(), seq.Add(1)),
		Database:  "test",
	}

	db := database.NewSurrealDB(cfg)
	if err := db.Connect(ctx); err != nil {
		if os.Getenv("TEST_DB_REQUIRED") == "" {
			t.Skipf("testdb: no database at %s:%s: %v", cfg.Host, cfg.Port, err)
		}
		t.Fatalf("testdb: connect: %v", err)
	}

	tdb := &TestDB{DB: db, Namespace: cfg.Namespace, t: t}
	t.Cleanup(tdb.drop)

	migrations, err := loadSchema()
	if err != nil {
		t.Fatalf("testdb: %v", err)
	}
	for i, m := range migrations {
		if err := db.Execute(ctx, m, nil); err != nil {
			t.Fatalf("testdb: migration %d: %v", i+1, err)
		}
	}
	return tdb
}

func (tdb *TestDB) drop() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = tdb.DB.Execute(ctx, "REMOVE NAMESPACE "+tdb.Namespace, nil)
	_ = tdb.DB.Close()
}

// Ctx returns the test's context. It is cancelled when the test ends.
func (tdb *TestDB) Ctx() context.Context {
	return tdb.t.Context()
}

// MustExec runs query and fails the test on error
func (tdb *TestDB) MustExec(query string, vars map[string]interface{}) {
	tdb.t.Helper()
	if err := tdb.DB.Execute(tdb.Ctx(), query, vars); err != nil {
		tdb.t.Fatalf("testdb: exec failed: %v\nQuery: %s", err, query)
	}
}
