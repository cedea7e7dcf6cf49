package database

// Transaction utilities for Courtside.
//
// # UnitOfWork (write-sets)
//
// Every multi-record mutation is declared as a write-set: guards first, then
// the writes. The whole set is sent as one transaction, so either every
// statement applies or none does:
//
//	uow := NewUnitOfWork(db)
//	uow.Guard("record::exists(type::record($id)) = false", "pool_gone", vars)
//	uow.Add("DELETE type::record($id)", vars)
//	err := uow.Commit(ctx) // *GuardError if the guard tripped
//
// # TxBuilder
//
// The lower-level builder behind UnitOfWork. Variables are namespaced per
// statement ($id -> $v1_id) so statements can reuse names freely.
//
// # AtomicBatch
//
// Fluent wrapper for a handful of unguarded statements (seed data, cleanup).
//
// IMPORTANT: All patterns are BATCH-BASED. Queries accumulate and execute
// together at commit time. There is no isolation between Add() calls.

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// TxBuilder builds atomic transaction queries with automatic variable namespacing.
// This prevents variable name collisions when combining queries from different sources.
//
// Example: Two queries both using $email get namespaced to $v1_email and $v2_email.
type TxBuilder struct {
	statements []string
	vars       map[string]interface{}
	varCounter uint64
}

// NewTxBuilder creates a new transaction builder
func NewTxBuilder() *TxBuilder {
	return &TxBuilder{
		statements: make([]string, 0),
		vars:       make(map[string]interface{}),
	}
}

// Add adds a statement to the transaction, namespacing variables to avoid collisions.
// Returns the namespaced variable map for reference.
func (tb *TxBuilder) Add(query string, vars map[string]interface{}) map[string]string {
	// Longest names first so $pool_id is rewritten before $pool can match
	// its prefix; ties sorted for stable output.
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})

	varMapping := make(map[string]string, len(names))
	newQuery := query
	for _, varName := range names {
		tb.varCounter++
		newVarName := fmt.Sprintf("v%d_%s", tb.varCounter, varName)

		newQuery = strings.ReplaceAll(newQuery, "$"+varName, "$"+newVarName)

		tb.vars[newVarName] = vars[varName]
		varMapping[varName] = newVarName
	}

	tb.statements = append(tb.statements, newQuery)
	return varMapping
}

// AddRaw adds a raw statement without variable substitution
func (tb *TxBuilder) AddRaw(query string) {
	tb.statements = append(tb.statements, query)
}

// Len returns the number of statements added so far
func (tb *TxBuilder) Len() int {
	return len(tb.statements)
}

// Build returns the complete transaction query and merged variables
func (tb *TxBuilder) Build() (string, map[string]interface{}) {
	if len(tb.statements) == 0 {
		return "", nil
	}

	// Wrap in transaction block
	var sb strings.Builder
	sb.WriteString("BEGIN TRANSACTION;\n")
	for _, stmt := range tb.statements {
		sb.WriteString(stmt)
		if !strings.HasSuffix(strings.TrimSpace(stmt), ";") {
			sb.WriteString(";")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("COMMIT TRANSACTION;")

	return sb.String(), tb.vars
}

// ExecuteTransaction executes a transaction built with TxBuilder
func ExecuteTransaction(ctx context.Context, db Database, tb *TxBuilder) ([]interface{}, error) {
	query, vars := tb.Build()
	if query == "" {
		return nil, nil
	}

	return db.Query(ctx, query, vars)
}

// UnitOfWork is a write-set: guarded statements that must all apply together.
type UnitOfWork struct {
	db      Database
	builder *TxBuilder
}

// NewUnitOfWork creates a new unit of work
func NewUnitOfWork(db Database) *UnitOfWork {
	return &UnitOfWork{
		db:      db,
		builder: NewTxBuilder(),
	}
}

// Guard aborts the unit with a *GuardError carrying code when cond holds at
// commit time.
func (uow *UnitOfWork) Guard(cond, code string, vars map[string]interface{}) *UnitOfWork {
	uow.builder.Add(Guard(cond, code), vars)
	return uow
}

// Add adds a statement to the unit of work
func (uow *UnitOfWork) Add(query string, vars map[string]interface{}) *UnitOfWork {
	uow.builder.Add(query, vars)
	return uow
}

// Len returns the number of statements in the unit
func (uow *UnitOfWork) Len() int {
	return uow.builder.Len()
}

// Build exposes the final transaction text and variables
func (uow *UnitOfWork) Build() (string, map[string]interface{}) {
	return uow.builder.Build()
}

// Commit executes all statements atomically
func (uow *UnitOfWork) Commit(ctx context.Context) error {
	_, err := uow.Exec(ctx)
	return err
}

// Exec executes all statements atomically and returns the per-statement
// results, for callers that need the IDs of created records.
func (uow *UnitOfWork) Exec(ctx context.Context) ([]interface{}, error) {
	return ExecuteTransaction(ctx, uow.db, uow.builder)
}

// AtomicBatch provides a simpler API for batch operations that should be atomic
type AtomicBatch struct {
	queries []batchQuery
}

type batchQuery struct {
	query string
	vars  map[string]interface{}
}

// NewAtomicBatch creates a new atomic batch
func NewAtomicBatch() *AtomicBatch {
	return &AtomicBatch{
		queries: make([]batchQuery, 0),
	}
}

// Add adds a query to the batch
func (ab *AtomicBatch) Add(query string, vars map[string]interface{}) *AtomicBatch {
	ab.queries = append(ab.queries, batchQuery{query: query, vars: vars})
	return ab
}

// Execute runs all queries as a single transaction
func (ab *AtomicBatch) Execute(ctx context.Context, db Database) error {
	if len(ab.queries) == 0 {
		return nil
	}

	uow := NewUnitOfWork(db)
	for _, q := range ab.queries {
		uow.Add(q.query, q.vars)
	}
	return uow.Commit(ctx)
}

// Len returns the number of queries in the batch
func (ab *AtomicBatch) Len() int {
	return len(ab.queries)
}
