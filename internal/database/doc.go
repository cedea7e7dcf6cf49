// Package database provides the database abstraction layer for Courtside.
//
// This package defines the Database interface that abstracts SurrealDB operations,
// allowing for clean separation between business logic and data access.
//
// # Interface Design
//
// The Database interface provides three query methods:
//   - Query: Returns multiple results (for SELECT queries returning lists)
//   - QueryOne: Returns a single result (for SELECT by ID)
//   - Execute: No return value (for CREATE/UPDATE/DELETE mutations)
//
// # Atomic Writes
//
// Multi-statement writes are BATCH-BASED. A UnitOfWork accumulates statements
// in memory and sends them as one BEGIN TRANSACTION / COMMIT TRANSACTION
// query. Conditions that must still hold at commit time are expressed as
// guards, which THROW inside the transaction and surface as *GuardError.
//
// # Error Handling
//
// Standard errors are defined for common failure cases:
//   - ErrNotFound: Record does not exist
//   - ErrConnection: Database connection issues
//   - ErrQuery: Query execution failures
//   - ErrTxConflict: A concurrent transaction touched the same records
//   - ErrGuard: A guard condition failed (use errors.As for the code)
//
// Use errors.Is() to check error types:
//
//	if errors.Is(err, database.ErrNotFound) {
//	    // Handle missing record
//	}
//
// # Write-sets
//
// Repositories never issue dependent writes one at a time. Each atomic
// operation builds a UnitOfWork listing its guards and writes:
//
//	uow := database.NewUnitOfWork(db)
//	uow.Guard(
//	    "record::exists(type::record($entry_id)) = false",
//	    model.GuardQueueEntryConsumed,
//	    map[string]interface{}{"entry_id": entryID},
//	)
//	uow.Add("DELETE type::record($entry_id)", map[string]interface{}{"entry_id": entryID})
//	if err := uow.Commit(ctx); err != nil {
//	    if code, ok := database.GuardCode(err); ok {
//	        // map code to a domain error
//	    }
//	}
//
// Guards run inside the transaction, so a check and the write it protects
// are evaluated against the same snapshot.
package database
