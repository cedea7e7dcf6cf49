// Package testdb runs repository tests against a real SurrealDB.
//
// Each call to New gets its own namespace with the module's migrations
// applied, so write-set guards, unique indexes and field assertions behave
// exactly as in production. The namespace is dropped in t.Cleanup.
//
//	func TestSomething(t *testing.T) {
//	    tdb := testdb.New(t) // skips when no database is reachable
//	    results, err := tdb.DB.Query(tdb.Ctx(), "SELECT * FROM queue_entry", nil)
//	}
//
// Connection settings come from TEST_DB_HOST, TEST_DB_PORT, TEST_DB_USER
// and TEST_DB_PASSWORD. Set TEST_DB_REQUIRED to fail instead of skip.
package testdb
