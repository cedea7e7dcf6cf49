// Package fixtures provides test data factories for the Courtside API.
//
// The fixtures package contains factory functions for creating test data
// with sensible defaults and optional customization.
//
// # Factory Pattern
//
// Create a factory with a database connection:
//
//	f := fixtures.New(tdb.DB)
//
// # Creating Test Data
//
// Factory methods create domain entities:
//
//	session := f.CreateSession(t)                  // Active session
//	court := f.CreateCourt(t, session)             // Free court
//	member := f.CreateMember(t)                    // Intermediate male member
//	entry := f.Enqueue(t, session, member, at)     // Queue entry
//	f.RecordMatch(t, session, a, b, c, d)          // Match history
//
// # Customization
//
// Use option functions for customization:
//
//	member := f.CreateMember(t, fixtures.WithLevel(model.SkillAdvanced))
//	closed := f.CreateSession(t, fixtures.Inactive())
//
// # Cleanup
//
// Test data is cleaned up when the test database is closed.
package fixtures
