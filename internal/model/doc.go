// Package model defines domain entities and data structures for the Courtside API.
//
// The model package contains the session, queue, pool and match types shared by
// the matching engine, the service layer and the store. Models are plain
// structs with json tags; they carry no persistence logic.
//
// # Lifecycle
//
// A member moves through three states within a session:
//
//	QUEUED  --add to pool-->  POOLED  --promote-->  MATCHED
//	POOLED  --remove/disband-->  QUEUED
//
// A member is a candidate only while holding a QueueEntry.
//
// # Errors
//
// ProblemDetails implements RFC 9457 and is what handlers write on failure.
package model
