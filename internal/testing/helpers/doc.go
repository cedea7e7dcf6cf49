// Package helpers provides test utility functions for the Courtside API.
//
// # Request Helpers
//
// Build and serve requests against a handler:
//
//	rec := helpers.NewRequest(t, "POST", "/v1/pools/"+id+"/promote").
//		WithBody(map[string]string{"session_court_id": courtID}).
//		Do(mux)
//
// # Assertion Helpers
//
// Common response and database assertions:
//
//	helpers.AssertProblemDetails(t, rec, http.StatusConflict, model.ErrCodeConflict)
//	helpers.AssertValidationError(t, rec, "team")
//	helpers.AssertRecordNotExists(t, db, pool.ID)
package helpers
