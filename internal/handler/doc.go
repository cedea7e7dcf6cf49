// Package handler exposes the match pool engine over HTTP.
//
// MatchPoolHandler registers its routes on a standard http.ServeMux using
// method and path-value patterns:
//
//	mux := http.NewServeMux()
//	handler.NewMatchPoolHandler(svc).RegisterRoutes(mux)
//
// # Response Format
//
//   - WriteData: single resource with optional HATEOAS links
//   - WriteCollection: paginated list of resources
//   - WriteError: RFC 9457 Problem Details error response
//
// # Errors
//
// MapServiceError translates service errors by category. Missing records
// become 404, validation and capacity failures 422, conflicts and state
// violations 409. Anything unrecognised is logged and returned as a 500
// without internal detail.
package handler
