// Package middleware provides HTTP middleware for the Courtside API.
//
// # Available Middleware
//
//   - RequestID: tags each request with X-Request-ID
//   - Logger: one structured log line per request
//   - Recovery: converts panics into a 500 problem response
//   - CORS: browser access for configured origins
//   - Compress: gzip responses
//   - RateLimit: per-client token buckets
//   - Idempotency: replays responses to retried POSTs that carry an
//     Idempotency-Key, so a retried pool commit or promotion does not
//     apply twice
//
// # Ordering
//
//	handler = middleware.Chain(mux,
//		middleware.RequestID,
//		middleware.Recovery(logger),
//		middleware.Logger(logger),
//		middleware.CORS(origins),
//		middleware.RateLimit(limiter),
//		middleware.Idempotency(store),
//		middleware.Compress,
//	)
package middleware
