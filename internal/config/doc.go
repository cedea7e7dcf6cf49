// Package config manages application configuration for the Courtside API.
//
// Configuration is read from environment variables. A .env file in the
// working directory, when present, supplies values that are not already set.
//
//	cfg, err := config.Load()
//	if err != nil { ... }
//	if err := cfg.Validate(); err != nil { ... }
//
// # Configuration Groups
//
//   - ServerConfig: HTTP server settings (port, timeouts, CORS origins)
//   - DatabaseConfig: SurrealDB connection settings
//   - MatchingConfig: proposal generation and promotion tuning
//   - RateLimitConfig: per-client request limits
//   - IdempotencyConfig: Idempotency-Key replay window
//   - LogConfig: log level and optional rotated log file
//
// # Environment Variables
//
//	SERVER_PORT              - HTTP server port (default: 8080)
//	SERVER_ENV               - development, production or test
//	CORS_ALLOWED_ORIGINS     - comma separated origins
//	DB_HOST, DB_PORT         - SurrealDB address
//	DB_NAMESPACE, DB_DATABASE
//	DB_USER, DB_PASSWORD
//	MATCH_SCOPE_SIZE         - queue entries considered per proposal (default: 8)
//	MATCH_BALANCE_THRESHOLD  - power difference accepted without search (default: 3)
//	MATCH_DURATION           - scheduled length of a promoted match (default: 1h)
//	SKILL_POWERS             - e.g. "CASUAL=50,BEGINNER=60,INTERMEDIATE=80,ADVANCED=90"
//	RATE_LIMIT_ENABLED       - default: true
//	RATE_LIMIT_RATE, RATE_LIMIT_WINDOW, RATE_LIMIT_BURST
//	IDEMPOTENCY_TTL          - default: 24h
//	LOG_LEVEL                - debug, info, warn or error
//	LOG_FILE                 - optional rotated log file
//	LOG_MAX_SIZE_MB, LOG_MAX_BACKUPS
//
// Validate reports every problem at once via errors.Join.
package config
