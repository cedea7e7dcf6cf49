// Package service implements the match pool workflow: queue management,
// proposal generation, pool assembly and promotion to a court match.
//
// MatchPoolService depends on the MatchPoolRepository interface it defines,
// so tests run against hand-written fakes or the in-memory store in
// internal/testing/memstore.
//
//	svc := service.NewMatchPoolService(service.MatchPoolServiceConfig{
//	    Repo:      repo,
//	    Generator: matching.NewGenerator(powers, cfg.Matching.GeneratorConfig()),
//	    Metrics:   recorder,
//	})
//	pool, proposal, err := svc.GeneratePool(ctx, sessionID, "ANY")
//
// # Error Handling
//
// Errors are package-level sentinels, each wrapping one category:
// ErrValidation, ErrCapacity, ErrConflict or ErrState. Branch on the
// specific error or on its category:
//
//	if errors.Is(err, service.ErrConflict) {
//	    // someone else took the entry or the court
//	}
package service
