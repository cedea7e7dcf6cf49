// Package repository implements SurrealDB storage for sessions, queues,
// pools and matches.
//
// MatchPoolRepository satisfies service.MatchPoolRepository. Reads are plain
// parameterized SurrealQL. Every write that touches more than one record is a
// database.UnitOfWork: the guards it needs (entry still queued, court still
// free, pool unchanged) run inside the same transaction as the writes, so a
// request that loses a race changes nothing.
//
//	repo := repository.NewMatchPoolRepository(db)
//	if err := repo.PromotePool(ctx, pool, court, match); err != nil {
//	    if code, ok := database.GuardCode(err); ok {
//	        // model.GuardCourtBooked, model.GuardPoolGone, ...
//	    }
//	}
//
// Record IDs are generated by the database and written back onto the
// passed-in structs.
package repository
