// Package manager owns actor resolution for one platform.
//
// Ownership boundary:
// - query dispatch (get by id, get-or-create by tags, create)
//
// - actor selection among duplicates
//
// - current build selection
//
// - actor creation payload shape
//
// Resolution order:
// - lookup -> (absent) -> build resolve -> create
//
// - lookup strictly precedes creation within one query.
//
// - two concurrent get-or-create queries for the same tags may both create.
//
// Manager keeps no state between queries. It does not own actor runtime,
// process lifecycle, or networking.
package manager
