// Package repo implements the list, item, and membership repositories.
//
// The three tables are kept referentially consistent by construction:
// a list is created atomically with its owner membership, an item is
// created under an existence precondition on its key pair, and a list
// delete cascades over memberships and items in bounded transaction
// chunks. Cross-chunk atomicity is intentionally not provided; see
// [ListRepo.Delete].
package repo
