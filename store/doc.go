// Package store provides the DynamoDB access layer for the listsync tables.
//
// All higher-level repositories go through the four primitives defined
// here: point [Store.Get], indexed [Store.Query], atomic multi-item
// [Store.TransactWrite], and conditional [Store.Update]. Records are open
// attribute mappings ([Record]); table and key attribute names come from
// [Config] rather than being hardcoded.
//
// # Errors
//
// The package defines the error taxonomy shared by the whole module:
//
//   - [ErrNotFound] - a point read targeted an absent record
//   - [ErrAlreadyExists] - a creation precondition was violated
//   - [ErrPreconditionFailed] - a conditional write's condition did not hold
//   - [ErrTransactionSizeExceeded] - too many operations for one transaction
//   - [ErrUnavailable] - transient DynamoDB infrastructure failure
//
// Repositories translate [ErrPreconditionFailed] into [ErrNotFound] or
// [ErrAlreadyExists] according to the condition they issued.
package store
