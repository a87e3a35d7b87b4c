package repo

import (
	"context"
	"errors"

	"github.com/jacentio/listsync/internal/idgen"
	"github.com/jacentio/listsync/store"
)

// ItemRepo owns the todo-item table. Items are scoped by list.
type ItemRepo struct {
	store *store.Store
	ids   idgen.Generator
}

// NewItemRepo creates an item repository over the given store.
func NewItemRepo(s *store.Store, ids idgen.Generator) *ItemRepo {
	return &ItemRepo{store: s, ids: ids}
}

func (r *ItemRepo) key(listID, todoID string) store.Key {
	cfg := r.store.Config()
	return store.Key{
		cfg.ItemPartitionKey: listID,
		cfg.ItemSortKey:      todoID,
	}
}

// FindAllByList returns every item of one list.
func (r *ItemRepo) FindAllByList(ctx context.Context, listID string) ([]store.Record, error) {
	cfg := r.store.Config()
	return r.store.Query(ctx, store.QueryInput{
		Table: cfg.ItemTable,
		Key:   map[string]any{cfg.ItemPartitionKey: listID},
	})
}

// FindByID returns one item, or ErrNotFound.
func (r *ItemRepo) FindByID(ctx context.Context, listID, todoID string) (store.Record, error) {
	return r.store.Get(ctx, r.store.Config().ItemTable, r.key(listID, todoID))
}

// Create stores a new item under the list, generating a todoId when the
// caller didn't supply one. Fails with ErrAlreadyExists when the
// (listId, todoId) pair is already taken.
func (r *ItemRepo) Create(ctx context.Context, listID string, item store.Record) (store.Record, error) {
	cfg := r.store.Config()

	stored := make(store.Record, len(item)+2)
	for k, v := range item {
		stored[k] = v
	}
	if stored.String(cfg.ItemSortKey) == "" {
		stored[cfg.ItemSortKey] = r.ids.NewID()
	}
	stored[cfg.ItemPartitionKey] = listID

	err := r.store.TransactWrite(ctx, []store.WriteOp{{Put: &store.Put{
		Table:     cfg.ItemTable,
		Item:      stored,
		Condition: store.ConditionNotExists(cfg.ItemPartitionKey, cfg.ItemSortKey),
	}}})
	if errors.Is(err, store.ErrPreconditionFailed) {
		return nil, store.ErrAlreadyExists
	}
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// Update applies a partial update, preserving unspecified fields. Fails
// with ErrNotFound when the item doesn't exist.
func (r *ItemRepo) Update(ctx context.Context, listID, todoID string, fields store.Record) error {
	err := r.store.Update(ctx, r.store.Config().ItemTable, r.key(listID, todoID), fields)
	if errors.Is(err, store.ErrPreconditionFailed) {
		return store.ErrNotFound
	}
	return err
}

// Delete removes an item. Deleting an absent item is not an error.
func (r *ItemRepo) Delete(ctx context.Context, listID, todoID string) error {
	return r.store.TransactWrite(ctx, []store.WriteOp{{Delete: &store.Delete{
		Table: r.store.Config().ItemTable,
		Key:   r.key(listID, todoID),
	}}})
}
