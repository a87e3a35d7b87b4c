package repo

import (
	"context"
	"errors"
	"sort"
	"strconv"

	"github.com/jacentio/listsync/internal/idgen"
	"github.com/jacentio/listsync/store"
)

// Sort orders for FindItemsByList.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// ShareTarget names one user a list is shared with and the role granted.
type ShareTarget struct {
	UserID string
	Role   int
}

// QueryOptions selects and orders items returned by FindItemsByList.
type QueryOptions struct {
	// Filters maps field names to the value they must equal, AND-combined.
	// Empty values are ignored.
	Filters map[string]string

	// SortBy names the field to order the result set by.
	SortBy string

	// SortOrder is SortAsc or SortDesc. Defaults to ascending.
	SortOrder string
}

// ListRepo owns the list table and orchestrates the cross-table invariants:
// atomic create with the owner membership, chunked cascading delete, and
// transactional sharing.
type ListRepo struct {
	store       *store.Store
	memberships *MembershipRepo
	ids         idgen.Generator
}

// NewListRepo creates a list repository over the given store.
func NewListRepo(s *store.Store, memberships *MembershipRepo, ids idgen.Generator) *ListRepo {
	return &ListRepo{store: s, memberships: memberships, ids: ids}
}

func (r *ListRepo) key(listID string) store.Key {
	return store.Key{r.store.Config().ListKey: listID}
}

// Create stores a new list and its owner membership in one transaction.
// A listId is generated when the caller didn't supply one. Fails with
// ErrAlreadyExists when a list with the same listId is present; in that
// case no membership is written either.
func (r *ListRepo) Create(ctx context.Context, ownerUserID string, list store.Record) (store.Record, error) {
	cfg := r.store.Config()

	stored := make(store.Record, len(list)+1)
	for k, v := range list {
		stored[k] = v
	}
	listID := stored.String(cfg.ListKey)
	if listID == "" {
		listID = r.ids.NewID()
		stored[cfg.ListKey] = listID
	}

	ops := []store.WriteOp{
		{Put: &store.Put{
			Table:     cfg.ListTable,
			Item:      stored,
			Condition: store.ConditionNotExists(cfg.ListKey),
		}},
		r.memberships.putOp(Membership{UserID: ownerUserID, ListID: listID, Role: RoleOwner}),
	}

	err := r.store.TransactWrite(ctx, ops)
	if errors.Is(err, store.ErrPreconditionFailed) {
		return nil, store.ErrAlreadyExists
	}
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// FindByID returns one list, or ErrNotFound.
func (r *ListRepo) FindByID(ctx context.Context, listID string) (store.Record, error) {
	return r.store.Get(ctx, r.store.Config().ListTable, r.key(listID))
}

// FindItemsByList returns the list's items, optionally filtered by field
// equality and ordered by one field. The item index cannot combine a
// filter with an ordering key, so sorting happens in-process after
// retrieval.
func (r *ListRepo) FindItemsByList(ctx context.Context, listID string, opts QueryOptions) ([]store.Record, error) {
	cfg := r.store.Config()

	var filter map[string]any
	for field, value := range opts.Filters {
		if value == "" {
			continue
		}
		if filter == nil {
			filter = map[string]any{}
		}
		filter[field] = value
	}

	items, err := r.store.Query(ctx, store.QueryInput{
		Table:  cfg.ItemTable,
		Key:    map[string]any{cfg.ItemPartitionKey: listID},
		Filter: filter,
	})
	if err != nil {
		return nil, err
	}

	if opts.SortBy != "" {
		desc := opts.SortOrder == SortDesc
		sort.SliceStable(items, func(i, j int) bool {
			c := compareFieldValues(items[i][opts.SortBy], items[j][opts.SortBy])
			if desc {
				return c > 0
			}
			return c < 0
		})
	}

	return items, nil
}

// Update applies a partial update to a list. Fails with ErrNotFound when
// the list doesn't exist.
func (r *ListRepo) Update(ctx context.Context, listID string, fields store.Record) error {
	err := r.store.Update(ctx, r.store.Config().ListTable, r.key(listID), fields)
	if errors.Is(err, store.ErrPreconditionFailed) {
		return store.ErrNotFound
	}
	return err
}

// Delete removes a list with all its memberships and items. The deletes
// span transactions of at most store.MaxTransactItems operations each;
// atomicity holds within a chunk but not across chunks, so a crash
// mid-delete can leave memberships or items behind. Recovering from that
// requires a reconciliation sweep, not this method.
func (r *ListRepo) Delete(ctx context.Context, listID string) error {
	cfg := r.store.Config()

	items, err := r.store.Query(ctx, store.QueryInput{
		Table: cfg.ItemTable,
		Key:   map[string]any{cfg.ItemPartitionKey: listID},
	})
	if err != nil {
		return err
	}
	members, err := r.memberships.FindAllByList(ctx, listID)
	if err != nil {
		return err
	}

	ops := make([]store.WriteOp, 0, 1+len(members)+len(items))
	ops = append(ops, store.WriteOp{Delete: &store.Delete{
		Table: cfg.ListTable,
		Key:   r.key(listID),
	}})
	for _, m := range members {
		ops = append(ops, store.WriteOp{Delete: &store.Delete{
			Table: cfg.MembershipTable,
			Key:   r.memberships.key(m.UserID, m.ListID),
		}})
	}
	for _, item := range items {
		ops = append(ops, store.WriteOp{Delete: &store.Delete{
			Table: cfg.ItemTable,
			Key: store.Key{
				cfg.ItemPartitionKey: item[cfg.ItemPartitionKey],
				cfg.ItemSortKey:      item[cfg.ItemSortKey],
			},
		}})
	}

	return r.writeChunked(ctx, ops)
}

// Share grants the given users access to the list. All memberships within
// one chunk are upserted atomically; existing memberships get their role
// overwritten.
func (r *ListRepo) Share(ctx context.Context, listID string, users []ShareTarget) error {
	ops := make([]store.WriteOp, 0, len(users))
	for _, u := range users {
		ops = append(ops, r.memberships.putOp(Membership{
			UserID: u.UserID,
			ListID: listID,
			Role:   u.Role,
		}))
	}
	return r.writeChunked(ctx, ops)
}

// Unshare revokes one user's membership of the list.
func (r *ListRepo) Unshare(ctx context.Context, listID, userID string) error {
	return r.memberships.Remove(ctx, userID, listID)
}

// writeChunked executes ops in transactions of at most
// store.MaxTransactItems operations each, sequentially.
func (r *ListRepo) writeChunked(ctx context.Context, ops []store.WriteOp) error {
	for start := 0; start < len(ops); start += store.MaxTransactItems {
		end := min(start+store.MaxTransactItems, len(ops))
		if err := r.store.TransactWrite(ctx, ops[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// compareFieldValues orders two item field values. Numbers compare
// numerically, strings lexically; missing or non-comparable values sort
// as the empty string.
func compareFieldValues(a, b any) int {
	na, aNum := toNumber(a)
	nb, bNum := toNumber(b)
	if aNum && bNum {
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		default:
			return 0
		}
	}

	sa := toSortString(a)
	sb := toSortString(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	default:
		return 0
	}
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func toSortString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	default:
		return ""
	}
}
