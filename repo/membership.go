package repo

import (
	"context"
	"errors"

	"github.com/jacentio/listsync/store"
)

// Role ranks. Lower value means more privileged.
const (
	RoleOwner  = 0
	RoleEditor = 1
	RoleViewer = 2
)

// roleAttr is the membership table's role attribute.
const roleAttr = "role"

// Membership relates one user to one list with a privilege role.
type Membership struct {
	UserID string
	ListID string
	Role   int
}

// MembershipRepo owns the user-to-list table.
type MembershipRepo struct {
	store *store.Store
}

// NewMembershipRepo creates a membership repository over the given store.
func NewMembershipRepo(s *store.Store) *MembershipRepo {
	return &MembershipRepo{store: s}
}

func (r *MembershipRepo) key(userID, listID string) store.Key {
	cfg := r.store.Config()
	return store.Key{
		cfg.MembershipPartitionKey: userID,
		cfg.MembershipSortKey:      listID,
	}
}

func (r *MembershipRepo) record(m Membership) store.Record {
	cfg := r.store.Config()
	return store.Record{
		cfg.MembershipPartitionKey: m.UserID,
		cfg.MembershipSortKey:      m.ListID,
		roleAttr:                   m.Role,
	}
}

func (r *MembershipRepo) fromRecord(rec store.Record) Membership {
	cfg := r.store.Config()
	return Membership{
		UserID: rec.String(cfg.MembershipPartitionKey),
		ListID: rec.String(cfg.MembershipSortKey),
		Role:   intField(rec, roleAttr),
	}
}

// FindOne returns the membership for one user/list pair, or ErrNotFound.
func (r *MembershipRepo) FindOne(ctx context.Context, userID, listID string) (Membership, error) {
	rec, err := r.store.Get(ctx, r.store.Config().MembershipTable, r.key(userID, listID))
	if err != nil {
		return Membership{}, err
	}
	return r.fromRecord(rec), nil
}

// FindAllByUser returns every membership of one user.
func (r *MembershipRepo) FindAllByUser(ctx context.Context, userID string) ([]Membership, error) {
	cfg := r.store.Config()
	recs, err := r.store.Query(ctx, store.QueryInput{
		Table: cfg.MembershipTable,
		Key:   map[string]any{cfg.MembershipPartitionKey: userID},
	})
	if err != nil {
		return nil, err
	}
	return r.fromRecords(recs), nil
}

// FindAllByList returns every membership of one list, via the list-keyed
// index. Used for authorization checks, cascading-delete enumeration, and
// notification fan-out.
func (r *MembershipRepo) FindAllByList(ctx context.Context, listID string) ([]Membership, error) {
	cfg := r.store.Config()
	recs, err := r.store.Query(ctx, store.QueryInput{
		Table: cfg.MembershipTable,
		Index: cfg.MembershipListIndex,
		Key:   map[string]any{cfg.MembershipSortKey: listID},
	})
	if err != nil {
		return nil, err
	}
	return r.fromRecords(recs), nil
}

func (r *MembershipRepo) fromRecords(recs []store.Record) []Membership {
	members := make([]Membership, 0, len(recs))
	for _, rec := range recs {
		members = append(members, r.fromRecord(rec))
	}
	return members
}

// Put upserts a membership. Re-sharing simply overwrites the role.
func (r *MembershipRepo) Put(ctx context.Context, m Membership) error {
	return r.store.TransactWrite(ctx, []store.WriteOp{r.putOp(m)})
}

func (r *MembershipRepo) putOp(m Membership) store.WriteOp {
	return store.WriteOp{Put: &store.Put{
		Table: r.store.Config().MembershipTable,
		Item:  r.record(m),
	}}
}

// Remove deletes a membership, failing with ErrNotFound if it doesn't exist.
func (r *MembershipRepo) Remove(ctx context.Context, userID, listID string) error {
	cfg := r.store.Config()
	err := r.store.TransactWrite(ctx, []store.WriteOp{{Delete: &store.Delete{
		Table:     cfg.MembershipTable,
		Key:       r.key(userID, listID),
		Condition: store.ConditionExists(cfg.MembershipPartitionKey, cfg.MembershipSortKey),
	}}})
	if errors.Is(err, store.ErrPreconditionFailed) {
		return store.ErrNotFound
	}
	return err
}

// intField reads a numeric record field. Attribute values unmarshal as
// float64 into open records.
func intField(rec store.Record, field string) int {
	switch v := rec[field].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}
