package dynamotest

import "github.com/jacentio/listsync/store"

// NewForConfig creates a fake with the three listsync tables registered
// according to the given store configuration.
func NewForConfig(cfg store.Config) *Fake {
	f := New()
	f.CreateTable(cfg.ListTable, Schema{
		PartitionKey: cfg.ListKey,
	})
	f.CreateTable(cfg.ItemTable, Schema{
		PartitionKey: cfg.ItemPartitionKey,
		SortKey:      cfg.ItemSortKey,
	})
	f.CreateTable(cfg.MembershipTable, Schema{
		PartitionKey: cfg.MembershipPartitionKey,
		SortKey:      cfg.MembershipSortKey,
		GSIs: map[string]string{
			cfg.MembershipListIndex: cfg.MembershipSortKey,
		},
	})
	return f
}
