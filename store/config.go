package store

// MaxTransactItems is the number of operations one TransactWriteItems call
// may carry. Larger sets must be chunked by the caller.
const MaxTransactItems = 25

// Config holds table and key attribute names for the three listsync tables.
type Config struct {
	// ListTable is the todo-list table name.
	// Default: "todo_lists"
	ListTable string

	// ListKey is the list table's partition key attribute.
	// Default: "listId"
	ListKey string

	// ItemTable is the todo-item table name.
	// Default: "todos"
	ItemTable string

	// ItemPartitionKey is the item table's partition key attribute (the list reference).
	// Default: "listId"
	ItemPartitionKey string

	// ItemSortKey is the item table's sort key attribute.
	// Default: "todoId"
	ItemSortKey string

	// MembershipTable is the user-to-list table name.
	// Default: "user_to_lists"
	MembershipTable string

	// MembershipPartitionKey is the membership table's partition key attribute.
	// Default: "userId"
	MembershipPartitionKey string

	// MembershipSortKey is the membership table's sort key attribute (the list reference).
	// Default: "listId"
	MembershipSortKey string

	// MembershipListIndex is the GSI keyed by list reference, used to
	// enumerate all members of one list.
	// Default: "listId-index"
	MembershipListIndex string
}

// DefaultConfig returns the conventional table and key names.
func DefaultConfig() Config {
	return Config{
		ListTable:              "todo_lists",
		ListKey:                "listId",
		ItemTable:              "todos",
		ItemPartitionKey:       "listId",
		ItemSortKey:            "todoId",
		MembershipTable:        "user_to_lists",
		MembershipPartitionKey: "userId",
		MembershipSortKey:      "listId",
		MembershipListIndex:    "listId-index",
	}
}

// validate fills in defaults for any unset field.
func (c *Config) validate() {
	def := DefaultConfig()
	if c.ListTable == "" {
		c.ListTable = def.ListTable
	}
	if c.ListKey == "" {
		c.ListKey = def.ListKey
	}
	if c.ItemTable == "" {
		c.ItemTable = def.ItemTable
	}
	if c.ItemPartitionKey == "" {
		c.ItemPartitionKey = def.ItemPartitionKey
	}
	if c.ItemSortKey == "" {
		c.ItemSortKey = def.ItemSortKey
	}
	if c.MembershipTable == "" {
		c.MembershipTable = def.MembershipTable
	}
	if c.MembershipPartitionKey == "" {
		c.MembershipPartitionKey = def.MembershipPartitionKey
	}
	if c.MembershipSortKey == "" {
		c.MembershipSortKey = def.MembershipSortKey
	}
	if c.MembershipListIndex == "" {
		c.MembershipListIndex = def.MembershipListIndex
	}
}
