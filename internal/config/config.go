// Package config loads listsync process configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/jacentio/listsync/store"
)

// Config is the environment-driven process configuration.
type Config struct {
	// Table and key attribute names.
	ListTable              string `env:"LIST_TABLE" envDefault:"todo_lists"`
	ListKey                string `env:"LIST_KEY" envDefault:"listId"`
	ItemTable              string `env:"ITEM_TABLE" envDefault:"todos"`
	ItemPartitionKey       string `env:"ITEM_PARTITION_KEY" envDefault:"listId"`
	ItemSortKey            string `env:"ITEM_SORT_KEY" envDefault:"todoId"`
	MembershipTable        string `env:"MEMBERSHIP_TABLE" envDefault:"user_to_lists"`
	MembershipPartitionKey string `env:"MEMBERSHIP_PARTITION_KEY" envDefault:"userId"`
	MembershipSortKey      string `env:"MEMBERSHIP_SORT_KEY" envDefault:"listId"`
	MembershipListIndex    string `env:"MEMBERSHIP_LIST_INDEX" envDefault:"listId-index"`

	// AppSyncURL is the GraphQL endpoint notifications are pushed to.
	AppSyncURL string `env:"APPSYNC_API_URL"`

	// AppSyncAPIKey, when set, is sent as the x-api-key header.
	AppSyncAPIKey string `env:"APPSYNC_API_KEY"`

	// Debug enables verbose logging of raw stream records.
	Debug bool `env:"DEBUG_MODE" envDefault:"false"`
}

// Load parses configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// StoreConfig maps the environment configuration onto store.Config.
func (c Config) StoreConfig() store.Config {
	return store.Config{
		ListTable:              c.ListTable,
		ListKey:                c.ListKey,
		ItemTable:              c.ItemTable,
		ItemPartitionKey:       c.ItemPartitionKey,
		ItemSortKey:            c.ItemSortKey,
		MembershipTable:        c.MembershipTable,
		MembershipPartitionKey: c.MembershipPartitionKey,
		MembershipSortKey:      c.MembershipSortKey,
		MembershipListIndex:    c.MembershipListIndex,
	}
}
