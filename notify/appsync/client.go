// Package appsync delivers subscription mutations to an AppSync-style
// GraphQL endpoint over HTTP.
package appsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jacentio/listsync/notify"
)

const itemMutationDocument = `mutation onTodoItemChange($username: String!, $item: TodoItemChangeInput!, $type: String!) {
  onTodoItemChange(username: $username, item: $item, type: $type) {
    item {
      listId
      todoId
      description
      dueDate
      name
      status
    }
    type
    username
  }
}`

const membershipMutationDocument = `mutation onUserToListChange($username: String!, $item: UserToListChangeInput!, $type: String!) {
  onUserToListChange(username: $username, item: $item, type: $type) {
    item {
      listId
      userId
      role
    }
    type
    username
  }
}`

// Client pushes mutations to one GraphQL endpoint. The client is
// constructed once at process start and shared; it is not mutated after
// construction.
type Client struct {
	endpoint  string
	apiKey    string
	http      *http.Client
	documents map[string]string
}

// New creates a client for the given endpoint. An empty apiKey omits the
// x-api-key header (IAM-signed transports wrap the http.Client instead).
// A nil httpClient falls back to http.DefaultClient.
func New(endpoint, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     httpClient,
		documents: map[string]string{
			notify.ItemMutation:       itemMutationDocument,
			notify.MembershipMutation: membershipMutationDocument,
		},
	}
}

type graphqlRequest struct {
	Query     string `json:"query"`
	Variables any    `json:"variables"`
}

type graphqlResponse struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Mutate implements notify.Mutator.
func (c *Client) Mutate(ctx context.Context, mutation string, vars notify.Variables) error {
	doc, ok := c.documents[mutation]
	if !ok {
		return fmt.Errorf("appsync: unknown mutation %q", mutation)
	}

	body, err := json.Marshal(graphqlRequest{Query: doc, Variables: vars})
	if err != nil {
		return fmt.Errorf("appsync: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("appsync: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("appsync: %s: %w", mutation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("appsync: %s: unexpected status %d", mutation, resp.StatusCode)
	}

	var parsed graphqlResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&parsed); err != nil {
		return fmt.Errorf("appsync: decode response: %w", err)
	}
	if len(parsed.Errors) > 0 {
		return fmt.Errorf("appsync: %s: %s", mutation, parsed.Errors[0].Message)
	}
	return nil
}
