package stream_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/listsync/internal/dynamotest"
	"github.com/jacentio/listsync/internal/idgen"
	"github.com/jacentio/listsync/notify"
	"github.com/jacentio/listsync/repo"
	"github.com/jacentio/listsync/store"
	"github.com/jacentio/listsync/stream"
)

const (
	itemARN       = "arn:aws:dynamodb:eu-west-1:123456789012:table/todos/stream/x"
	membershipARN = "arn:aws:dynamodb:eu-west-1:123456789012:table/user_to_lists/stream/x"
	unknownARN    = "arn:aws:dynamodb:eu-west-1:123456789012:table/orders/stream/x"
)

type notifierCall struct {
	method     string
	id         string
	changeKind string
	record     store.Record
}

type recordingNotifier struct {
	calls []notifierCall
	err   error
}

func (n *recordingNotifier) OnItemChanged(_ context.Context, listID, changeKind string, item store.Record) error {
	n.calls = append(n.calls, notifierCall{method: "item", id: listID, changeKind: changeKind, record: item})
	return n.err
}

func (n *recordingNotifier) OnMembershipChanged(_ context.Context, userID, changeKind string, membership store.Record) error {
	n.calls = append(n.calls, notifierCall{method: "membership", id: userID, changeKind: changeKind, record: membership})
	return n.err
}

func itemRecord(eventID, eventName, listID, todoID string, fields map[string]events.DynamoDBAttributeValue) events.DynamoDBEventRecord {
	keys := map[string]events.DynamoDBAttributeValue{
		"listId": events.NewStringAttribute(listID),
		"todoId": events.NewStringAttribute(todoID),
	}
	image := map[string]events.DynamoDBAttributeValue{
		"listId": events.NewStringAttribute(listID),
		"todoId": events.NewStringAttribute(todoID),
	}
	for k, v := range fields {
		image[k] = v
	}

	change := events.DynamoDBStreamRecord{Keys: keys}
	switch eventName {
	case "REMOVE":
		change.OldImage = image
	default:
		change.NewImage = image
	}
	return events.DynamoDBEventRecord{
		EventID:        eventID,
		EventName:      eventName,
		EventSourceArn: itemARN,
		Change:         change,
	}
}

func membershipRecord(eventID, eventName, userID, listID string, role string) events.DynamoDBEventRecord {
	keys := map[string]events.DynamoDBAttributeValue{
		"userId": events.NewStringAttribute(userID),
		"listId": events.NewStringAttribute(listID),
	}
	image := map[string]events.DynamoDBAttributeValue{
		"userId": events.NewStringAttribute(userID),
		"listId": events.NewStringAttribute(listID),
		"role":   events.NewNumberAttribute(role),
	}

	change := events.DynamoDBStreamRecord{Keys: keys}
	switch eventName {
	case "REMOVE":
		change.OldImage = image
	default:
		change.NewImage = image
	}
	return events.DynamoDBEventRecord{
		EventID:        eventID,
		EventName:      eventName,
		EventSourceArn: membershipARN,
		Change:         change,
	}
}

func TestProcessor_RoutesItemRecord(t *testing.T) {
	notifier := &recordingNotifier{}
	p := stream.NewProcessor(store.DefaultConfig(), notifier, nil)

	record := itemRecord("E1", "INSERT", "L1", "T1", map[string]events.DynamoDBAttributeValue{
		"name": events.NewStringAttribute("milk"),
	})
	outcomes := p.Process(context.Background(), events.DynamoDBEvent{
		Records: []events.DynamoDBEventRecord{record},
	})

	if len(outcomes) != 1 || outcomes[0].Skipped || outcomes[0].Err != nil {
		t.Fatalf("unexpected outcomes %+v", outcomes)
	}
	if len(notifier.calls) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.calls))
	}
	call := notifier.calls[0]
	if call.method != "item" || call.id != "L1" || call.changeKind != "INSERT" {
		t.Errorf("unexpected call %+v", call)
	}
	if call.record.String("name") != "milk" {
		t.Errorf("expected after-image with name 'milk', got %v", call.record)
	}
}

func TestProcessor_RoutesMembershipRecord(t *testing.T) {
	notifier := &recordingNotifier{}
	p := stream.NewProcessor(store.DefaultConfig(), notifier, nil)

	outcomes := p.Process(context.Background(), events.DynamoDBEvent{
		Records: []events.DynamoDBEventRecord{
			membershipRecord("E1", "INSERT", "U2", "L1", "2"),
		},
	})

	if len(outcomes) != 1 || outcomes[0].Skipped || outcomes[0].Err != nil {
		t.Fatalf("unexpected outcomes %+v", outcomes)
	}
	call := notifier.calls[0]
	if call.method != "membership" || call.id != "U2" || call.changeKind != "INSERT" {
		t.Errorf("unexpected call %+v", call)
	}
}

func TestProcessor_RemoveUsesBeforeImage(t *testing.T) {
	notifier := &recordingNotifier{}
	p := stream.NewProcessor(store.DefaultConfig(), notifier, nil)

	record := itemRecord("E1", "REMOVE", "L1", "T1", map[string]events.DynamoDBAttributeValue{
		"name": events.NewStringAttribute("milk"),
	})
	p.Process(context.Background(), events.DynamoDBEvent{
		Records: []events.DynamoDBEventRecord{record},
	})

	if len(notifier.calls) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.calls))
	}
	call := notifier.calls[0]
	if call.changeKind != "REMOVE" {
		t.Errorf("expected REMOVE, got %q", call.changeKind)
	}
	if call.record.String("name") != "milk" {
		t.Errorf("expected before-image for remove, got %v", call.record)
	}
}

func TestProcessor_SkipsUnknownSource(t *testing.T) {
	notifier := &recordingNotifier{}
	p := stream.NewProcessor(store.DefaultConfig(), notifier, nil)

	record := itemRecord("E1", "INSERT", "L1", "T1", nil)
	record.EventSourceArn = unknownARN

	outcomes := p.Process(context.Background(), events.DynamoDBEvent{
		Records: []events.DynamoDBEventRecord{record},
	})

	if !outcomes[0].Skipped || outcomes[0].Err != nil {
		t.Errorf("expected skipped outcome, got %+v", outcomes[0])
	}
	if len(notifier.calls) != 0 {
		t.Errorf("expected no notification, got %d", len(notifier.calls))
	}
}

func TestProcessor_SkipsNoOpModify(t *testing.T) {
	notifier := &recordingNotifier{}
	p := stream.NewProcessor(store.DefaultConfig(), notifier, nil)

	image := map[string]events.DynamoDBAttributeValue{
		"listId": events.NewStringAttribute("L1"),
		"todoId": events.NewStringAttribute("T1"),
		"name":   events.NewStringAttribute("milk"),
	}
	record := events.DynamoDBEventRecord{
		EventID:        "E1",
		EventName:      "MODIFY",
		EventSourceArn: itemARN,
		Change: events.DynamoDBStreamRecord{
			Keys: map[string]events.DynamoDBAttributeValue{
				"listId": events.NewStringAttribute("L1"),
				"todoId": events.NewStringAttribute("T1"),
			},
			OldImage: image,
			NewImage: image,
		},
	}

	outcomes := p.Process(context.Background(), events.DynamoDBEvent{
		Records: []events.DynamoDBEventRecord{record},
	})

	if !outcomes[0].Skipped {
		t.Error("expected no-op modify to be skipped")
	}
	if len(notifier.calls) != 0 {
		t.Errorf("expected no notification, got %d", len(notifier.calls))
	}
}

func TestProcessor_FailedRecordDoesNotBlockBatch(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("downstream unavailable")}
	p := stream.NewProcessor(store.DefaultConfig(), notifier, nil)

	outcomes := p.Process(context.Background(), events.DynamoDBEvent{
		Records: []events.DynamoDBEventRecord{
			itemRecord("E1", "INSERT", "L1", "T1", nil),
			itemRecord("E2", "INSERT", "L1", "T2", nil),
		},
	})

	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	for i, o := range outcomes {
		if o.Err == nil {
			t.Errorf("outcome %d: expected captured error", i)
		}
	}
	if len(notifier.calls) != 2 {
		t.Errorf("expected both records attempted, got %d", len(notifier.calls))
	}
}

func TestProcessor_HandleAlwaysSucceeds(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("downstream unavailable")}
	p := stream.NewProcessor(store.DefaultConfig(), notifier, nil)

	err := p.Handle(context.Background(), events.DynamoDBEvent{
		Records: []events.DynamoDBEventRecord{
			itemRecord("E1", "INSERT", "L1", "T1", nil),
		},
	})
	if err != nil {
		t.Errorf("expected nil from Handle, got %v", err)
	}
}

type recordingMutator struct {
	mu    sync.Mutex
	calls []notify.Variables
	fail  map[string]error
}

func (m *recordingMutator) Mutate(_ context.Context, mutation string, vars notify.Variables) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail[vars.Username]; err != nil {
		return err
	}
	m.calls = append(m.calls, vars)
	return nil
}

func (m *recordingMutator) usernames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.calls))
	for _, v := range m.calls {
		names = append(names, v.Username)
	}
	sort.Strings(names)
	return names
}

// Exercises the full pipeline over a shared list: an item change on a list
// with two members produces exactly one mutation per member.
func TestProcessor_FansOutToAllMembers(t *testing.T) {
	ctx := context.Background()
	cfg := store.DefaultConfig()
	fake := dynamotest.NewForConfig(cfg)
	s := store.New(fake, cfg)
	memberships := repo.NewMembershipRepo(s)
	lists := repo.NewListRepo(s, memberships, idgen.UUID{})

	if _, err := lists.Create(ctx, "U1", store.Record{"listId": "L1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := lists.Share(ctx, "L1", []repo.ShareTarget{{UserID: "U2", Role: repo.RoleViewer}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mutator := &recordingMutator{}
	service := notify.NewService(cfg, memberships, mutator, nil)
	p := stream.NewProcessor(cfg, service, nil)

	record := itemRecord("E1", "INSERT", "L1", "T1", map[string]events.DynamoDBAttributeValue{
		"name": events.NewStringAttribute("milk"),
	})
	outcomes := p.Process(ctx, events.DynamoDBEvent{
		Records: []events.DynamoDBEventRecord{record},
	})
	if outcomes[0].Err != nil || outcomes[0].Skipped {
		t.Fatalf("unexpected outcome %+v", outcomes[0])
	}

	got := mutator.usernames()
	want := []string{"U1", "U2"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("expected mutations for %v, got %v", want, got)
	}
	for _, v := range mutator.calls {
		if v.Type != "INSERT" {
			t.Errorf("expected type INSERT, got %q", v.Type)
		}
	}
}

// After a member is removed, subsequent item changes reach only the
// remaining members.
func TestProcessor_FanOutAfterUnshare(t *testing.T) {
	ctx := context.Background()
	cfg := store.DefaultConfig()
	fake := dynamotest.NewForConfig(cfg)
	s := store.New(fake, cfg)
	memberships := repo.NewMembershipRepo(s)
	lists := repo.NewListRepo(s, memberships, idgen.UUID{})

	if _, err := lists.Create(ctx, "U1", store.Record{"listId": "L1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := lists.Share(ctx, "L1", []repo.ShareTarget{{UserID: "U2", Role: repo.RoleViewer}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := lists.Unshare(ctx, "L1", "U2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mutator := &recordingMutator{}
	service := notify.NewService(cfg, memberships, mutator, nil)
	p := stream.NewProcessor(cfg, service, nil)

	record := itemRecord("E1", "MODIFY", "L1", "T1", map[string]events.DynamoDBAttributeValue{
		"status": events.NewStringAttribute("done"),
	})
	p.Process(ctx, events.DynamoDBEvent{
		Records: []events.DynamoDBEventRecord{record},
	})

	got := mutator.usernames()
	if len(got) != 1 || got[0] != "U1" {
		t.Errorf("expected fan-out to U1 only, got %v", got)
	}
}
