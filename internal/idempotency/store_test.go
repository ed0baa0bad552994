package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func TestCreateIfNotExists_Get_MarkDone_MarkFailed(t *testing.T) {
	mock := newSimpleMock()
	s := NewStore(mock, "idempotency-table", 48*time.Hour)

	ctx := context.Background()
	key := "test-key-1"
	hash := HashRequest([]byte(`{"a":1}`))

	created, err := s.CreateIfNotExists(ctx, key, hash)
	if err != nil {
		t.Fatalf("CreateIfNotExists error: %v", err)
	}
	if !created {
		t.Fatalf("expected created=true")
	}

	// second create should return created=false (exists)
	created2, err := s.CreateIfNotExists(ctx, key, hash)
	if err != nil {
		t.Fatalf("second CreateIfNotExists error: %v", err)
	}
	if created2 {
		t.Fatalf("expected created=false on duplicate create")
	}

	rec, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if rec == nil {
		t.Fatalf("expected record, got nil")
	}
	if rec.Status != StatusInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", rec.Status)
	}
	if rec.RequestHash != hash {
		t.Fatalf("request hash not stored")
	}

	if err := s.MarkDone(ctx, key, "10001", `{"ok":true}`, 201); err != nil {
		t.Fatalf("MarkDone error: %v", err)
	}

	item := mock.table[key]
	if st, ok := item["status"].(*types.AttributeValueMemberS); !ok || st.Value != StatusDone {
		t.Fatalf("status not updated to DONE, got %+v", item["status"])
	}
	if rb, ok := item["response_body"].(*types.AttributeValueMemberS); !ok || rb.Value != `{"ok":true}` {
		t.Fatalf("response_body not set correctly: %+v", item["response_body"])
	}
	rec, _ = s.Get(ctx, key)
	if rec.OrderID != "10001" || rec.ResponseStatus != 201 {
		t.Fatalf("unexpected record after done: %+v", rec)
	}

	// a finished record cannot complete twice
	if err := s.MarkDone(ctx, key, "10002", `{}`, 201); !errors.Is(err, ErrConditionFailed) {
		t.Fatalf("expected ErrConditionFailed, got %v", err)
	}

	if err := s.MarkFailed(ctx, key, "failed-reason"); err != nil {
		t.Fatalf("MarkFailed error: %v", err)
	}
	item = mock.table[key]
	if st, ok := item["status"].(*types.AttributeValueMemberS); !ok || st.Value != StatusFailed {
		t.Fatalf("status not updated to FAILED, got %+v", item["status"])
	}
	if n, ok := item["note"].(*types.AttributeValueMemberS); !ok || n.Value != "failed-reason" {
		t.Fatalf("note not set, got %+v", item["note"])
	}
}

func TestReserve(t *testing.T) {
	mock := newSimpleMock()
	s := NewStore(mock, "idempotency-table", time.Hour)
	ctx := context.Background()
	hash := HashRequest([]byte("body"))

	rec, reserved, err := s.Reserve(ctx, "k", hash)
	if err != nil || !reserved || rec != nil {
		t.Fatalf("first reserve: rec=%v reserved=%v err=%v", rec, reserved, err)
	}

	// in flight: the caller gets the record back
	rec, reserved, err = s.Reserve(ctx, "k", hash)
	if err != nil || reserved || rec == nil || rec.Status != StatusInProgress {
		t.Fatalf("in-flight reserve: rec=%v reserved=%v err=%v", rec, reserved, err)
	}

	if _, _, err := s.Reserve(ctx, "k", HashRequest([]byte("other"))); !errors.Is(err, ErrKeyReused) {
		t.Fatalf("expected ErrKeyReused, got %v", err)
	}

	// a failed attempt can be retried once
	if err := s.MarkFailed(ctx, "k", "boom"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	_, reserved, err = s.Reserve(ctx, "k", hash)
	if err != nil || !reserved {
		t.Fatalf("reserve after failure: reserved=%v err=%v", reserved, err)
	}
	_, reserved, _ = s.Reserve(ctx, "k", hash)
	if reserved {
		t.Fatalf("reclaimed key must not be reserved twice")
	}

	if err := s.MarkDone(ctx, "k", "10001", `{"orderId":"10001"}`, 201); err != nil {
		t.Fatalf("MarkDone: %v", err)
	}
	rec, reserved, err = s.Reserve(ctx, "k", hash)
	if err != nil || reserved || rec.Status != StatusDone || rec.ResponseBody != `{"orderId":"10001"}` {
		t.Fatalf("replay: rec=%+v reserved=%v err=%v", rec, reserved, err)
	}
}

func TestReclaim_OnlyFromFailed(t *testing.T) {
	mock := newSimpleMock()
	s := NewStore(mock, "idempotency-table", time.Hour)
	ctx := context.Background()

	if _, err := s.CreateIfNotExists(ctx, "k", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	ok, err := s.Reclaim(ctx, "k")
	if err != nil || ok {
		t.Fatalf("reclaim of IN_PROGRESS: ok=%v err=%v", ok, err)
	}
}

func TestCreateIfNotExists_PropagatesErrors(t *testing.T) {
	mock := newSimpleMock()
	mock.putErr = errors.New("throttled")
	s := NewStore(mock, "idempotency-table", time.Hour)

	if _, err := s.CreateIfNotExists(context.Background(), "k", ""); err == nil {
		t.Fatalf("expected error")
	}
}

func TestHashRequest(t *testing.T) {
	if HashRequest([]byte("a")) == HashRequest([]byte("b")) {
		t.Fatalf("distinct bodies must hash differently")
	}
	if len(HashRequest(nil)) != 64 {
		t.Fatalf("expected hex sha256")
	}
}
