package ingest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

func startTestNATS(t *testing.T) *nats.Conn {
	t.Helper()
	opts := &natsserver.Options{Port: -1}
	srv, err := natsserver.NewServer(opts)
	if err != nil {
		t.Fatal(err)
	}
	srv.Start()
	if !srv.ReadyForConnections(3 * time.Second) {
		t.Fatal("nats not ready")
	}
	nc, err := nats.Connect(srv.ClientURL())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		nc.Close()
		srv.Shutdown()
	})
	return nc
}

func waitFor[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(3 * time.Second):
		t.Fatalf("timeout waiting for %s", what)
		panic("unreachable")
	}
}

func TestConsumer_ResolvedFanOut(t *testing.T) {
	nc := startTestNATS(t)
	deps, _, _, _ := testDeps(t)

	sub, err := StartConsumer(nc, deps)
	if err != nil {
		t.Fatalf("start consumer: %v", err)
	}
	defer sub.Unsubscribe()

	resolved := make(chan ResolvedDoc, 1)
	rs, err := nc.Subscribe(ResolvedSubject, func(msg *nats.Msg) {
		var doc ResolvedDoc
		if json.Unmarshal(msg.Data, &doc) == nil {
			resolved <- doc
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	defer rs.Unsubscribe()

	review := make(chan ResolvedDoc, 1)
	vs, err := nc.Subscribe(ReviewSubject, func(msg *nats.Msg) {
		var doc ResolvedDoc
		if json.Unmarshal(msg.Data, &doc) == nil {
			review <- doc
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	defer vs.Unsubscribe()

	data, _ := json.Marshal(DocumentMessage{DocID: "claim-100", Text: cleanReport})
	if err := nc.Publish(DocsSubject, data); err != nil {
		t.Fatal(err)
	}

	doc := waitFor(t, resolved, "resolved event")
	if doc.DocID != "claim-100" {
		t.Errorf("doc id = %q", doc.DocID)
	}
	if doc.Record.Make != "Hyundai" {
		t.Errorf("make = %q", doc.Record.Make)
	}
	select {
	case <-review:
		t.Error("high-confidence record should not reach the review subject")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestConsumer_LowConfidenceReachesReviewSubject(t *testing.T) {
	nc := startTestNATS(t)
	deps, _, _, _ := testDeps(t)

	sub, err := StartConsumer(nc, deps)
	if err != nil {
		t.Fatalf("start consumer: %v", err)
	}
	defer sub.Unsubscribe()

	review := make(chan ResolvedDoc, 1)
	vs, err := nc.Subscribe(ReviewSubject, func(msg *nats.Msg) {
		var doc ResolvedDoc
		if json.Unmarshal(msg.Data, &doc) == nil {
			review <- doc
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	defer vs.Unsubscribe()

	data, _ := json.Marshal(DocumentMessage{
		DocID: "claim-101",
		Text:  "CCC ONE Market Valuation Report\nMarket Value $4,210.00\nvehicle details unavailable",
	})
	if err := nc.Publish(DocsSubject, data); err != nil {
		t.Fatal(err)
	}

	doc := waitFor(t, review, "review event")
	if !doc.NeedsReview {
		t.Error("review event should carry the review flag")
	}
}

func TestConsumer_UnreadableGoesStraightToDLQ(t *testing.T) {
	nc := startTestNATS(t)
	deps, _, _, _ := testDeps(t)

	sub, err := StartConsumer(nc, deps)
	if err != nil {
		t.Fatalf("start consumer: %v", err)
	}
	defer sub.Unsubscribe()

	dlq := make(chan dlqMessage, 1)
	ds, err := nc.Subscribe(DLQSubject, func(msg *nats.Msg) {
		var m dlqMessage
		if json.Unmarshal(msg.Data, &m) == nil {
			dlq <- m
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	defer ds.Unsubscribe()

	data, _ := json.Marshal(DocumentMessage{DocID: "claim-102", Text: "  "})
	if err := nc.Publish(DocsSubject, data); err != nil {
		t.Fatal(err)
	}

	m := waitFor(t, dlq, "DLQ message")
	if m.Doc.DocID != "claim-102" {
		t.Errorf("dlq doc id = %q", m.Doc.DocID)
	}
	// No retry for deterministic failures.
	if m.Retries != 1 {
		t.Errorf("retries = %d, want 1", m.Retries)
	}
}

func TestConsumer_RetriesThenDLQ(t *testing.T) {
	nc := startTestNATS(t)
	deps, g, _, _ := testDeps(t)
	g.saveErr = errTransient{}

	sub, err := StartConsumer(nc, deps)
	if err != nil {
		t.Fatalf("start consumer: %v", err)
	}
	defer sub.Unsubscribe()

	dlq := make(chan dlqMessage, 1)
	ds, err := nc.Subscribe(DLQSubject, func(msg *nats.Msg) {
		var m dlqMessage
		if json.Unmarshal(msg.Data, &m) == nil {
			dlq <- m
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	defer ds.Unsubscribe()

	data, _ := json.Marshal(DocumentMessage{DocID: "claim-103", Text: cleanReport})
	if err := nc.Publish(DocsSubject, data); err != nil {
		t.Fatal(err)
	}

	m := waitFor(t, dlq, "DLQ message after retries")
	if m.Retries != MaxRetries {
		t.Errorf("retries = %d, want %d", m.Retries, MaxRetries)
	}
}

func TestConsumer_DedupSkips(t *testing.T) {
	nc := startTestNATS(t)
	deps, g, _, _ := testDeps(t)
	deps.DeduplicateF = func(_ context.Context, docID string) (bool, error) {
		return docID == "claim-dup", nil
	}

	sub, err := StartConsumer(nc, deps)
	if err != nil {
		t.Fatalf("start consumer: %v", err)
	}
	defer sub.Unsubscribe()

	data, _ := json.Marshal(DocumentMessage{DocID: "claim-dup", Text: cleanReport})
	if err := nc.Publish(DocsSubject, data); err != nil {
		t.Fatal(err)
	}
	nc.Flush()
	time.Sleep(200 * time.Millisecond)

	if len(g.saved) != 0 {
		t.Errorf("duplicate should not persist, saved = %d", len(g.saved))
	}
}

type errTransient struct{}

func (errTransient) Error() string { return "neo4j briefly unavailable" }
