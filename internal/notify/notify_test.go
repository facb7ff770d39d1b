package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	domain "github.com/techmall/storefront-api/internal/domain"
)

type recordingMailer struct {
	mu     sync.Mutex
	sent   []Email
	block  chan struct{}
	failOn string
}

func (m *recordingMailer) Send(ctx context.Context, email Email) error {
	if m.block != nil {
		<-m.block
	}
	if email.Kind == m.failOn {
		return errors.New("smtp down")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, email)
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func sampleEmail(kind string) Email {
	return Email{Kind: kind, To: "buyer@example.com", Subject: "s", HTML: "<p>x</p>"}
}

func TestDispatcherDeliversAndDrainsOnClose(t *testing.T) {
	mailer := &recordingMailer{}
	d, err := NewDispatcher(DispatcherConfig{Mailer: mailer, Workers: 2, QueueSize: 10})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := d.Enqueue(context.Background(), sampleEmail(KindOrderConfirmed)); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := d.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := mailer.count(); got != 5 {
		t.Fatalf("expected 5 deliveries, got %d", got)
	}
	if err := d.Enqueue(context.Background(), sampleEmail(KindOrderConfirmed)); !errors.Is(err, ErrDispatcherClosed) {
		t.Fatalf("expected closed error, got %v", err)
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	mailer := &recordingMailer{block: make(chan struct{})}
	var mu sync.Mutex
	outcomes := map[string]int{}
	d, err := NewDispatcher(DispatcherConfig{
		Mailer:    mailer,
		Workers:   1,
		QueueSize: 1,
		Observe: func(_ string, outcome string) {
			mu.Lock()
			outcomes[outcome]++
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	// First email is picked up by the worker and blocks; second fills the buffer.
	_ = d.Enqueue(context.Background(), sampleEmail(KindOrderConfirmed))
	deadline := time.Now().Add(time.Second)
	for len(d.queue) != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if err := d.Enqueue(context.Background(), sampleEmail(KindOrderConfirmed)); err != nil {
		t.Fatalf("expected buffered enqueue, got %v", err)
	}
	if err := d.Enqueue(context.Background(), sampleEmail(KindOrderConfirmed)); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected queue full, got %v", err)
	}

	close(mailer.block)
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if outcomes["dropped"] != 1 || outcomes["sent"] != 2 {
		t.Fatalf("unexpected outcomes %#v", outcomes)
	}
}

func TestDispatcherLogsFailures(t *testing.T) {
	mailer := &recordingMailer{failOn: KindOrderShipped}
	var mu sync.Mutex
	var events []string
	d, _ := NewDispatcher(DispatcherConfig{
		Mailer: mailer,
		Logger: func(_ context.Context, event string, _ map[string]any) {
			mu.Lock()
			events = append(events, event)
			mu.Unlock()
		},
	})
	_ = d.Enqueue(context.Background(), sampleEmail(KindOrderShipped))
	_ = d.Close(context.Background())
	mu.Lock()
	defer mu.Unlock()
	if len(events) != 1 || events[0] != "notify.email.failed" {
		t.Fatalf("expected failure event, got %v", events)
	}
}

func TestRendererOrderConfirmed(t *testing.T) {
	r, err := NewRenderer("TechMall PK <orders@techmall.pk>", "https://leopardscourier.com/track?id=")
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	email, err := r.OrderConfirmed(domain.Order{
		ID:         "ord_1",
		TotalPrice: 12500,
		Status:     domain.OrderStatusPending,
		Customer:   domain.Customer{Name: "Ayesha", Email: "ayesha@example.com"},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if email.Subject != "Order Confirmed - TechMall PK" || email.To != "ayesha@example.com" {
		t.Fatalf("unexpected envelope %#v", email)
	}
	for _, want := range []string{"Order ID: ord_1", "Total: PKR 12,500", "Status: Pending"} {
		if !strings.Contains(email.HTML, want) {
			t.Fatalf("expected %q in body:\n%s", want, email.HTML)
		}
	}
}

func TestRendererOrderShippedSanitisesInput(t *testing.T) {
	r, _ := NewRenderer("", "https://leopardscourier.com/track?id=")
	email, err := r.OrderShipped(domain.Order{
		ID:          "ord_9",
		Customer:    domain.Customer{Name: "<script>alert(1)</script>Bilal", Email: "bilal@example.com"},
		CourierInfo: domain.CourierInfo{CourierName: "Leopards", TrackingID: "LP123"},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if email.Subject != "Order Shipped - TechMall PK" {
		t.Fatalf("unexpected subject %q", email.Subject)
	}
	if strings.Contains(email.HTML, "<script>") {
		t.Fatalf("expected markup stripped:\n%s", email.HTML)
	}
	for _, want := range []string{"Dear Bilal", "via <strong>Leopards</strong>", "Tracking ID: LP123", `href="https://leopardscourier.com/track?id=LP123"`} {
		if !strings.Contains(email.HTML, want) {
			t.Fatalf("expected %q in body:\n%s", want, email.HTML)
		}
	}
}

func TestOrderNotifierSkipsMissingRecipient(t *testing.T) {
	r, _ := NewRenderer("", "https://t/?id=")
	var queued []Email
	queue := enqueueFunc(func(_ context.Context, e Email) error {
		queued = append(queued, e)
		return nil
	})
	n, err := NewOrderNotifier(r, queue, nil)
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	n.OrderConfirmed(context.Background(), domain.Order{ID: "ord_1"})
	n.OrderShipped(context.Background(), domain.Order{ID: "ord_1", Customer: domain.Customer{Email: "a@b.c"}})
	if len(queued) != 1 || queued[0].Kind != KindOrderShipped {
		t.Fatalf("unexpected queue %#v", queued)
	}
}

type enqueueFunc func(ctx context.Context, email Email) error

func (f enqueueFunc) Enqueue(ctx context.Context, email Email) error { return f(ctx, email) }
