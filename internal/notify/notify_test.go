package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mesa-system/config"
)

var testSummary = OrderSummary{
	OrderID:        "o-1",
	OrderNumber:    42,
	RestaurantName: "Casa Mesa",
	LocationName:   "Centro",
	CustomerName:   "Luis",
	CustomerPhone:  "809-555-0100",
	Items: []SummaryItem{
		{Name: "Burger", Quantity: 2, LineTotalCents: 1000},
		{Name: "Fries", Quantity: 1, LineTotalCents: 300},
	},
	TotalCents: 1300,
}

func TestSummaryText(t *testing.T) {
	text := testSummary.EmailText()
	for _, want := range []string{"#42", "Cliente: Luis", "2x Burger - 10.00 DOP", "Total: 13.00 DOP"} {
		if !strings.Contains(text, want) {
			t.Errorf("email text missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "Notas:") {
		t.Error("empty notes must be omitted")
	}
	if !strings.Contains(testSummary.WhatsAppText(), "*Total: 13.00 DOP*") {
		t.Errorf("whatsapp text = %s", testSummary.WhatsAppText())
	}
}

func TestResendSender(t *testing.T) {
	var got map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := &ResendSender{APIKey: "re_123", From: "pedidos@mesa.test", To: "owner@mesa.test", Endpoint: srv.URL}
	if err := s.Send(context.Background(), testSummary); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if auth != "Bearer re_123" {
		t.Errorf("Authorization = %q", auth)
	}
	if got["to"] != "owner@mesa.test" || got["subject"] != "[Casa Mesa] Nuevo pedido en línea" {
		t.Errorf("payload = %v", got)
	}
}

func TestTwilioSender(t *testing.T) {
	var form url.Values
	var path, user string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		user, _, _ = r.BasicAuth()
		body, _ := io.ReadAll(r.Body)
		form, _ = url.ParseQuery(string(body))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s := &TwilioWhatsAppSender{AccountSID: "AC1", AuthToken: "tok", From: "whatsapp:+14155238886", To: "1 (809) 555-0100", BaseURL: srv.URL}
	if err := s.Send(context.Background(), testSummary); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if path != "/Accounts/AC1/Messages.json" || user != "AC1" {
		t.Errorf("path = %q user = %q", path, user)
	}
	if form.Get("To") != "whatsapp:+18095550100" || form.Get("From") != "whatsapp:+14155238886" {
		t.Errorf("form = %v", form)
	}
}

func TestSenderReportsHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := &ResendSender{APIKey: "x", To: "a@b.c", Endpoint: srv.URL}
	err := s.Send(context.Background(), testSummary)
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("err = %v, want 401", err)
	}
}

type funcSender struct {
	name string
	fn   func(ctx context.Context) error
}

func (f funcSender) Name() string                                   { return f.name }
func (f funcSender) Send(ctx context.Context, _ OrderSummary) error { return f.fn(ctx) }

func TestDispatcherIsFireAndForget(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	slow := funcSender{name: "slow", fn: func(ctx context.Context) error {
		<-release
		atomic.AddInt32(&calls, 1)
		return nil
	}}
	failing := funcSender{name: "failing", fn: func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("smtp down")
	}}
	panicking := funcSender{name: "panicking", fn: func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		panic("boom")
	}}

	d := NewDispatcher(nil, time.Second, slow, failing, panicking)

	done := make(chan struct{})
	go func() {
		d.OrderCreated(testSummary)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("OrderCreated blocked on a slow sender")
	}

	close(release)
	d.Wait()
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestDispatcherAppliesTimeout(t *testing.T) {
	var mu sync.Mutex
	var ctxErr error
	blocked := funcSender{name: "blocked", fn: func(ctx context.Context) error {
		<-ctx.Done()
		mu.Lock()
		ctxErr = ctx.Err()
		mu.Unlock()
		return ctx.Err()
	}}
	d := NewDispatcher(nil, 20*time.Millisecond, blocked)
	d.OrderCreated(testSummary)
	d.Wait()

	mu.Lock()
	defer mu.Unlock()
	if !errors.Is(ctxErr, context.DeadlineExceeded) {
		t.Errorf("ctx err = %v, want deadline exceeded", ctxErr)
	}
}

func TestNilDispatcherAndPublisher(t *testing.T) {
	var d *Dispatcher
	d.OrderCreated(testSummary)
	d.Wait()

	NewDispatcher(nil, 0).OrderCreated(testSummary)

	if err := NewRedisPublisher(nil).Publish(context.Background(), OrderEvent{EventType: EventOrderCreated}); err != nil {
		t.Errorf("nop publish: %v", err)
	}
}

func TestSendersFromConfig(t *testing.T) {
	if got := SendersFromConfig(config.NotifyConfig{}); len(got) != 0 {
		t.Errorf("empty config enabled %d senders", len(got))
	}
	got := SendersFromConfig(config.NotifyConfig{
		ResendAPIKey:       "k",
		NotificationEmail:  "a@b.c",
		TwilioAccountSID:   "AC",
		TwilioAuthToken:    "t",
		TwilioWhatsAppFrom: "+1",
		NotificationWAto:   "+2",
	})
	if len(got) != 2 || got[0].Name() != "resend" || got[1].Name() != "twilio-whatsapp" {
		t.Errorf("senders = %v", got)
	}
}
