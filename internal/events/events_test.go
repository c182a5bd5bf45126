package events

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/segmentio/kafka-go"

	"barmap/internal/models"
	"barmap/internal/seed"
)

type recordingPublisher struct {
	events []BarEvent
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, ev BarEvent) error {
	r.events = append(r.events, ev)
	return r.err
}

func TestNewBarEventCarriesMarker(t *testing.T) {
	bar := seed.Bars()[0]
	ev := NewBarEvent(BarCreated, bar)
	if ev.Marker.Popup != "<strong>Sample Bar 1</strong><br>Mon–Fri 4–7 PM: $5 beers, $3 tacos" {
		t.Errorf("popup = %q", ev.Marker.Popup)
	}
	if ev.Marker.Lat != bar.Lat || ev.Marker.Lng != bar.Lng {
		t.Errorf("marker at %v,%v", ev.Marker.Lat, ev.Marker.Lng)
	}
}

func TestMultiPublish(t *testing.T) {
	a := &recordingPublisher{}
	boom := errors.New("boom")
	b := &recordingPublisher{err: boom}
	m := Multi{a, nil, b}

	err := m.Publish(context.Background(), NewBarEvent(BarUpdated, seed.Bars()[1]))
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	if len(a.events) != 1 || len(b.events) != 1 {
		t.Errorf("deliveries = %d, %d", len(a.events), len(b.events))
	}
}

type mockWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (w *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *mockWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher(t *testing.T) {
	w := &mockWriter{}
	p := NewKafkaPublisherWithWriter(w)

	bar := seed.Bars()[2]
	if err := p.Publish(context.Background(), NewBarEvent(BarCreated, bar)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	manual := models.Bar{Name: "Manual", Source: models.SourceManual}
	manual.ID = 9
	if err := p.Publish(context.Background(), NewBarEvent(BarDeleted, manual)); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(w.msgs) != 2 {
		t.Fatalf("messages = %d", len(w.msgs))
	}
	if string(w.msgs[0].Key) != "seed/the-whiskey-room" {
		t.Errorf("key = %s", w.msgs[0].Key)
	}
	if string(w.msgs[1].Key) != "manual/9" {
		t.Errorf("key = %s", w.msgs[1].Key)
	}
	var decoded BarEvent
	if err := json.Unmarshal(w.msgs[0].Value, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Type != BarCreated || decoded.Bar.Name != "The Whiskey Room" {
		t.Errorf("decoded = %+v", decoded)
	}
	if len(w.msgs[0].Headers) != 1 || string(w.msgs[0].Headers[0].Value) != BarCreated {
		t.Errorf("headers = %v", w.msgs[0].Headers)
	}

	if err := p.Close(); err != nil || !w.closed {
		t.Errorf("Close: %v closed=%v", err, w.closed)
	}
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub()
	defer hub.Stop()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		hub.Register(conn)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.ClientCount() != 1 {
		t.Fatalf("clients = %d", hub.ClientCount())
	}

	hub.Publish(context.Background(), NewBarEvent(BarCreated, seed.Bars()[0]))

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got BarEvent
	if err := client.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Type != BarCreated || got.Marker.Name != "Sample Bar 1" {
		t.Errorf("got %+v", got)
	}
}

func TestHubPublishDropsWhenFull(t *testing.T) {
	h := &Hub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan BarEvent, 1),
		done:      make(chan struct{}),
	}
	ev := NewBarEvent(BarCreated, seed.Bars()[0])
	if err := h.Publish(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	// No run loop drains the channel, so the second publish must not block.
	if err := h.Publish(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	if len(h.broadcast) != 1 {
		t.Errorf("queued = %d", len(h.broadcast))
	}
}

func TestHubRegisterWhileViewerIsSlow(t *testing.T) {
	hub := NewHub()
	defer hub.Stop()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		hub.Register(conn)
	}))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	// This viewer never reads, so a large event fills the socket buffers and
	// the hub's write blocks.
	slow, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer slow.Close()
	waitForClients(t, hub, 1)

	big := seed.Bars()[0]
	big.HappyHour = strings.Repeat("x", 32<<20)
	hub.Publish(context.Background(), NewBarEvent(BarUpdated, big))
	time.Sleep(200 * time.Millisecond)

	fast, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer fast.Close()
	waitForClients(t, hub, 2)
}

func TestHubStopTwice(t *testing.T) {
	hub := NewHub()
	hub.Stop()
	hub.Stop()
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		deadline := time.Now().Add(2 * time.Second)
		for hub.ClientCount() < n && time.Now().Before(deadline) {
			time.Sleep(10 * time.Millisecond)
		}
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatalf("hub blocked waiting for %d clients", n)
	}
	if got := hub.ClientCount(); got < n {
		t.Fatalf("clients = %d, want %d", got, n)
	}
}
