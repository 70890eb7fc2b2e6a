package status

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
)

const subscriberBuffer = 64

// Subscribe registers an event channel. batchID narrows delivery to one
// batch; empty receives everything. The returned function unsubscribes and
// closes the channel.
func (r *Reporter) Subscribe(batchID string) (<-chan Event, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextSub
	r.nextSub++
	s := &subscriber{
		ch:      make(chan Event, subscriberBuffer),
		batchID: batchID,
	}
	r.subs[id] = s

	return s.ch, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(s.ch)
		}
	}
}

// AttachConn streams events onto a websocket connection until the first
// write failure, then detaches and closes the connection. The reporter
// never blocks on a slow socket.
func (r *Reporter) AttachConn(conn *websocket.Conn, batchID string) {
	events, unsubscribe := r.Subscribe(batchID)

	go func() {
		defer conn.Close()
		defer unsubscribe()
		for ev := range events {
			if err := conn.WriteJSON(ev); err != nil {
				r.logger.Debug(context.Background(), "Websocket subscriber dropped: %v", err)
				return
			}
		}
	}()
}

// RegisterWebhook adds an HTTP endpoint that receives every matching event
// as a JSON POST. Registering the same URL again replaces its filter.
func (r *Reporter) RegisterWebhook(url, batchID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.webhooks[url] = batchID
}

// UnregisterWebhook removes an endpoint.
func (r *Reporter) UnregisterWebhook(url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.webhooks, url)
}

// publish fans an event out to every matching subscriber and webhook.
// Delivery is best effort: a full subscriber channel drops the event, a
// failing webhook is logged and unregistered, like a websocket that fails
// to write.
func (r *Reporter) publish(ev Event) {
	batchID := eventBatchID(ev)

	r.mu.Lock()
	var chans []chan Event
	for _, s := range r.subs {
		if s.batchID == "" || s.batchID == batchID {
			chans = append(chans, s.ch)
		}
	}
	var hooks []string
	for url, filter := range r.webhooks {
		if filter == "" || filter == batchID {
			hooks = append(hooks, url)
		}
	}
	r.mu.Unlock()

	for _, ch := range chans {
		select {
		case ch <- ev:
		default:
		}
	}

	if len(hooks) == 0 {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	for _, url := range hooks {
		go r.deliverWebhook(url, payload)
	}
}

func (r *Reporter) deliverWebhook(url string, payload []byte) {
	resp, err := r.client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		r.logger.Warn(context.Background(), "Webhook %s delivery failed, dropping subscriber: %v", url, err)
		r.UnregisterWebhook(url)
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		r.logger.Warn(context.Background(), "Webhook %s returned %d, dropping subscriber", url, resp.StatusCode)
		r.UnregisterWebhook(url)
	}
}

func eventBatchID(ev Event) string {
	switch {
	case ev.Job != nil:
		return ev.Job.BatchID
	case ev.Batch != nil:
		return ev.Batch.BatchID
	default:
		return ""
	}
}
