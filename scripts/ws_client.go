// Package main runs a demo WebSocket client for POS events.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Connect WS first so we see the events our webhook triggers
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/events/ws"}
	hdr := http.Header{}
	hdr.Set("X-Tenant-Id", "t_demo")
	c, _, err := websocket.DefaultDialer.Dial(u.String(), hdr)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m map[string]any
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			out, _ := json.Marshal(m)
			log.Printf("WS <- %s", out)
		}
	}()

	// Create an order against the demo tenant
	body := []byte(`{"customerName":"Demo Customer","totalCents":899,"items":[{"itemId":"item-scrambled","name":"Scrambled Eggs","quantity":1,"unitPriceCents":899}]}`)
	req, _ := http.NewRequest(http.MethodPost, base+"/v1/orders", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-Id", "t_demo")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	var order struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		log.Fatal(err)
	}
	_ = resp.Body.Close()
	log.Printf("Order ID: %s", order.ID)

	// Submit it to the mock POS
	subReq, _ := http.NewRequest(http.MethodPost, base+"/v1/orders/"+order.ID+"/submit", bytes.NewReader([]byte("{}")))
	subReq.Header.Set("X-Tenant-Id", "t_demo")
	if r2, err := http.DefaultClient.Do(subReq); err == nil {
		_ = r2.Body.Close()
	}

	// Push an availability webhook and watch it arrive on the stream
	time.Sleep(500 * time.Millisecond)
	hook := []byte(`{"event_type":"item_availability_changed","event_id":"demo-evt-1","item_id":"item-pancakes","is_available":false,"timestamp":"` + time.Now().UTC().Format(time.RFC3339) + `"}`)
	whReq, _ := http.NewRequest(http.MethodPost, base+"/v1/webhooks/mock?sync=1", bytes.NewReader(hook))
	whReq.Header.Set("Content-Type", "application/json")
	whReq.Header.Set("X-Tenant-Id", "t_demo")
	if r3, err := http.DefaultClient.Do(whReq); err == nil {
		_ = r3.Body.Close()
	}

	// Wait briefly to receive a few messages
	select {
	case <-time.After(2 * time.Second):
	case <-done:
	}
}
