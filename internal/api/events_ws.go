package api

import (
    "net/http"
    "strings"
    "time"

    "github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

// EventsWSHandler streams POS events for the caller's tenant over a
// WebSocket. An optional ?types=menu.updated,item.availability_changed
// filter restricts the stream.
func (s *Server) EventsWSHandler(w http.ResponseWriter, r *http.Request) {
    _, tenant := s.withTenant(r)

    var filter map[string]struct{}
    if raw := r.URL.Query().Get("types"); raw != "" {
        filter = map[string]struct{}{}
        for _, t := range strings.Split(raw, ",") {
            if t = strings.TrimSpace(t); t != "" { filter[t] = struct{}{} }
        }
    }

    conn, err := upgrader.Upgrade(w, r, nil)
    if err != nil {
        return
    }
    defer func() { _ = conn.Close() }()

    conn.SetReadLimit(1 << 20)
    _ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
    conn.SetPongHandler(func(string) error { _ = conn.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

    ch := s.Broker.Subscribe(tenant)
    defer s.Broker.Unsubscribe(tenant, ch)

    done := make(chan struct{})
    // Drain the read side so pongs and close frames are handled.
    go func() {
        defer close(done)
        for {
            if _, _, err := conn.ReadMessage(); err != nil {
                return
            }
        }
    }()

    ticker := time.NewTicker(20 * time.Second)
    defer ticker.Stop()
    for {
        select {
        case <-done:
            return
        case <-ticker.C:
            if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
                return
            }
        case evt, ok := <-ch:
            if !ok {
                return
            }
            if filter != nil {
                if _, want := filter[evt.Type]; !want { continue }
            }
            if err := conn.WriteJSON(evt); err != nil {
                return
            }
        }
    }
}
