package node

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/govm-net/counter/core"
	"github.com/govm-net/counter/types"
)

const (
	readBufferSize     = 1024
	writeBufferSize    = 1024
	writeWait          = 10 * time.Second
	pongWait           = 60 * time.Second
	pingPeriod         = (pongWait * 9) / 10
	maxReadMessageSize = 1024
	subscriptionBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  readBufferSize,
	WriteBufferSize: writeBufferSize,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// eventFilter selects events by contract and name; zero values match all
type eventFilter struct {
	contract core.Address
	name     string
}

func parseFilter(r *http.Request) (eventFilter, error) {
	var f eventFilter
	q := r.URL.Query()
	if s := q.Get("contract"); s != "" {
		addr, err := core.ParseAddress(s)
		if err != nil {
			return f, err
		}
		f.contract = addr
	}
	f.name = q.Get("name")
	return f, nil
}

func (f eventFilter) match(ev types.Event) bool {
	if f.contract != core.ZeroAddress && ev.Contract != f.contract {
		return false
	}
	return f.name == "" || ev.Name == f.name
}

// serveEvents streams committed events as JSON text messages
func (n *Node) serveEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	// every event committed after the handshake reaches the subscriber
	events, cancel := n.engine.Subscribe(subscriptionBuffer)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied
		cancel()
		n.logger.Debug("Websocket upgrade failed", "error", err)
		return
	}
	n.metrics.subscribers.Inc()
	n.logger.Debug("Event subscriber connected", "remote", r.RemoteAddr)

	done := make(chan struct{})
	go readPump(conn, done)
	n.writePump(conn, events, filter, done)

	cancel()
	n.metrics.subscribers.Dec()
	n.logger.Debug("Event subscriber disconnected", "remote", r.RemoteAddr)
}

// readPump only services control frames; it closes done when the peer
// goes away
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(maxReadMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

func (n *Node) writePump(conn *websocket.Conn, events <-chan types.Event, filter eventFilter, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case ev, ok := <-events:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "engine closed"))
				return
			}
			if !filter.match(ev) {
				continue
			}
			if err := conn.WriteJSON(ev); err != nil {
				n.logger.Debug("Closing event subscription", "reason", "failed to write message", "error", err)
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-n.quit:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "node shutting down"))
			return
		case <-done:
			return
		}
	}
}
