// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"wavefield/internal/log"

	"github.com/gorilla/websocket"
)

const (
	// WebSocketPath is the endpoint clients connect to.
	WebSocketPath = "/ws"

	broadcastQueue = 64
	writeWait      = time.Second
)

var ErrTransportClosed = errors.New("transport: closed")

// WebSocketTransport broadcasts messages to every connected WebSocket
// client. []byte is sent as a binary frame, string as text and anything else
// as JSON. Extra HTTP handlers can be mounted on the same server with Handle
// before Start.
type WebSocketTransport struct {
	addr      string
	upgrader  websocket.Upgrader
	mux       *http.ServeMux
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan any
	done      chan struct{}
	server    *http.Server
	listener  net.Listener
	wg        sync.WaitGroup
	startOnce sync.Once
	closeOnce sync.Once
}

// NewWebSocketTransport prepares a transport listening on addr
// ("host:port"; port 0 picks a free port). Call Start to listen.
func NewWebSocketTransport(addr string) *WebSocketTransport {
	wst := &WebSocketTransport{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Local visualiser clients only.
			},
		},
		mux:       http.NewServeMux(),
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan any, broadcastQueue),
		done:      make(chan struct{}),
	}
	wst.mux.HandleFunc(WebSocketPath, wst.handleWebSocket)
	return wst
}

// Handle mounts an extra HTTP handler. It must be called before Start.
func (wst *WebSocketTransport) Handle(pattern string, handler http.Handler) {
	wst.mux.Handle(pattern, handler)
}

// Start listens and begins serving and broadcasting.
func (wst *WebSocketTransport) Start() error {
	var err error
	wst.startOnce.Do(func() {
		var ln net.Listener
		ln, err = net.Listen("tcp", wst.addr)
		if err != nil {
			err = fmt.Errorf("transport: listening on %s: %w", wst.addr, err)
			return
		}
		wst.listener = ln
		wst.server = &http.Server{
			Handler:           wst.mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		wst.wg.Add(2)
		go func() {
			defer wst.wg.Done()
			log.Infof("WebSocketTransport: Listening on %s", ln.Addr())
			if err := wst.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("WebSocketTransport: Server error: %v", err)
			}
		}()
		go wst.handleBroadcasts()
	})
	return err
}

// Addr returns the bound address once started.
func (wst *WebSocketTransport) Addr() string {
	if wst.listener == nil {
		return wst.addr
	}
	return wst.listener.Addr().String()
}

// Clients returns the number of connected clients.
func (wst *WebSocketTransport) Clients() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("WebSocketTransport: Upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	select {
	case <-wst.done:
		wst.clientsMu.Unlock()
		conn.Close()
		return
	default:
	}
	wst.clients[conn] = true
	total := len(wst.clients)
	wst.wg.Add(1)
	wst.clientsMu.Unlock()
	log.Infof("WebSocketTransport: Client connected, total: %d", total)

	// Clients never send; the read only detects disconnects.
	go func() {
		defer wst.wg.Done()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		wst.drop(conn)
	}()
}

func (wst *WebSocketTransport) drop(conn *websocket.Conn) {
	wst.clientsMu.Lock()
	_, ok := wst.clients[conn]
	delete(wst.clients, conn)
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	conn.Close()
	if ok {
		log.Infof("WebSocketTransport: Client disconnected, total: %d", total)
	}
}

func (wst *WebSocketTransport) handleBroadcasts() {
	defer wst.wg.Done()
	for {
		select {
		case <-wst.done:
			return
		case data := <-wst.broadcast:
			wst.write(data)
		}
	}
}

func (wst *WebSocketTransport) write(data any) {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	for client := range wst.clients {
		client.SetWriteDeadline(time.Now().Add(writeWait))
		var err error
		switch v := data.(type) {
		case []byte:
			err = client.WriteMessage(websocket.BinaryMessage, v)
		case string:
			err = client.WriteMessage(websocket.TextMessage, []byte(v))
		default:
			err = client.WriteJSON(v)
		}
		if err != nil {
			log.Warnf("WebSocketTransport: Error sending to client: %v", err)
			client.Close()
			delete(wst.clients, client)
		}
	}
}

// Send queues data for broadcast. A full queue drops the message. []byte
// is copied so callers may reuse their buffer.
func (wst *WebSocketTransport) Send(data any) error {
	if b, ok := data.([]byte); ok {
		data = append([]byte(nil), b...)
	}
	select {
	case <-wst.done:
		return ErrTransportClosed
	default:
	}
	select {
	case wst.broadcast <- data:
	default:
		log.Debugf("WebSocketTransport: Queue full, dropping message")
	}
	return nil
}

// Close disconnects every client, shuts the server down and waits for its
// goroutines.
func (wst *WebSocketTransport) Close() error {
	var err error
	wst.closeOnce.Do(func() {
		log.Infof("WebSocketTransport: Closing server")

		wst.clientsMu.Lock()
		close(wst.done)
		for client := range wst.clients {
			client.Close()
		}
		wst.clients = make(map[*websocket.Conn]bool)
		wst.clientsMu.Unlock()

		if wst.server != nil {
			err = wst.server.Close()
		}
		wst.wg.Wait()
	})
	return err
}

var _ Transport = (*WebSocketTransport)(nil)
