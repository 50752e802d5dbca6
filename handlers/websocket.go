package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"caballos/config"
	"caballos/logging"
	"caballos/models"
	"caballos/revalidate"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	cmap "github.com/orcaman/concurrent-map/v2"
)

const (
	pingEvery   = 30 * time.Second
	writeWait   = 10 * time.Second
	sendBacklog = 32
)

// LiveMessage is pushed to admin dashboards connected to the live feed
type LiveMessage struct {
	Type  string   `json:"type"`
	Paths []string `json:"paths,omitempty"`
	At    int64    `json:"at"`
}

// SendSocketFunc returns true if data was queued for the client
type SendSocketFunc func([]byte) bool
type ConnectedClient struct {
	fun SendSocketFunc
}

// ConnectedClients is needed as a user may have more than one dashboard open
type ConnectedClients []*ConnectedClient

var (
	ConnectedAdmins = cmap.New[ConnectedClients]()

	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || config.PUBLIC_BASE_URL == "" || origin == config.PUBLIC_BASE_URL
		},
	}
)

func addClient(id string, c *ConnectedClient) {
	ConnectedAdmins.Upsert(id, ConnectedClients{c}, func(exist bool, valueInMap, newValue ConnectedClients) ConnectedClients {
		if exist {
			return append(valueInMap, c)
		}
		return newValue
	})
}

func removeClient(id string, c *ConnectedClient) {
	ConnectedAdmins.Upsert(id, ConnectedClients{}, func(exist bool, valueInMap, newValue ConnectedClients) ConnectedClients {
		if !exist {
			return newValue
		}
		for _, oc := range valueInMap {
			if oc == c {
				continue
			}
			newValue = append(newValue, oc)
		}
		return newValue
	})
	ConnectedAdmins.RemoveCb(id, func(key string, v ConnectedClients, exists bool) bool {
		return exists && len(v) == 0
	})
}

// Broadcast returns the number of clients the message was queued for
func Broadcast(msg LiveMessage) int {
	data, err := json.Marshal(msg)
	if err != nil {
		logging.L.Errorw("live feed marshal", "error", err)
		return 0
	}
	sent := 0
	for _, clients := range ConnectedAdmins.Items() {
		for _, client := range clients {
			if client.fun(data) {
				sent++
			}
		}
	}
	return sent
}

// StartLiveFeed forwards stale page notifications to connected dashboards
func StartLiveFeed() (stop func()) {
	return revalidate.OnStale(func(paths []string) {
		Broadcast(LiveMessage{Type: "stale", Paths: paths, At: time.Now().Unix()})
	})
}

func AdminLive(c *gin.Context, user *models.User) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.L.Warnw("live feed upgrade", "user", user.ID, "error", err)
		return
	}
	defer conn.Close()

	id := strconv.FormatUint(user.ID, 10)
	send := make(chan []byte, sendBacklog)
	done := make(chan struct{})
	client := ConnectedClient{}
	client.fun = func(data []byte) bool {
		select {
		case <-done:
			return false
		case send <- data:
			return true
		default:
			// Slow reader, drop the message
			return false
		}
	}
	addClient(id, &client)
	defer removeClient(id, &client)

	go func() {
		ticker := time.NewTicker(pingEvery)
		defer ticker.Stop()
		for {
			var err error
			select {
			case <-done:
				return
			case data := <-send:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				err = conn.WriteMessage(websocket.TextMessage, data)
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				err = conn.WriteMessage(websocket.PingMessage, nil)
			}
			if err != nil {
				logging.L.Debugw("live feed write", "user", user.ID, "error", err)
				conn.Close()
				return
			}
		}
	}()
	client.fun(mustJSON(LiveMessage{Type: "hello", At: time.Now().Unix()}))

	conn.SetReadDeadline(time.Now().Add(2 * pingEvery))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * pingEvery))
	})
	// Main read cycle, the feed is one way so only pings are answered
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			break
		}
		conn.SetReadDeadline(time.Now().Add(2 * pingEvery))
		if string(message) == "ping" {
			client.fun([]byte(`{"type":"pong"}`))
		}
	}
	close(done)
}

func mustJSON(v any) []byte {
	data, _ := json.Marshal(v)
	return data
}
