package stream

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	channelPrefix  = "ecotrack:"
	channelSuffix  = ":events"
	channelPattern = channelPrefix + "*" + channelSuffix
	sendBuffer     = 64
)

// Hub fans session events out to WebSocket clients. With Redis configured,
// events are also published so clients connected to other instances see them.
type Hub struct {
	id      string
	redis   *redis.Client
	log     *zap.Logger
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex

	pubsub *redis.PubSub
	done   chan struct{}
}

type Client struct {
	SessionID string
	Send      chan []byte
}

// envelope tags published messages with the publishing hub so it can skip
// its own messages when they come back through the subscription.
type envelope struct {
	Origin  string          `json:"origin"`
	Payload json.RawMessage `json:"payload"`
}

func NewHub(redisClient *redis.Client, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Hub{
		id:      uuid.NewString(),
		redis:   redisClient,
		log:     log,
		clients: map[string]map[*Client]struct{}{},
		done:    make(chan struct{}),
	}

	if redisClient != nil {
		ctx := context.Background()
		h.pubsub = redisClient.PSubscribe(ctx, channelPattern)
		if _, err := h.pubsub.Receive(ctx); err != nil {
			h.log.Warn("redis subscribe failed, events stay local", zap.Error(err))
		}
		go h.subscribeRedis()
	} else {
		close(h.done)
	}
	return h
}

func (h *Hub) Register(sessionID string) *Client {
	client := &Client{
		SessionID: sessionID,
		Send:      make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[sessionID] == nil {
		h.clients[sessionID] = map[*Client]struct{}{}
	}
	h.clients[sessionID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sessionClients, ok := h.clients[client.SessionID]
	if !ok {
		return
	}
	if _, ok := sessionClients[client]; !ok {
		return
	}
	delete(sessionClients, client)
	if len(sessionClients) == 0 {
		delete(h.clients, client.SessionID)
	}
	close(client.Send)
}

// Broadcast delivers payload to local clients of the session and publishes it
// for other instances. Slow clients drop messages instead of blocking.
func (h *Hub) Broadcast(ctx context.Context, sessionID string, payload []byte) {
	h.deliver(sessionID, payload)

	if h.redis == nil {
		return
	}
	msg, err := json.Marshal(envelope{Origin: h.id, Payload: payload})
	if err != nil {
		h.log.Error("encode stream envelope", zap.Error(err))
		return
	}
	if err := h.redis.Publish(ctx, redisChannel(sessionID), msg).Err(); err != nil {
		h.log.Warn("redis publish failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}

// Close stops the Redis subscription.
func (h *Hub) Close() error {
	if h.pubsub == nil {
		return nil
	}
	err := h.pubsub.Close()
	<-h.done
	return err
}

func (h *Hub) deliver(sessionID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[sessionID] {
		select {
		case client.Send <- payload:
		default:
			h.log.Debug("dropping event for slow client", zap.String("session_id", sessionID))
		}
	}
}

func (h *Hub) subscribeRedis() {
	defer close(h.done)
	for msg := range h.pubsub.Channel() {
		var env envelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			h.log.Warn("malformed stream message", zap.String("channel", msg.Channel), zap.Error(err))
			continue
		}
		if env.Origin == h.id {
			continue
		}
		sessionID := sessionIDFromChannel(msg.Channel)
		if sessionID == "" {
			continue
		}
		h.deliver(sessionID, env.Payload)
	}
}

func redisChannel(sessionID string) string {
	return channelPrefix + sessionID + channelSuffix
}

func sessionIDFromChannel(ch string) string {
	if len(ch) <= len(channelPrefix)+len(channelSuffix) {
		return ""
	}
	if !strings.HasPrefix(ch, channelPrefix) || !strings.HasSuffix(ch, channelSuffix) {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}

func (h *Hub) clientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}
