package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vigilo-edu/vigilo-go-api/internal/dto"
	"github.com/vigilo-edu/vigilo-go-api/internal/middleware"
	"github.com/vigilo-edu/vigilo-go-api/internal/models"
	"github.com/vigilo-edu/vigilo-go-api/internal/security"
)

const monitorSendBufferSize = 32

// MonitorService fans security decisions out to live teacher dashboards. It
// implements security.Publisher: the engine hands it every decision that
// resulted in an action, and it broadcasts to local websocket clients, a
// redis channel for other nodes, and an optional NATS subject for
// cross-service consumers.
type MonitorService interface {
	PublishDecision(ctx context.Context, session models.SecuritySession, decision security.Decision)
	ServeConnection(conn *websocket.Conn, quizID uint)
	Start(ctx context.Context)
}

// MonitorEvent is the wire shape of one broadcast decision.
type MonitorEvent struct {
	Source        string               `json:"source"`
	QuizID        uint                 `json:"quiz_id"`
	CorrelationID string               `json:"correlation_id,omitempty"`
	Decision      dto.DecisionResponse `json:"decision"`
	SentAt        time.Time            `json:"sent_at"`
}

type monitorService struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	hub          *monitorHub
	logger       zerolog.Logger
	nodeID       string
}

type monitorHub struct {
	mu      sync.RWMutex
	quizzes map[uint]map[*monitorClient]struct{}
	log     zerolog.Logger
}

type monitorClient struct {
	conn   *websocket.Conn
	send   chan []byte
	quizID uint
	closed chan struct{}
	once   sync.Once
}

// NewMonitorService creates the monitor fan-out. redisClient and natsConn
// may be nil; broadcasting then stays node-local.
func NewMonitorService(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) MonitorService {
	hub := &monitorHub{
		quizzes: make(map[uint]map[*monitorClient]struct{}),
		log:     logger.With().Str("component", "monitor_hub").Logger(),
	}

	redisChannel := ""
	natsSubject := ""
	if channelBase != "" {
		redisChannel = channelBase + ":decisions"
		natsSubject = strings.ReplaceAll(channelBase, ":", ".") + ".decisions"
	}

	return &monitorService{
		redis:        redisClient,
		redisChannel: redisChannel,
		nats:         natsConn,
		natsSubject:  natsSubject,
		hub:          hub,
		logger:       logger.With().Str("component", "monitor_service").Logger(),
		nodeID:       uuid.NewString(),
	}
}

// Start launches the redis consumer that relays decisions from other nodes.
func (s *monitorService) Start(ctx context.Context) {
	if s.redis != nil && s.redisChannel != "" {
		go s.consumeRedis(ctx)
	}
}

func (s *monitorService) PublishDecision(ctx context.Context, session models.SecuritySession, decision security.Decision) {
	event := MonitorEvent{
		Source:        s.nodeID,
		QuizID:        session.QuizID,
		CorrelationID: middleware.CorrelationIDFromContext(ctx),
		Decision:      dto.NewDecisionResponse(session, decision),
		SentAt:        time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", session.ID).Msg("failed to encode monitor event")
		return
	}

	s.hub.broadcast(event.QuizID, payload)

	if s.redis != nil && s.redisChannel != "" {
		if err := s.redis.Publish(ctx, s.redisChannel, payload).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish decision to redis")
		}
	}
	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish decision to nats")
		}
	}
}

func (s *monitorService) ServeConnection(conn *websocket.Conn, quizID uint) {
	client := &monitorClient{
		conn:   conn,
		send:   make(chan []byte, monitorSendBufferSize),
		quizID: quizID,
		closed: make(chan struct{}),
	}

	s.hub.register(client)
	defer s.hub.unregister(client)

	go client.writer()
	client.reader()
}

func (s *monitorService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisChannel)
	defer pubsub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case message, ok := <-pubsub.Channel():
			if !ok {
				return
			}
			var event MonitorEvent
			if err := json.Unmarshal([]byte(message.Payload), &event); err != nil {
				s.logger.Warn().Err(err).Msg("failed to decode monitor event from redis")
				continue
			}
			if event.Source == s.nodeID {
				continue
			}
			s.hub.broadcast(event.QuizID, []byte(message.Payload))
		}
	}
}

func (h *monitorHub) register(client *monitorClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.quizzes[client.quizID]
	if !ok {
		clients = make(map[*monitorClient]struct{})
		h.quizzes[client.quizID] = clients
	}
	clients[client] = struct{}{}
}

func (h *monitorHub) unregister(client *monitorClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.quizzes[client.quizID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.quizzes, client.quizID)
		}
	}
	client.close()
}

func (h *monitorHub) broadcast(quizID uint, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.quizzes[quizID] {
		select {
		case client.send <- payload:
		default:
			h.log.Debug().Uint("quiz_id", quizID).Msg("dropping monitor event for slow consumer")
		}
	}
}

func (c *monitorClient) close() {
	c.once.Do(func() {
		close(c.closed)
	})
}

func (c *monitorClient) writer() {
	for {
		select {
		case <-c.closed:
			return
		case payload, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.close()
				return
			}
		}
	}
}

// reader drains the connection so pings and close frames are processed;
// monitor clients never send application messages.
func (c *monitorClient) reader() {
	defer c.close()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
