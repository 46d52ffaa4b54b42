package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/cseasy-api/internal/dto"
	"github.com/noah-isme/cseasy-api/internal/middleware"
	"github.com/noah-isme/cseasy-api/internal/observability"
)

const (
	feedSendBufferSize = 32
	feedPingInterval   = 30 * time.Second

	feedResubscribeMin = 250 * time.Millisecond
	feedResubscribeMax = 10 * time.Second
)

// FeedConn is the subset of a websocket connection the feed writes to.
type FeedConn interface {
	ReadMessage() (int, []byte, error)
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// FeedConnectionOptions wraps metadata extracted during the HTTP upgrade.
type FeedConnectionOptions struct {
	StudentID     string
	CorrelationID string
	Context       context.Context
}

// FeedService pushes student events to connected dashboards and relays them
// between API nodes over redis pub/sub and NATS.
type FeedService interface {
	StudentEventPublisher
	ServeConnection(conn FeedConn, opts FeedConnectionOptions)
	Start(ctx context.Context)
}

type feedService struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	hub          *feedHub
	nodeID       string

	resubscribeMin time.Duration
	resubscribeMax time.Duration
}

// feedHub keeps the live connections grouped by student.
type feedHub struct {
	mu       sync.RWMutex
	students map[string]map[*feedClient]struct{}
	log      zerolog.Logger
}

type feedClient struct {
	conn    FeedConn
	send    chan dto.StudentEvent
	options FeedConnectionOptions
	service *feedService
	closed  chan struct{}
	once    sync.Once
}

type feedEnvelope struct {
	Source string           `json:"source"`
	Event  dto.StudentEvent `json:"event"`
}

// NewFeedService creates the live feed. redisClient and natsConn are optional;
// without them events only reach clients connected to this node.
func NewFeedService(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) FeedService {
	redisChannel := ""
	natsSubject := ""
	if channelBase != "" {
		redisChannel = channelBase + ":feed"
		natsSubject = strings.ReplaceAll(channelBase, ":", ".") + ".feed"
	}

	return &feedService{
		redis:        redisClient,
		redisChannel: redisChannel,
		nats:         natsConn,
		natsSubject:  natsSubject,
		logger:       logger.With().Str("component", "feed_service").Logger(),
		hub: &feedHub{
			students: make(map[string]map[*feedClient]struct{}),
			log:      logger.With().Str("component", "feed_hub").Logger(),
		},
		nodeID:         uuid.NewString(),
		resubscribeMin: feedResubscribeMin,
		resubscribeMax: feedResubscribeMax,
	}
}

func (s *feedService) Start(ctx context.Context) {
	if s.redis != nil && s.redisChannel != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

// Publish delivers the event to local subscribers and relays it to other nodes.
func (s *feedService) Publish(ctx context.Context, event dto.StudentEvent) {
	s.hub.broadcast(event)
	observability.FeedEvents().WithLabelValues(event.Type, "local").Inc()

	if err := s.relay(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("student_id", event.StudentID).Msg("failed to relay student event")
	}
}

// ServeConnection blocks until the client disconnects. The feed is push only;
// inbound frames are read and discarded to detect closure.
func (s *feedService) ServeConnection(conn FeedConn, opts FeedConnectionOptions) {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.CorrelationID == "" {
		opts.CorrelationID = middleware.CorrelationIDFromContext(opts.Context)
	}

	client := &feedClient{
		conn:    conn,
		send:    make(chan dto.StudentEvent, feedSendBufferSize),
		options: opts,
		service: s,
		closed:  make(chan struct{}),
	}

	s.hub.register(client)
	observability.FeedConnections().Inc()
	defer observability.FeedConnections().Dec()

	go client.writer()
	client.reader()
}

func (s *feedService) relay(ctx context.Context, event dto.StudentEvent) error {
	payload, err := json.Marshal(feedEnvelope{Source: s.nodeID, Event: event})
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisChannel != "" {
		if err := s.redis.Publish(ctx, s.redisChannel, payload).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

// consumeRedis keeps a subscription open until ctx ends. A failed receive
// drops the subscription and a fresh one is opened after a doubling delay.
func (s *feedService) consumeRedis(ctx context.Context) {
	delay := s.resubscribeMin
	for {
		received, err := s.receiveRedis(ctx)
		if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, redis.ErrClosed) {
			return
		}
		if received {
			delay = s.resubscribeMin
		}

		s.logger.Warn().Err(err).Dur("retry_in", delay).Msg("feed redis subscription lost")
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		delay *= 2
		if delay > s.resubscribeMax {
			delay = s.resubscribeMax
		}
	}
}

// receiveRedis relays messages until the subscription fails. received reports
// whether anything arrived, which resets the retry delay.
func (s *feedService) receiveRedis(ctx context.Context) (bool, error) {
	pubsub := s.redis.Subscribe(ctx, s.redisChannel)
	defer func() {
		_ = pubsub.Close()
	}()

	received := false
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			return received, err
		}
		received = true
		s.handleEnvelope([]byte(msg.Payload))
	}
}

// consumeNATS uses no queue group so every node sees every event.
func (s *feedService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.Subscribe(s.natsSubject, func(msg *nats.Msg) {
		s.handleEnvelope(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats feed subject")
		return
	}
	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain feed nats subscription")
		}
	}()
}

func (s *feedService) handleEnvelope(data []byte) {
	var envelope feedEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		s.logger.Warn().Err(err).Msg("invalid feed event")
		return
	}

	if envelope.Source == s.nodeID {
		return
	}

	observability.FeedEvents().WithLabelValues(envelope.Event.Type, "remote").Inc()
	s.hub.broadcast(envelope.Event)
}

func (h *feedHub) register(client *feedClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	studentID := client.options.StudentID
	if _, exists := h.students[studentID]; !exists {
		h.students[studentID] = make(map[*feedClient]struct{})
	}
	h.students[studentID][client] = struct{}{}
	h.log.Debug().Str("student_id", studentID).Msg("feed client connected")
}

func (h *feedHub) unregister(client *feedClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	studentID := client.options.StudentID
	if clients, ok := h.students[studentID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.students, studentID)
		}
	}
	h.log.Debug().Str("student_id", studentID).Msg("feed client disconnected")
}

func (h *feedHub) broadcast(event dto.StudentEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.students[event.StudentID] {
		select {
		case client.send <- event:
		default:
			h.log.Warn().Str("student_id", event.StudentID).Msg("dropping feed event for slow client")
		}
	}
}

func (h *feedHub) connections(studentID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.students[studentID])
}

func (c *feedClient) reader() {
	defer c.close()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			c.service.logger.Debug().Err(err).Str("correlation_id", c.options.CorrelationID).Msg("feed read loop ended")
			return
		}
	}
}

func (c *feedClient) writer() {
	defer c.close()

	ticker := time.NewTicker(feedPingInterval)
	defer ticker.Stop()

	for {
		select {
		case event := <-c.send:
			if err := c.conn.WriteJSON(event); err != nil {
				c.service.logger.Debug().Err(err).Msg("feed write loop terminated")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				c.service.logger.Debug().Err(err).Msg("feed ping failed")
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *feedClient) close() {
	c.once.Do(func() {
		close(c.closed)
		c.service.hub.unregister(c)
		_ = c.conn.Close()
	})
}
