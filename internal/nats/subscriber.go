package nats

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Mirai3103/boj-runner/internal/config"
	"github.com/Mirai3103/boj-runner/internal/models"
	"github.com/Mirai3103/boj-runner/internal/problem"
)

// RunRequestProcessor handles run requests received from NATS.
type RunRequestProcessor interface {
	HandleRunRequest(req models.RunRequest)
}

type Subscriber struct {
	nc      *nats.Conn
	subject string
	queue   string
	handler RunRequestProcessor
	logger  *zap.SugaredLogger
}

func NewSubscriber(nc *nats.Conn, cfg config.NATSConfig, handler RunRequestProcessor, logger *zap.SugaredLogger) *Subscriber {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Subscriber{
		nc:      nc,
		subject: cfg.RunRequestSubject,
		queue:   cfg.QueueGroup,
		handler: handler,
		logger:  logger,
	}
}

// SubscribeToRunRequests joins the queue group so each request is handled by
// exactly one worker.
func (s *Subscriber) SubscribeToRunRequests() (*nats.Subscription, error) {
	subscription, err := s.nc.QueueSubscribe(s.subject, s.queue, s.handleMsg)
	if err != nil {
		s.logger.Errorw("error subscribing to NATS subject", "subject", s.subject, "error", err)
		return nil, err
	}
	s.logger.Infow("subscribed to NATS subject", "subject", s.subject, "queue", s.queue)
	return subscription, nil
}

// handleMsg blocks while the handler has no free slot, which holds further
// messages in the subscription's pending buffer.
func (s *Subscriber) handleMsg(msg *nats.Msg) {
	var req models.RunRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.logger.Warnw("error unmarshalling run request", "subject", msg.Subject, "error", err, "data", string(msg.Data))
		return
	}
	if req.SourcePath == "" {
		s.logger.Warnw("run request without source path dropped", "request", req.ID)
		return
	}
	if !problem.ValidID(req.ProblemID) {
		s.logger.Warnw("run request with invalid problem id dropped", "request", req.ID, "problem", req.ProblemID)
		return
	}
	s.logger.Debugw("received run request", "request", req.ID, "problem", req.ProblemID, "language", req.Language)
	s.handler.HandleRunRequest(req)
}
