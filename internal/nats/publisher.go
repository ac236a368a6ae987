package nats

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/Mirai3103/boj-runner/internal/config"
	"github.com/Mirai3103/boj-runner/internal/models"
)

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
}

type Publisher struct {
	nc             Conn
	verdictSubject string
	reportSubject  string
	logger         *zap.SugaredLogger
}

func NewPublisher(nc Conn, cfg config.NATSConfig, logger *zap.SugaredLogger) *Publisher {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Publisher{
		nc:             nc,
		verdictSubject: cfg.VerdictSubject,
		reportSubject:  cfg.ReportSubject,
		logger:         logger,
	}
}

// PublishVerdict sends one case verdict while its run is still in progress.
func (p *Publisher) PublishVerdict(v models.Verdict) error {
	if err := p.publish(p.verdictSubject, v); err != nil {
		return err
	}
	p.logger.Debugw("published verdict", "run", v.RunID, "case", v.Case, "status", v.Status, "subject", p.verdictSubject)
	return nil
}

// PublishResult sends the outcome of a finished run.
func (p *Publisher) PublishResult(result models.RunResult) error {
	if err := p.publish(p.reportSubject, result); err != nil {
		return err
	}
	p.logger.Infow("published run result", "run", result.RequestID, "errorType", result.ErrorType, "subject", p.reportSubject)
	return nil
}

func (p *Publisher) publish(subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Errorw("error marshalling payload", "subject", subject, "error", err)
		return err
	}
	if err := p.nc.Publish(subject, data); err != nil {
		p.logger.Errorw("error publishing to NATS", "subject", subject, "error", err)
		return err
	}
	return nil
}
