package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"

	"github.com/Mirai3103/boj-runner/internal/core"
	natsClient "github.com/Mirai3103/boj-runner/internal/nats"
	"github.com/Mirai3103/boj-runner/internal/report"
	"github.com/Mirai3103/boj-runner/internal/worker"
)

func connectNATS(url string, logger *zap.SugaredLogger) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warnw("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Infow("NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Infow("NATS connection closed")
		}),
	)
}

func serveCmd(a *app, _ []string) int {
	log := a.logger
	undo, err := maxprocs.Set(maxprocs.Logger(log.Infof))
	if err != nil {
		log.Warnw("failed to set GOMAXPROCS", "error", err)
	}
	defer undo()
	log.Infow("starting runner worker", "url", a.cfg.NATS.URL)
	nc, err := connectNATS(a.cfg.NATS.URL, log)
	if err != nil {
		return a.fail(err)
	}
	defer nc.Close()

	publisher := natsClient.NewPublisher(nc, a.cfg.NATS, log.Named("nats"))
	runner := a.newRunner(true, core.WithVerdictSink(publisher))
	jobHandler := worker.NewJobHandler(runner, publisher, report.NewRenderer(a.cfg.Report.Width), a.cfg.Worker, log.Named("worker"))

	subscriber := natsClient.NewSubscriber(nc, a.cfg.NATS, jobHandler, log.Named("nats"))
	subscription, err := subscriber.SubscribeToRunRequests()
	if err != nil {
		return a.fail(err)
	}
	log.Infow("listening for run requests", "subject", a.cfg.NATS.RunRequestSubject)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	log.Infow("shutting down runner worker")
	if err := subscription.Unsubscribe(); err != nil {
		log.Warnw("error unsubscribing", "error", err)
	}
	jobHandler.Wait()
	if err := nc.Drain(); err != nil {
		log.Warnw("error draining NATS connection", "error", err)
	}
	return 0
}
