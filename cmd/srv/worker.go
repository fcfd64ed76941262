package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/ticketdraw/backend/internal/domain/task"
	"github.com/ticketdraw/backend/pkg/kafka"
	"github.com/ticketdraw/backend/pkg/xcontext"
	"github.com/urfave/cli/v2"
)

func (s *srv) startWorker(ct *cli.Context) error {
	s.loadConfig(ct)
	s.loadLogger()
	s.loadDatabase()
	s.migrateDB()
	s.loadPublisher()
	s.loadMailer()
	s.loadRepos()
	s.loadDomains()

	cfg := xcontext.Configs(s.ctx)
	dispatcher := task.NewDispatcher(s.userRepo, s.propagator, s.mailer)
	s.subscriber = kafka.NewSubscriber(
		"task-worker",
		[]string{cfg.Kafka.Addr},
		[]string{cfg.Kafka.TaskTopic},
		dispatcher.Handle,
	)
	s.subscriber.Subscribe(s.ctx)
	xcontext.Logger(s.ctx).Infof("Task worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	return s.subscriber.Stop(s.ctx)
}
