package main

import (
	"github.com/ticketdraw/backend/internal/domain/cron"
	"github.com/urfave/cli/v2"
)

func (s *srv) startCron(ct *cli.Context) error {
	s.loadConfig(ct)
	s.loadLogger()
	s.loadDatabase()
	s.migrateDB()
	s.loadRedisClient()
	s.loadPublisher()
	s.loadRepos()
	s.loadDomains()

	manager := cron.NewManager()
	manager.Start(
		s.ctx,
		cron.NewCloseDrawCronJob(s.drawDomain),
		cron.NewReconcileCronJob(s.userRepo, s.auditDomain),
	)

	return nil
}
