package main

import (
	"github.com/ticketdraw/backend/pkg/xcontext"
	"github.com/urfave/cli/v2"
)

func (s *srv) startMigrate(ct *cli.Context) error {
	s.loadConfig(ct)
	s.loadLogger()
	s.loadDatabase()
	s.migrateDB()
	xcontext.Logger(s.ctx).Infof("Migration completed")
	return nil
}
