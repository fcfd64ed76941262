package main

import (
	"log"
	"net/http"

	"github.com/ticketdraw/backend/internal/middleware"
	"github.com/ticketdraw/backend/pkg/router"
	"github.com/ticketdraw/backend/pkg/xcontext"

	"github.com/urfave/cli/v2"
)

func (s *srv) startApi(ct *cli.Context) error {
	s.loadConfig(ct)
	s.loadLogger()
	s.loadDatabase()
	s.migrateDB()
	s.loadRedisClient()
	s.loadPublisher()
	s.loadRepos()
	s.loadDomains()
	s.loadRouter()

	cfg := xcontext.Configs(s.ctx)
	s.server = &http.Server{
		Addr:    cfg.ApiServer.Address(),
		Handler: s.router.Handler(),
	}

	log.Printf("Starting server on port: %s\n", cfg.ApiServer.Port)
	if err := s.server.ListenAndServe(); err != nil {
		panic(err)
	}
	log.Printf("server stop")
	return nil
}

func (s *srv) loadRouter() {
	s.router = router.New(s.db, xcontext.Configs(s.ctx), s.logger)
	s.router.AddCloser(middleware.Logger())

	// Public API.
	router.Any(s.router, "/postback", s.postbackDomain.Postback)
	router.POST(s.router, "/closeDraws", s.drawDomain.CloseDraws)
	router.GET(s.router, "/getCurrentDraw", s.drawDomain.GetCurrent)
	router.GET(s.router, "/getLeaderboard", s.statisticDomain.GetLeaderboard)

	// These following APIs need authentication with an access token.
	authRouter := s.router.Branch()
	authRouter.Before(middleware.NewAuthVerifier().Middleware())
	{
		// User API
		router.GET(authRouter, "/getUser", s.userDomain.GetUser)

		// Audit API
		router.GET(authRouter, "/verifyTickets", s.auditDomain.Verify)
		router.POST(authRouter, "/repairTickets", s.auditDomain.Repair)

		// Admin API
		router.POST(authRouter, "/pickWinner", s.drawDomain.PickWinner)
		router.POST(authRouter, "/issueEmergencyTicket", s.auditDomain.EmergencyTicket)
	}
}
