package main

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/ticketdraw/backend/config"
	"github.com/ticketdraw/backend/internal/client"
	"github.com/ticketdraw/backend/internal/domain"
	"github.com/ticketdraw/backend/internal/domain/ledger"
	"github.com/ticketdraw/backend/internal/entity"
	"github.com/ticketdraw/backend/internal/repository"
	"github.com/ticketdraw/backend/pkg/kafka"
	"github.com/ticketdraw/backend/pkg/logger"
	"github.com/ticketdraw/backend/pkg/pubsub"
	"github.com/ticketdraw/backend/pkg/router"
	"github.com/ticketdraw/backend/pkg/xcontext"
	"github.com/ticketdraw/backend/pkg/xredis"
	"github.com/urfave/cli/v2"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

type srv struct {
	ctx context.Context
	app *cli.App

	db     *gorm.DB
	logger logger.Logger

	userRepo           repository.UserRepository
	ticketRepo         repository.TicketRepository
	drawRepo           repository.DrawRepository
	participationRepo  repository.DrawParticipationRepository
	processedEventRepo repository.ProcessedEventRepository
	postbackLogRepo    repository.PostbackLogRepository

	ledger     *ledger.Ledger
	propagator *ledger.Propagator

	userDomain      domain.UserDomain
	postbackDomain  domain.PostbackDomain
	drawDomain      domain.DrawDomain
	auditDomain     domain.AuditDomain
	statisticDomain domain.StatisticDomain

	publisher   pubsub.Publisher
	subscriber  pubsub.Subscriber
	redisClient xredis.Client
	mailer      client.Mailer

	router *router.Router
	server *http.Server
}

func (s *srv) loadConfig(ct *cli.Context) {
	cfg, err := config.Load(ct.String("config"))
	if err != nil {
		panic(err)
	}

	s.ctx = xcontext.WithConfigs(s.ctx, cfg)
}

func (s *srv) loadLogger() {
	level := logger.INFO
	if xcontext.Configs(s.ctx).Env == "local" {
		level = logger.DEBUG
	}

	s.logger = logger.NewLogger(level)
	s.ctx = xcontext.WithLogger(s.ctx, s.logger)
}

func (s *srv) loadDatabase() {
	cfg := xcontext.Configs(s.ctx)
	db, err := gorm.Open(mysql.Open(cfg.Database.ConnectionString()), &gorm.Config{})
	if err != nil {
		panic(err)
	}

	s.db = db
	s.ctx = xcontext.WithDB(s.ctx, db)
}

func (s *srv) migrateDB() {
	if err := entity.MigrateTable(s.db); err != nil {
		panic(err)
	}
}

func (s *srv) loadRedisClient() {
	var err error
	s.redisClient, err = xredis.NewClient(s.ctx)
	if err != nil {
		panic(err)
	}
}

func (s *srv) loadPublisher() {
	cfg := xcontext.Configs(s.ctx)
	s.publisher = kafka.NewPublisher(uuid.NewString(), []string{cfg.Kafka.Addr})
}

func (s *srv) loadMailer() {
	s.mailer = client.NewMailer(xcontext.Configs(s.ctx).Mailer.Endpoint)
}

func (s *srv) loadRepos() {
	s.userRepo = repository.NewUserRepository()
	s.ticketRepo = repository.NewTicketRepository()
	s.drawRepo = repository.NewDrawRepository()
	s.participationRepo = repository.NewDrawParticipationRepository()
	s.processedEventRepo = repository.NewProcessedEventRepository()
	s.postbackLogRepo = repository.NewPostbackLogRepository()
}

func (s *srv) loadDomains() {
	s.ledger = ledger.New(s.userRepo, s.ticketRepo, s.drawRepo, s.participationRepo)
	s.propagator = ledger.NewPropagator(s.userRepo, s.ticketRepo, s.ledger)

	s.drawDomain = domain.NewDrawDomain(
		s.drawRepo, s.participationRepo, s.ticketRepo, s.userRepo, s.ledger, s.publisher)
	s.postbackDomain = domain.NewPostbackDomain(
		s.processedEventRepo, s.postbackLogRepo, s.userRepo,
		s.drawDomain, s.ledger, s.publisher, s.redisClient)
	s.auditDomain = domain.NewAuditDomain(
		s.userRepo, s.ticketRepo, s.drawRepo, s.participationRepo, s.drawDomain, s.ledger)
	s.userDomain = domain.NewUserDomain(s.userRepo)
	s.statisticDomain = domain.NewStatisticDomain(s.userRepo, s.redisClient)
}
