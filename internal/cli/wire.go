package cli

import (
	"context"
	"errors"
	"time"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/config"
	"company-quiz-service/internal/domain"
	"company-quiz-service/internal/infra/memory"
	"company-quiz-service/internal/infra/postgres"
	redisinfra "company-quiz-service/internal/infra/redis"
	"company-quiz-service/internal/logging"
	"company-quiz-service/internal/metrics"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// quizStore is what both the memory and the postgres quiz stores provide.
type quizStore interface {
	app.QuizStore
	memory.QuizLoader
}

// stack holds the wired services for one process.
type stack struct {
	hub           *app.Hub
	relay         *redisinfra.NotificationRelay
	notifications *app.NotificationService
	quizzes       *app.QuizService
	reminders     *app.ReminderService

	closers []func()
}

func loadConfig(path string) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File})
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}

// buildStack picks postgres and redis when configured and falls back to the
// in-memory stores otherwise.
func buildStack(ctx context.Context, cfg config.Config, log *zap.Logger, m *metrics.Metrics) (*stack, error) {
	s := &stack{hub: app.NewHub(cfg.Notifications.SendBuffered, m)}

	var (
		quizzes       quizStore
		results       app.ResultRepository
		notifications app.NotificationStore
		directory     app.Directory
	)
	if cfg.Postgres.URL != "" {
		db := postgres.Open(cfg.Postgres.URL)
		s.closers = append(s.closers, func() { _ = db.Close() })
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, pool.Close)

		quizzes = postgres.NewQuizStore(db)
		results = postgres.NewResultStore(db)
		notifications = postgres.NewNotificationStore(db)
		directory = postgres.NewDirectory(pool)
	} else {
		log.Warn("postgres not configured, using in-memory stores with a demo company")
		mq := memory.NewQuizStore()
		mr := memory.NewResultStore()
		mq.OnDelete(mr.DetachQuiz)
		quizzes, results = mq, mr
		notifications = memory.NewNotificationStore()
		directory = sampleDirectory()
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var (
		cache     app.QuizRepository
		answers   app.AnswerRecorder
		answerLog app.AnswerLog
		live      app.Broadcaster = s.hub
	)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		s.closers = append(s.closers, func() { _ = client.Close() })
		cache = redisinfra.NewQuizRepository(client, quizzes, quizTTL)
		recorded := redisinfra.NewAnswerCache(client, config.TTLDuration(cfg.Quiz.AnswerCacheTTL, 48*time.Hour))
		answers, answerLog = recorded, recorded
		s.relay = redisinfra.NewNotificationRelay(client, cfg.Notifications.Channel, s.hub, log.Named("relay"))
		live = s.relay
	} else {
		cache = memory.NewQuizRepository(quizzes, quizTTL)
	}

	s.notifications = app.NewNotificationService(notifications, directory, live, log.Named("notifications"), cfg.Notifications.PageSize)
	s.quizzes = app.NewQuizService(app.QuizServiceDeps{
		Quizzes:   quizzes,
		Cache:     cache,
		Results:   results,
		Directory: directory,
		Notifier:  s.notifications,
		Answers:   answers,
		AnswerLog: answerLog,
		Rules:     app.QuizRules{MinQuestions: cfg.Quiz.MinQuestions, MinAnswers: cfg.Quiz.MinAnswers},
		Logger:    log.Named("quiz"),
		Metrics:   m,
	})
	s.reminders = app.NewReminderService(directory, quizzes, results, s.notifications, log.Named("reminders"), time.Now)
	return s, nil
}

// startRelay subscribes to the cross-instance channel and waits until the
// subscription is live.
func (s *stack) startRelay(ctx context.Context, log *zap.Logger) error {
	if s.relay == nil {
		return nil
	}
	ready := make(chan struct{})
	errc := make(chan error, 1)
	go func() {
		errc <- s.relay.Run(ctx, ready)
	}()
	select {
	case <-ready:
		go func() {
			if err := <-errc; err != nil {
				log.Error("notification relay stopped", zap.Error(err))
			}
		}()
		return nil
	case err := <-errc:
		if err == nil {
			err = errors.New("notification relay stopped before subscribing")
		}
		return err
	case <-time.After(5 * time.Second):
		return errors.New("notification relay did not subscribe in time")
	}
}

func (s *stack) Close() {
	s.hub.Close()
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// sampleDirectory seeds a demo company for running without postgres.
func sampleDirectory() *memory.Directory {
	dir := memory.NewDirectory()
	dir.AddUser(domain.User{ID: 1, Username: "owner"})
	dir.AddUser(domain.User{ID: 2, Username: "member"})
	dir.AddCompany(domain.Company{ID: 1, Name: "Demo", OwnerID: 1})
	dir.AddMember(domain.Member{UserID: 2, CompanyID: 1})
	return dir
}
