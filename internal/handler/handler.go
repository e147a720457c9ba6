package handler

import (
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/calendar-optimizer/backend/internal/config"
	"github.com/sysu-ecnc-dev/calendar-optimizer/backend/internal/repository"
	"golang.org/x/time/rate"
)

type Handler struct {
	validate      *validator.Validate
	config        *config.Config
	repository    *repository.Repository
	translator    ut.Translator
	notifyChannel *amqp.Channel
	redisClient   *redis.Client

	// 正在运行的优化任务，key 为运行 ID
	runsMu   sync.Mutex
	liveRuns map[string]*liveRun

	// 每个用户一个限流器，防止 CPU 密集的优化任务被刷爆
	limitersMu sync.Mutex
	limiters   map[int64]*rate.Limiter

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo *repository.Repository, notifyCh *amqp.Channel, rdb *redis.Client) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:      validate,
		config:        cfg,
		repository:    repo,
		translator:    trans,
		notifyChannel: notifyCh,
		redisClient:   rdb,
		liveRuns:      make(map[string]*liveRun),
		limiters:      make(map[int64]*rate.Limiter),

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	h.Mux.Route("/users", func(r chi.Router) {
		r.Post("/", h.CreateUser)
		r.Get("/", h.GetAllUserInfo)
		r.Route("/{id}", func(r chi.Router) {
			r.Use(h.userInfo)
			r.Get("/", h.GetUserInfo)
			r.Patch("/", h.UpdateUser)
			r.Delete("/", h.DeleteUser)

			r.Route("/meetings", func(r chi.Router) {
				r.Post("/", h.CreateMeeting)
				r.Get("/", h.GetUserMeetings)
			})

			r.Route("/preferences", func(r chi.Router) {
				r.Get("/", h.GetSchedulePreferences)
				r.Put("/", h.UpdateSchedulePreferences)
			})

			r.Route("/optimization-runs", func(r chi.Router) {
				r.With(h.limitOptimizationRuns).Post("/", h.StartOptimizationRun)
				r.Get("/", h.GetUserOptimizationRuns)
			})
		})
	})

	h.Mux.Route("/meetings/{id}", func(r chi.Router) {
		r.Use(h.meetingInfo)
		r.Get("/", h.GetMeeting)
		r.Patch("/", h.UpdateMeeting)
		r.Delete("/", h.DeleteMeeting)
	})

	h.Mux.Route("/optimization-runs/{id}", func(r chi.Router) {
		r.Use(h.optimizationRun)
		r.Get("/", h.GetOptimizationRun)
		r.Delete("/", h.CancelOptimizationRun)
		r.Get("/result", h.GetOptimizationRunResult)
		r.Get("/ws", h.StreamOptimizationRunProgress)
	})
}
