package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/allocation"
	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/forecast"
	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/repository"
)

type Handler struct {
	validate    *validator.Validate
	config      *config.Config
	repository  *repository.Repository
	translator  ut.Translator
	mailChannel *amqp.Channel
	redisClient *redis.Client
	engine      *allocation.Engine // 使用配置中的分配比例，请求中指定了比例时会另外创建
	forecaster  *forecast.Forecaster

	Mux *chi.Mux
}

func NewHandler(
	cfg *config.Config,
	repo *repository.Repository,
	mailCh *amqp.Channel,
	rdb *redis.Client,
	engine *allocation.Engine,
	forecaster *forecast.Forecaster,
) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:    validate,
		config:      cfg,
		repository:  repo,
		translator:  trans,
		mailChannel: mailCh,
		redisClient: rdb,
		engine:      engine,
		forecaster:  forecaster,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
	})

	// 以下 API 必须要在登录后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Route("/my-info", func(r chi.Router) {
			r.Use(h.myInfo)
			r.Get("/", h.GetMyInfo)
			r.Patch("/password", h.UpdateMyPassword)
		})

		r.Route("/users", func(r chi.Router) {
			r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Post("/", h.CreateUser)
			r.Get("/", h.GetAllUserInfo)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.userInfo)
				r.Get("/", h.GetUserInfo)
				r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Patch("/status", h.UpdateUserStatus)
			})
		})

		// 无状态的计算接口，不会写数据库
		r.Post("/forecasts", h.CreateForecast)
		r.Post("/allocations", h.CreateAllocation)

		r.Route("/labor-histories", func(r chi.Router) {
			r.Post("/", h.CreateLaborHistory)
			r.Post("/upload", h.UploadLaborHistory)
			r.Get("/", h.GetAllLaborHistories)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.laborHistory)
				r.Get("/", h.GetLaborHistory)
				r.Patch("/", h.UpdateLaborHistory)
				r.Delete("/", h.DeleteLaborHistory)
			})
		})

		r.Route("/allocation-plans", func(r chi.Router) {
			r.With(h.myInfo).Post("/", h.CreateAllocationPlan)
			r.Get("/", h.GetAllAllocationPlans)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.allocationPlan)
				r.Get("/", h.GetAllocationPlan)
				r.Get("/export", h.ExportAllocationPlan)
				r.Delete("/", h.DeleteAllocationPlan)
			})
		})
	})
}
