package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/acdoc-booking/internal/config"
	"github.com/iliyamo/acdoc-booking/internal/database"
	"github.com/iliyamo/acdoc-booking/internal/handler"
	"github.com/iliyamo/acdoc-booking/internal/logger"
	"github.com/iliyamo/acdoc-booking/internal/middleware"
	"github.com/iliyamo/acdoc-booking/internal/model"
	"github.com/iliyamo/acdoc-booking/internal/notify"
	"github.com/iliyamo/acdoc-booking/internal/queue"
	"github.com/iliyamo/acdoc-booking/internal/repository"
	"github.com/iliyamo/acdoc-booking/internal/repository/memory"
	"github.com/iliyamo/acdoc-booking/internal/router"
	"github.com/iliyamo/acdoc-booking/internal/service"
)

var roles = []model.Role{model.RoleAdmin, model.RoleUser, model.RoleTechnician}

// stores is the set of repositories the services run on.
type stores struct {
	identities  map[model.Role]repository.IdentityRepository
	bookings    repository.BookingRepository
	coupons     repository.CouponRepository
	services    repository.ServiceRepository
	addresses   repository.AddressRepository
	attendances repository.AttendanceRepository
	leaves      repository.LeaveRepository
	tools       repository.ToolRequestRepository
	seq         repository.Sequencer
	otps        repository.OTPStore
}

func memoryStores() stores {
	st := memory.NewStore()
	s := stores{
		identities:  map[model.Role]repository.IdentityRepository{},
		bookings:    st.Bookings(),
		coupons:     st.Coupons(),
		services:    st.Services(),
		addresses:   st.Addresses(),
		attendances: st.Attendances(),
		leaves:      st.Leaves(),
		tools:       st.ToolRequests(),
		seq:         st.Sequencer(),
		otps:        st.OTPs(),
	}
	for _, r := range roles {
		s.identities[r] = st.Identities(r)
	}
	return s
}

func mysqlStores(db *sql.DB) stores {
	s := stores{
		identities:  map[model.Role]repository.IdentityRepository{},
		bookings:    repository.NewBookingRepo(db),
		coupons:     repository.NewCouponRepo(db),
		services:    repository.NewServiceRepo(db),
		addresses:   repository.NewAddressRepo(db),
		attendances: repository.NewAttendanceRepo(db),
		leaves:      repository.NewLeaveRepo(db),
		tools:       repository.NewToolRequestRepo(db),
		seq:         repository.NewSequenceRepo(db),
		// replaced by Redis when it is reachable
		otps: memory.NewStore().OTPs(),
	}
	for _, r := range roles {
		s.identities[r] = repository.NewIdentityRepo(db, r)
	}
	return s
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logger.New(cfg.Env, cfg.LogLevel)

	var st stores
	if cfg.UseMemoryStore {
		log.Warn("USE_MEMORY_STORE set, data will not survive a restart")
		st = memoryStores()
	} else {
		db, err := database.Open(cfg.DB)
		if err != nil {
			log.WithError(err).Fatal("mysql connection failed")
		}
		defer func() { _ = db.Close() }()
		mctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = database.Migrate(mctx, db)
		cancel()
		if err != nil {
			log.WithError(err).Fatal("migration failed")
		}
		st = mysqlStores(db)
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
		st.otps = repository.NewRedisOTPStore(rdb)
		log.WithField("addr", cfg.Redis.Addr).Info("redis connected")
	} else {
		log.WithField("addr", cfg.Redis.Addr).Warn("redis unavailable, otp codes kept in memory; rate limit and cache disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sms := notify.NewSMSSender(cfg.Twilio, log)
	push := notify.NewPushSender(ctx, cfg.FCM, log)
	var notifier notify.Notifier = &notify.DirectNotifier{Sender: push, Log: log}
	if cfg.RabbitMQURL != "" {
		notifier = queue.NewPublisher(cfg.RabbitMQURL, log)
		consumer := queue.NewConsumer(cfg.RabbitMQURL, push, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("notification consumer stopped")
			}
		}()
	}

	e := newServer(cfg, log, st, sms, notifier, rdb)

	go func() {
		addr := ":" + cfg.Port
		log.Infof("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

func newServer(cfg config.Config, log *logrus.Logger, st stores, sms notify.SMSSender, notifier notify.Notifier, rdb *redis.Client) *echo.Echo {
	resp := handler.Responder{Log: log, Prod: cfg.IsProd()}

	identities := map[model.Role]*service.IdentityService{}
	auth := map[model.Role]*handler.AuthHandler{}
	for _, role := range roles {
		svc := service.NewRoleIdentityService(st.identities[role], st.otps, sms, cfg.Auth, log)
		svc.ExposeOTP = cfg.ExposeOTP
		identities[role] = svc
		auth[role] = handler.NewAuthHandler(svc, handler.CookieConfig{
			Enabled: svc.Profile().Auth.SetCookie,
			TTL:     cfg.Auth.RefreshCookieTTL,
			Secure:  cfg.IsProd(),
		}, resp)
	}

	bookings := service.NewBookingService(st.bookings, st.addresses, st.services,
		st.identities[model.RoleUser], st.identities[model.RoleTechnician], st.seq, notifier, log)
	coupons := service.NewCouponService(st.coupons, st.bookings, log)
	catalog := service.NewCatalogService(st.services, st.addresses)
	work := service.NewTechnicianService(st.identities[model.RoleTechnician], st.attendances, st.leaves, st.tools, log)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType},
		AllowCredentials: false,
	}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.WithFields(logrus.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"request_id": v.RequestID,
			}).Info("request")
			return nil
		},
	}))

	router.Register(e, router.Handlers{
		Auth:        auth,
		Users:       handler.NewIdentityAdminHandler(identities[model.RoleUser], resp),
		Technicians: handler.NewIdentityAdminHandler(identities[model.RoleTechnician], resp),
		Bookings:    handler.NewBookingHandler(bookings, resp),
		Coupons:     handler.NewCouponHandler(coupons, resp),
		Catalog:     handler.NewCatalogHandler(catalog, resp),
		Work:        handler.NewTechnicianHandler(work, resp),
	}, router.Middlewares{
		RateLimit: middleware.NewTokenBucket(cfg.RateLimit, rdb, log),
		Cache:     middleware.NewRedisCache(cfg.Cache, rdb, log),
		Purge:     middleware.PurgeOnWrite(cfg.Cache, rdb, log),
	}, cfg.Auth)
	return e
}
