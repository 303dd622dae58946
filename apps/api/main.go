package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	echoapi "github.com/trezcool/asm/apps/api/echo"
	"github.com/trezcool/asm/apps/shared"
	"github.com/trezcool/asm/core"
	"github.com/trezcool/asm/core/attendance"
	"github.com/trezcool/asm/core/course"
	"github.com/trezcool/asm/core/enrollment"
	"github.com/trezcool/asm/core/report"
	"github.com/trezcool/asm/core/user"
	archivesvc "github.com/trezcool/asm/services/archive"
	cachesvc "github.com/trezcool/asm/services/cache"
	emailsvc "github.com/trezcool/asm/services/email"
	logsvc "github.com/trezcool/asm/services/logger"
	schedulersvc "github.com/trezcool/asm/services/scheduler"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up storage
	storage, err := shared.OpenStorage(conf, true /* migrate */)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}
	defer func() {
		if err = storage.Close(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()
	stores := storage.Stores()

	// set up services
	var cache core.Cache = cachesvc.NoopCache{}
	if conf.Cache.RedisURL != "" {
		redisCache, err := cachesvc.NewRedisCache(context.Background(), conf.Cache.RedisURL, conf.AppName)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up cache: %v", err), err)
		}
		defer redisCache.Close()
		cache = redisCache
	}

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	usrSvc := user.NewService(stores.Users)
	crsSvc := course.NewService(stores.Courses)
	enrollments := enrollment.NewManager(stores.Enrollments, conf.RetryPolicy())
	attendances := attendance.NewManager(stores.Attendances, conf.RetryPolicy())
	reports := report.NewService(stores.Reports, cache, conf.Cache.TTL)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q, storage %q", conf.Build, conf.Database.Backend))
	defer logger.Info("Application stopped")

	validate, translator := shared.NewValidator()

	core.ParseEmailTemplates(logger)

	user.LoadCommonPasswords(logger)

	// =========================================================================
	// Start Scheduler

	if conf.Scheduler.Enabled {
		deps := schedulersvc.Deps{
			Reports: reports,
			Users:   usrSvc,
			Mailer:  mailSvc,
			Logger:  logger,
		}
		if conf.Archive.Bucket != "" {
			archiver, err := archivesvc.NewS3Archiver(conf.Archive)
			if err != nil {
				logger.Fatal(fmt.Sprintf("setting up archive: %v", err), err)
			}
			deps.Archiver = archiver
		}

		scheduler, err := schedulersvc.New(conf.Scheduler, deps)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up scheduler: %v", err), err)
		}
		if err = scheduler.Start(); err != nil {
			logger.Fatal(fmt.Sprintf("starting scheduler: %v", err), err)
		}
		defer scheduler.Stop()
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("storage").Set(conf.Database.Backend)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:        conf,
			Logger:      logger,
			Validate:    validate,
			Translator:  translator,
			UserSvc:     usrSvc,
			CourseSvc:   crsSvc,
			Enrollments: enrollments,
			Attendances: attendances,
			Reports:     reports,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
