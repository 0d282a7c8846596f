package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/matokeo/apps/api/echo"
	"github.com/trezcool/matokeo/core"
	"github.com/trezcool/matokeo/core/assessment"
	"github.com/trezcool/matokeo/core/report"
	"github.com/trezcool/matokeo/core/school"
	"github.com/trezcool/matokeo/core/user"
	emailsvc "github.com/trezcool/matokeo/services/email"
	logsvc "github.com/trezcool/matokeo/services/logger"
	"github.com/trezcool/matokeo/storage/cache"
	"github.com/trezcool/matokeo/storage/database"
	inmemdb "github.com/trezcool/matokeo/storage/database/inmem"
	pgrepos "github.com/trezcool/matokeo/storage/database/postgres"
)

const engineMemory = "memory"

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type Repositories struct {
	dig.Out
	Users       user.Repository
	Schools     school.Repository
	Assessments assessment.Repository
}

type ServerParams struct {
	dig.In
	Conf          *core.Config
	Logger        core.Logger
	Validate      *validator.Validate
	Translator    ut.Translator
	Metrics       *echoapi.Metrics
	UserSvc       *user.Service
	SchoolSvc     *school.Service
	AssessmentSvc *assessment.Service
	ReportSvc     *report.Service
}

func newRollbarLogger(conf *core.Config, prefix string, flags int) core.Logger {
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, prefix, flags), conf)
	logger.Enable(conf.RollbarToken != "" && !conf.Debug)
	return logger
}

func newLogger(conf *core.Config) core.Logger {
	return newRollbarLogger(conf, "API : ", log.LstdFlags)
}

func newDBLogger(conf *core.Config) core.Logger {
	return newRollbarLogger(conf, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
}

// newDB creates, opens and migrates the postgres database. It returns nil with the in-memory engine.
func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	if conf.Database.Engine == engineMemory {
		loggerParam.Logger.Info("using the in-memory database, data will not survive a restart")
		return nil
	}

	setUp := func() (*sqlx.DB, error) {
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, err
		}

		db, err := database.Open(ctx, conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(ctx, db.DB, "up"); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newRepositories(conf *core.Config, db *sqlx.DB) Repositories {
	if conf.Database.Engine == engineMemory {
		mem := inmemdb.Open()
		return Repositories{
			Users:       inmemdb.NewUserRepository(mem),
			Schools:     inmemdb.NewSchoolRepository(mem),
			Assessments: inmemdb.NewAssessmentRepository(mem),
		}
	}
	return Repositories{
		Users:       pgrepos.NewUserRepository(db),
		Schools:     pgrepos.NewSchoolRepository(db),
		Assessments: pgrepos.NewAssessmentRepository(db),
	}
}

func newCache(conf *core.Config, logger core.Logger) *core.Cache {
	c, err := cache.New(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up cache: %v", err), err)
	}
	return c
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewService(conf, logger)
}

func newValidator() (*validator.Validate, ut.Translator) {
	validate, translator := core.NewValidator()
	user.RegisterValidators(validate, translator)
	assessment.RegisterValidators(validate, translator)
	return validate, translator
}

func newMetrics() *echoapi.Metrics {
	return echoapi.NewMetrics(prometheus.DefaultRegisterer)
}

func newServer(p ServerParams) *echoapi.Server {
	return echoapi.NewServer(&echoapi.Deps{
		Conf:          p.Conf,
		Logger:        p.Logger,
		Validate:      p.Validate,
		Translator:    p.Translator,
		Metrics:       p.Metrics,
		UserSvc:       p.UserSvc,
		SchoolSvc:     p.SchoolSvc,
		AssessmentSvc: p.AssessmentSvc,
		ReportSvc:     p.ReportSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newRepositories))
	must(c.Provide(newCache))
	must(c.Provide(newEmailService))
	must(c.Provide(newValidator))
	must(c.Provide(user.NewService))
	must(c.Provide(school.NewService))
	must(c.Provide(assessment.NewService))
	must(c.Provide(report.NewService))
	must(c.Provide(newMetrics))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
