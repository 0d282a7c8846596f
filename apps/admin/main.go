package main

import (
	"context"
	"database/sql"
	"log"
	"os"

	"github.com/trezcool/matokeo/core"
	"github.com/trezcool/matokeo/core/assessment"
	"github.com/trezcool/matokeo/core/report"
	"github.com/trezcool/matokeo/core/school"
	"github.com/trezcool/matokeo/core/user"
	appfs "github.com/trezcool/matokeo/fs"
	emailsvc "github.com/trezcool/matokeo/services/email"
	logsvc "github.com/trezcool/matokeo/services/logger"
	"github.com/trezcool/matokeo/storage/cache"
	"github.com/trezcool/matokeo/storage/database"
	inmemdb "github.com/trezcool/matokeo/storage/database/inmem"
	pgrepos "github.com/trezcool/matokeo/storage/database/postgres"
)

func main() {
	os.Exit(run())
}

func run() int {
	stdLogger := log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(conf.RollbarToken != "" && !conf.Debug)
	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf, logger)

	var (
		sqlDB       *sql.DB
		users       user.Repository
		schools     school.Repository
		assessments assessment.Repository
	)
	if conf.Database.Engine == "memory" {
		mem := inmemdb.Open()
		users = inmemdb.NewUserRepository(mem)
		schools = inmemdb.NewSchoolRepository(mem)
		assessments = inmemdb.NewAssessmentRepository(mem)
	} else {
		db, err := database.Open(context.Background(), conf)
		if err != nil {
			stdLogger.Printf("error: %v", err)
			return 1
		}
		defer func() { _ = db.Close() }()
		sqlDB = db.DB
		users = pgrepos.NewUserRepository(db)
		schools = pgrepos.NewSchoolRepository(db)
		assessments = pgrepos.NewAssessmentRepository(db)
	}

	appCache, err := cache.New(conf)
	if err != nil {
		stdLogger.Printf("error: %v", err)
		return 1
	}

	validate, translator := core.NewValidator()
	user.RegisterValidators(validate, translator)
	assessment.RegisterValidators(validate, translator)

	mailSvc := emailsvc.NewService(conf, logger)
	schoolSvc := school.NewService(schools, users, appCache, conf)
	assessmentSvc := assessment.NewService(assessments, schoolSvc, users)

	cl := commandLine{
		db:           sqlDB,
		users:        user.NewService(users, mailSvc, conf),
		reports:      report.NewService(assessmentSvc, schoolSvc, users, mailSvc, conf),
		cache:        appCache,
		cacheBackend: conf.Cache.Backend,
		validate:     validate,
		translator:   translator,
		out:          os.Stdout,
	}
	if err := cl.run(os.Args); err != nil {
		if err != errHelp {
			stdLogger.Printf("error: %v", err)
		}
		return 1
	}
	return 0
}
