package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/trezcool/asm/apps/shared"
	"github.com/trezcool/asm/core"
	"github.com/trezcool/asm/core/report"
	"github.com/trezcool/asm/core/user"
	archivesvc "github.com/trezcool/asm/services/archive"
	logsvc "github.com/trezcool/asm/services/logger"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	// set up storage; migrations are left to the migrate command
	storage, err := shared.OpenStorage(conf, false /* migrate */)
	if err != nil {
		logger.Fatal(err.Error(), err)
	}

	validate, _ := shared.NewValidator()
	user.LoadCommonPasswords(logger)

	stores := storage.Stores()
	cli := commandLine{
		db:       storage.DB,
		validate: validate,
		usrSvc:   user.NewService(stores.Users),
		reports:  report.NewService(stores.Reports, nil, 0),
		archiver: func() (core.Archiver, error) {
			if conf.Archive.Bucket == "" {
				return archivesvc.NewFileArchiver(filepath.Join(conf.WorkDir, conf.Archive.Prefix)), nil
			}
			return archivesvc.NewS3Archiver(conf.Archive)
		},
		out: os.Stdout,
	}

	err = cli.run(os.Args)
	_ = storage.Close()
	if err != nil {
		if err != errHelp {
			logger.Error("\nerror: "+err.Error(), err)
		}
		logger.Close()
		os.Exit(1)
	}
}
