package main

import (
	"fmt"
	"log"
	"os"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/user"
	"github.com/trezcool/smartbill/fs"
	"github.com/trezcool/smartbill/services/logger"
	"github.com/trezcool/smartbill/storage/database"
	"github.com/trezcool/smartbill/storage/database/sqlboiler"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)

	user.LoadCommonPasswords(appfs.FS, logger)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	// start CLI
	cli := commandLine{
		db:       db,
		usrRepo:  boiledrepos.NewUserRepository(db),
		billRepo: boiledrepos.NewBillRepository(db),
		out:      os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	logger.Close()
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
