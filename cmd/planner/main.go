// One-shot runner of the weekly strategic planning, used for manual reruns
// and local development.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/neurocrypto/newsforge/app"
	"github.com/neurocrypto/newsforge/app_config"
	"github.com/neurocrypto/newsforge/utils"
	"github.com/neurocrypto/newsforge/utils/dotenv"
	Logger "github.com/neurocrypto/newsforge/utils/log"
)

var (
	AppConfigPath *string
	AppConfig     app_config.AppConfig
)

func init() {
	AppConfigPath = flag.String("app_config_path", "cmd/scheduler/config.yaml", "path to app config")
	if err := dotenv.LoadDotEnvs(); err != nil {
		panic(err)
	}
}

func main() {
	AppConfig = app_config.ParseAppConfig(*AppConfigPath)
	if err := AppConfig.Validate(); err != nil {
		log.Fatal("invalid app config: ", err)
	}

	db, err := utils.GetDBConnection()
	if err != nil {
		log.Fatal("cannot connect to database: ", err)
	}
	utils.DatabaseSetupAndMigration(db)

	builder := app.NewBuilder(AppConfig, db, app.NewNotifier(AppConfig))
	weekly, err := builder.BuildWeeklyPlanner()
	if err != nil {
		log.Fatal("cannot build weekly planner: ", err)
	}

	if err := weekly.Run(context.Background(), time.Now()); err != nil {
		log.Fatal("weekly planning failed: ", err)
	}
	Logger.Log.Infoln("weekly planning finished")
}
