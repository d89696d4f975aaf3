// One-shot runner of the daily content cycle, used for manual reruns and
// local development. The scheduler service is the production entry point.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/neurocrypto/newsforge/app"
	"github.com/neurocrypto/newsforge/app_config"
	"github.com/neurocrypto/newsforge/bot"
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

	notifier := app.NewNotifier(AppConfig)
	builder := app.NewBuilder(AppConfig, db, notifier)

	chatBot, err := bot.NewBot(bot.Config{
		Name:  "bot",
		Token: os.Getenv(AppConfig.TELEGRAM_BOT_TOKEN_ENV),
	}, builder.Store())
	if err != nil {
		log.Fatal("cannot start telegram bot: ", err)
	}

	daily, err := builder.BuildDailyPipeline(chatBot)
	if err != nil {
		log.Fatal("cannot build daily pipeline: ", err)
	}

	report := daily.Run(context.Background())
	Logger.Log.Infof("daily cycle finished in %s, warnings: %v", report.Duration, report.Warnings())
	if report.Aborted {
		os.Exit(1)
	}
}
