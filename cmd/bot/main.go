// Standalone chat bot service, used when the bot should survive scheduler
// deploys. In the default deployment the bot runs inside the scheduler
// engine instead.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/neurocrypto/newsforge/app_config"
	"github.com/neurocrypto/newsforge/bot"
	"github.com/neurocrypto/newsforge/store"
	"github.com/neurocrypto/newsforge/utils"
	"github.com/neurocrypto/newsforge/utils/dotenv"
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

	db, err := utils.GetDBConnection()
	if err != nil {
		log.Fatal("cannot connect to database: ", err)
	}
	utils.DatabaseSetupAndMigration(db)

	chatBot, err := bot.NewBot(bot.Config{
		Name:  "bot",
		Token: os.Getenv(AppConfig.TELEGRAM_BOT_TOKEN_ENV),
	}, store.NewStore(db))
	if err != nil {
		log.Fatal("cannot start telegram bot: ", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		cancel()
	}()

	if err := chatBot.RunModule(ctx); err != nil {
		log.Fatal("bot stopped with error: ", err)
	}
}
