package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/neurocrypto/newsforge/app"
	"github.com/neurocrypto/newsforge/app_config"
	"github.com/neurocrypto/newsforge/bot"
	"github.com/neurocrypto/newsforge/engine"
	"github.com/neurocrypto/newsforge/utils"
	"github.com/neurocrypto/newsforge/utils/dotenv"
)

var (
	AppConfigPath *string
	// Configuration to customize binary startup.
	AppConfig app_config.AppConfig
)

// A claimed run date expires on its own after this long.
const runLockTTL = 20 * time.Hour

// init() will always be called on before the execution of main function.
func init() {
	AppConfigPath = flag.String("app_config_path", "cmd/scheduler/config.yaml", "path to app config")
	if err := dotenv.LoadDotEnvs(); err != nil {
		panic(err)
	}
}

func NewDogStatsdClient(addr string) statsd.ClientInterface {
	if addr == "" {
		return &statsd.NoOpClient{}
	}
	client, err := statsd.New(addr)
	if err != nil {
		panic(err)
	}
	return client
}

func main() {
	AppConfig = app_config.ParseAppConfig(*AppConfigPath)
	if err := AppConfig.Validate(); err != nil {
		log.Fatal("invalid app config: ", err)
	}

	location, err := time.LoadLocation(AppConfig.SCHEDULE_TIMEZONE)
	if err != nil {
		log.Fatal("invalid schedule timezone: ", err)
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
	weekly, err := builder.BuildWeeklyPlanner()
	if err != nil {
		log.Fatal("cannot build weekly planner: ", err)
	}

	runLock, err := utils.GetRunLock(runLockTTL)
	if err != nil {
		log.Fatal("cannot connect to redis: ", err)
	}

	eventbus := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            100,
			BlockPublishUntilSubscriberAck: false,
		},
		watermill.NewStdLogger(false, false),
	)
	ctx, cancel := context.WithCancel(context.Background())

	runner := engine.NewRunner(engine.RunnerConfig{Name: "runner"}, eventbus, runLock, daily, weekly)

	// Initialize all engine modules here.
	modules := []engine.Module{
		// Scheduler publishes a pending job at each fire point.
		engine.NewScheduler(engine.SchedulerConfig{
			Name:       "scheduler",
			DailyHour:  AppConfig.DAILY_PIPELINE_HOUR,
			WeeklyHour: AppConfig.WEEKLY_PLANNER_HOUR,
			Location:   location,
		}, eventbus),
		// Runner claims the date and executes the job.
		runner,
		// Reporter forwards run metrics to statsd for monitoring purpose.
		engine.NewReporter(engine.ReporterConfig{Name: "reporter"}, NewDogStatsdClient(AppConfig.STATSD_ADDR), eventbus),
		// Admin exposes health, the last report and a manual trigger.
		engine.NewAdmin(engine.AdminConfig{Name: "admin", Addr: AppConfig.ADMIN_SERVER_ADDR}, eventbus, runner),
		// The subscriber-facing chat bot.
		chatBot,
	}

	e := engine.NewEngine(modules, ctx, cancel, eventbus)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		e.Shutdown()
	}()

	// blocking call.
	e.Run()

	log.Println("engine stopped execution.")
}
