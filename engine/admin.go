package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type AdminConfig struct {
	Name string
	Addr string
}

// Admin is the small operational HTTP surface: health, last run report, and
// a manual trigger that feeds the same bus topic the scheduler uses.
type Admin struct {
	config   AdminConfig
	eventBus *gochannel.GoChannel
	runner   *Runner
}

func NewAdmin(config AdminConfig, e *gochannel.GoChannel, runner *Runner) *Admin {
	return &Admin{config: config, eventBus: e, runner: runner}
}

func (a *Admin) RunModule(ctx context.Context) error {
	router := gin.Default()
	router.Use(cors.Default())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/report", func(c *gin.Context) {
		report := a.runner.LastReport()
		if report == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no run yet"})
			return
		}
		c.JSON(http.StatusOK, report)
	})

	router.POST("/trigger/:job", func(c *gin.Context) {
		job := c.Param("job")
		if job != JobDaily && job != JobWeekly {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown job"})
			return
		}
		payload, err := json.Marshal(JobRequest{Job: job, FireTime: time.Now().Format(time.RFC3339)})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if err := a.eventBus.Publish(TopicPendingJob, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"job": job})
	})

	server := &http.Server{Addr: a.config.Addr, Handler: router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *Admin) Name() string {
	return a.config.Name
}
