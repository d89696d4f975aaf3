// Package app_config holds the deployment configuration of the content
// factory. One YAML file describes schedules, editorial categories, provider
// credentials and file locations; secrets themselves stay in env vars, the
// config only names them.
package app_config

import (
	"io/ioutil"
	"log"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

type AppConfig struct {
	// Hour of day (in SCHEDULE_TIMEZONE) the daily pipeline fires.
	DAILY_PIPELINE_HOUR int `yaml:"DAILY_PIPELINE_HOUR"`
	// Hour of Monday the weekly strategic planner fires.
	WEEKLY_PLANNER_HOUR int `yaml:"WEEKLY_PLANNER_HOUR"`
	// IANA timezone name the schedule is evaluated in, e.g. "Europe/Moscow".
	SCHEDULE_TIMEZONE string `yaml:"SCHEDULE_TIMEZONE"`

	// Listen address of the operational HTTP server, e.g. ":8080".
	ADMIN_SERVER_ADDR string `yaml:"ADMIN_SERVER_ADDR"`
	// statsd endpoint for run metrics, empty disables reporting.
	STATSD_ADDR string `yaml:"STATSD_ADDR"`
	// Chat that receives operational alerts.
	TELEGRAM_ADMIN_CHAT_ID int64 `yaml:"TELEGRAM_ADMIN_CHAT_ID"`
	// Env var holding the bot token.
	TELEGRAM_BOT_TOKEN_ENV string `yaml:"TELEGRAM_BOT_TOKEN_ENV"`

	// Editorial categories news is classified into.
	CATEGORIES []string `yaml:"CATEGORIES"`
	// Ratio used before the strategist produces its first plan.
	DEFAULT_TARGET_TOPIC_RATIO map[string]float64 `yaml:"DEFAULT_TARGET_TOPIC_RATIO"`

	// News sources.
	RSS_FEED_URLS []string `yaml:"RSS_FEED_URLS"`

	// File locations shared between pipeline stages.
	TARGET_RATIO_PATH string `yaml:"TARGET_RATIO_PATH"`
	TOKEN_LIST_PATH   string `yaml:"TOKEN_LIST_PATH"`
	PROMPT_DIR        string `yaml:"PROMPT_DIR"`
	IMAGE_OUTPUT_DIR  string `yaml:"IMAGE_OUTPUT_DIR"`
	DIGEST_OUTPUT_DIR string `yaml:"DIGEST_OUTPUT_DIR"`

	// Env var names of provider API keys, in rotation order.
	GEMINI_API_KEY_ENVS []string `yaml:"GEMINI_API_KEY_ENVS"`
	GROK_API_KEY_ENVS   []string `yaml:"GROK_API_KEY_ENVS"`
	HF_API_KEY_ENVS     []string `yaml:"HF_API_KEY_ENVS"`

	// Provider models.
	GEMINI_MODEL           string   `yaml:"GEMINI_MODEL"`
	GEMINI_EMBEDDING_MODEL string   `yaml:"GEMINI_EMBEDDING_MODEL"`
	GROK_MODEL             string   `yaml:"GROK_MODEL"`
	GROK_BASE_URL          string   `yaml:"GROK_BASE_URL"`
	HF_IMAGE_MODELS        []string `yaml:"HF_IMAGE_MODELS"`

	// Per-attempt provider call timeout.
	AI_CALL_TIMEOUT_SECOND int64 `yaml:"AI_CALL_TIMEOUT_SECOND"`
}

func ParseAppConfig(path string) AppConfig {
	c := AppConfig{}
	yamlFile, err := ioutil.ReadFile(path)
	if err != nil {
		log.Fatal("yamlFile. get err: ", err.Error())
	}
	err = yaml.Unmarshal(yamlFile, &c)
	if err != nil {
		log.Fatal("Unmarshal: ", err)
	}
	return c
}

// Validate rejects configs that would make the pipeline misbehave in
// non-obvious ways later in the day.
func (c AppConfig) Validate() error {
	if c.DAILY_PIPELINE_HOUR < 0 || c.DAILY_PIPELINE_HOUR > 23 {
		return errors.Errorf("DAILY_PIPELINE_HOUR %d is not an hour of day", c.DAILY_PIPELINE_HOUR)
	}
	if c.WEEKLY_PLANNER_HOUR < 0 || c.WEEKLY_PLANNER_HOUR > 23 {
		return errors.Errorf("WEEKLY_PLANNER_HOUR %d is not an hour of day", c.WEEKLY_PLANNER_HOUR)
	}
	if len(c.CATEGORIES) == 0 {
		return errors.New("CATEGORIES must not be empty")
	}
	for category, share := range c.DEFAULT_TARGET_TOPIC_RATIO {
		if share < 0 {
			return errors.Errorf("DEFAULT_TARGET_TOPIC_RATIO[%s] is negative", category)
		}
	}
	if len(c.GEMINI_API_KEY_ENVS) == 0 {
		return errors.New("GEMINI_API_KEY_ENVS must name at least one env var")
	}
	if c.PROMPT_DIR == "" {
		return errors.New("PROMPT_DIR must be set")
	}
	return nil
}
