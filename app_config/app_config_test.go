package app_config

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
DAILY_PIPELINE_HOUR: 9
WEEKLY_PLANNER_HOUR: 7
SCHEDULE_TIMEZONE: "Europe/Moscow"
ADMIN_SERVER_ADDR: ":8080"
CATEGORIES:
  - "bitcoin"
  - "defi"
DEFAULT_TARGET_TOPIC_RATIO:
  bitcoin: 0.6
  defi: 0.4
GEMINI_API_KEY_ENVS:
  - "GEMINI_API_KEY"
  - "GEMINI_API_KEY_2"
PROMPT_DIR: "prompts"
AI_CALL_TIMEOUT_SECOND: 120
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "newsforge.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseAppConfig(t *testing.T) {
	c := ParseAppConfig(writeConfig(t, sampleConfig))

	assert.Equal(t, 9, c.DAILY_PIPELINE_HOUR)
	assert.Equal(t, "Europe/Moscow", c.SCHEDULE_TIMEZONE)
	assert.Equal(t, []string{"bitcoin", "defi"}, c.CATEGORIES)
	assert.Equal(t, 0.6, c.DEFAULT_TARGET_TOPIC_RATIO["bitcoin"])
	assert.Equal(t, []string{"GEMINI_API_KEY", "GEMINI_API_KEY_2"}, c.GEMINI_API_KEY_ENVS)
	assert.NoError(t, c.Validate())
}

func TestValidateRejectsBadHour(t *testing.T) {
	c := ParseAppConfig(writeConfig(t, sampleConfig))
	c.DAILY_PIPELINE_HOUR = 25
	assert.Error(t, c.Validate())
}

func TestValidateRejectsEmptyCategories(t *testing.T) {
	c := ParseAppConfig(writeConfig(t, sampleConfig))
	c.CATEGORIES = nil
	assert.Error(t, c.Validate())
}

func TestValidateRejectsNegativeRatio(t *testing.T) {
	c := ParseAppConfig(writeConfig(t, sampleConfig))
	c.DEFAULT_TARGET_TOPIC_RATIO["defi"] = -0.1
	assert.Error(t, c.Validate())
}

func TestValidateRequiresCredentialEnvNames(t *testing.T) {
	c := ParseAppConfig(writeConfig(t, sampleConfig))
	c.GEMINI_API_KEY_ENVS = nil
	assert.Error(t, c.Validate())
}
