package planner

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/neurocrypto/newsforge/ai"
	"github.com/neurocrypto/newsforge/model"
	"github.com/neurocrypto/newsforge/notify"
	"github.com/neurocrypto/newsforge/utils"
	Logger "github.com/neurocrypto/newsforge/utils/log"
	"github.com/pkg/errors"
)

// StrategicStore is the slice of persistence the weekly planner depends on.
type StrategicStore interface {
	PersonasByCode() (map[string]string, error)
	ReplaceWeeklyPlan(weekStart string, entries []model.WeeklyPlanEntry) error
}

// WeeklyPlanPayload is the JSON document the content-strategist prompt asks
// the model to produce: per-persona article counts per weekday, the category
// mix each persona should cover over the week, and the target category ratio
// the rebalancer steers toward.
type WeeklyPlanPayload struct {
	AuthorPlanByDay              map[string]map[string]int `json:"author_plan_by_day"`
	CategoryDistributionByAuthor map[string]map[string]int `json:"category_distribution_by_author"`
	TargetTopicRatio             map[string]float64        `json:"target_topic_ratio"`
}

var planDayKeys = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// StrategicPlanner runs once a week: it asks a text model for the plan,
// persists the detailed per-day cells and updates the rebalancer's target
// ratio file. A planner failure is never fatal, the previous week's plan
// keeps serving until a later run succeeds.
type StrategicPlanner struct {
	store     StrategicStore
	pool      *ai.CredentialPool
	newClient func(cred ai.Credential) ai.TextClient
	notifier  notify.Notifier
	prompt    string
	ratioPath string
}

func NewStrategicPlanner(
	s StrategicStore,
	pool *ai.CredentialPool,
	newClient func(cred ai.Credential) ai.TextClient,
	n notify.Notifier,
	prompt string,
	ratioPath string,
) *StrategicPlanner {
	return &StrategicPlanner{
		store:     s,
		pool:      pool,
		newClient: newClient,
		notifier:  n,
		prompt:    prompt,
		ratioPath: ratioPath,
	}
}

// ExpandWeeklyPlan turns the model's abstract plan into concrete plan cells.
// For each persona the weekly category mix is flattened into an ordered pool
// and dealt out across Mon..Sun according to the per-day article counts; a
// day that exhausts the pool simply gets fewer cells. Persona codes missing
// from the database are skipped with a warning.
func ExpandWeeklyPlan(payload WeeklyPlanPayload, personasByCode map[string]string, weekStart string) []model.WeeklyPlanEntry {
	entries := []model.WeeklyPlanEntry{}

	personaCodes := make([]string, 0, len(payload.AuthorPlanByDay))
	for code := range payload.AuthorPlanByDay {
		personaCodes = append(personaCodes, code)
	}
	sort.Strings(personaCodes)

	for _, code := range personaCodes {
		personaID, known := personasByCode[code]
		if !known {
			Logger.Log.Warnf("persona %s from the plan is not in the database, skipped", code)
			continue
		}

		categoryPool := []string{}
		for _, category := range sortedKeys(payload.CategoryDistributionByAuthor[code]) {
			for i := 0; i < payload.CategoryDistributionByAuthor[code][category]; i++ {
				categoryPool = append(categoryPool, category)
			}
		}

		dailyCounts := payload.AuthorPlanByDay[code]
		for _, day := range planDayKeys {
			take := dailyCounts[day]
			if take > len(categoryPool) {
				take = len(categoryPool)
			}
			if take <= 0 {
				continue
			}

			perCategory := map[string]int{}
			for _, category := range categoryPool[:take] {
				perCategory[category]++
			}
			categoryPool = categoryPool[take:]

			for _, category := range sortedKeys(perCategory) {
				entries = append(entries, model.WeeklyPlanEntry{
					WeekStart:   weekStart,
					DayOfWeek:   day,
					PersonaID:   personaID,
					Category:    category,
					TargetCount: perCategory[category],
				})
			}
		}
	}
	return entries
}

// Run executes one strategic planning pass for the week containing now.
func (p *StrategicPlanner) Run(ctx context.Context, now time.Time) error {
	payload, err := p.requestPlan(ctx)
	if err != nil {
		Logger.Log.Error("strategic plan request failed: ", err)
		p.alert("Strategic planner could not obtain a weekly plan from the model. The previous week's plan stays in effect.")
		return nil
	}

	if err := SaveTargetRatio(p.ratioPath, payload.TargetTopicRatio); err != nil {
		Logger.Log.Error("fail to persist target topic ratio: ", err)
	}

	personasByCode, err := p.store.PersonasByCode()
	if err != nil {
		return errors.Wrap(err, "fail to load personas")
	}

	weekStart := utils.DateKey(utils.WeekStart(now))
	entries := ExpandWeeklyPlan(payload, personasByCode, weekStart)
	if len(entries) == 0 {
		p.alert("Strategic planner produced an empty weekly plan, nothing was saved.")
		return nil
	}

	if err := p.store.ReplaceWeeklyPlan(weekStart, entries); err != nil {
		Logger.Log.Error("fail to save weekly plan: ", err)
		p.alert("Strategic planner could not save the weekly plan to the database.")
		return nil
	}

	Logger.Log.Infof("weekly plan for %s saved: %d cells", weekStart, len(entries))
	return nil
}

// requestPlan rotates over the credential pool until one call returns a
// payload with the fields the downstream consumers require.
func (p *StrategicPlanner) requestPlan(ctx context.Context) (WeeklyPlanPayload, error) {
	payload := WeeklyPlanPayload{}
	err := p.pool.Do(ctx, func(ctx context.Context, cred ai.Credential) error {
		raw, err := p.newClient(cred).Generate(ctx, ai.GenerateRequest{
			Prompt:      p.prompt,
			WantJSON:    true,
			Temperature: 0.9,
		})
		if err != nil {
			return err
		}

		candidate := WeeklyPlanPayload{}
		if err := json.Unmarshal([]byte(raw), &candidate); err != nil {
			return errors.Wrap(err, "fail to parse strategic plan")
		}
		if len(candidate.TargetTopicRatio) == 0 || len(candidate.CategoryDistributionByAuthor) == 0 {
			return errors.New("strategic plan misses target_topic_ratio or category_distribution_by_author")
		}
		payload = candidate
		return nil
	})
	return payload, err
}

func (p *StrategicPlanner) alert(message string) {
	if err := p.notifier.Notify(message); err != nil {
		Logger.Log.Error("fail to deliver planner alert: ", err)
	}
}

// SaveTargetRatio persists the category ratio the rebalancer steers toward.
func SaveTargetRatio(path string, ratio map[string]float64) error {
	data, err := json.MarshalIndent(ratio, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return ioutil.WriteFile(path, data, 0644)
}

// LoadTargetRatio reads the ratio last written by the strategic planner.
func LoadTargetRatio(path string) (map[string]float64, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "fail to read target ratio")
	}
	ratio := map[string]float64{}
	if err := json.Unmarshal(data, &ratio); err != nil {
		return nil, errors.Wrap(err, "fail to parse target ratio")
	}
	return ratio, nil
}
