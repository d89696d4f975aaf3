// Package planner holds the scheduling core: the weekly strategic planner
// that produces the plan, and the daily allocator that turns the plan into
// concrete per-user topic assignments.
package planner

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/neurocrypto/newsforge/model"
	"github.com/neurocrypto/newsforge/notify"
	"github.com/neurocrypto/newsforge/store"
	"github.com/neurocrypto/newsforge/utils"
	Logger "github.com/neurocrypto/newsforge/utils/log"
	"github.com/pkg/errors"
)

// Store is the slice of persistence the daily allocator depends on.
type Store interface {
	WeeklyPlan(weekStart string, dayOfWeek string) (store.DailyPlan, error)
	Subscriptions() (store.Subscriptions, error)
	ReadyTopicsByCategory() (map[string][]model.Topic, error)
	AssignTopics(assignments []store.TopicAssignment) (int, error)
}

// Shortage records one category where demand exceeded the available topic
// pool. Shortages are aggregated and reported once per run.
type Shortage struct {
	Category  string
	Needed    int
	Available int
}

// DailyStats summarizes one allocator run for reporting.
type DailyStats struct {
	Demand    map[string]int
	Shortages []Shortage
	Planned   int
	Assigned  int
}

// DailyAllocator converts the abstract weekly plan into concrete per-user
// topic assignments for one day, respecting scarcity.
type DailyAllocator struct {
	store    Store
	notifier notify.Notifier
}

func NewDailyAllocator(s Store, n notify.Notifier) *DailyAllocator {
	return &DailyAllocator{store: s, notifier: n}
}

// ComputeDemand aggregates the total topic demand per category: each
// persona's per-category target multiplied by its subscriber count.
// Personas without subscribers contribute nothing.
func ComputeDemand(plan store.DailyPlan, subs store.Subscriptions) map[string]int {
	demand := map[string]int{}
	for personaID, userIDs := range subs {
		if len(userIDs) == 0 {
			continue
		}
		for category, count := range plan[personaID] {
			if count <= 0 {
				continue
			}
			demand[category] += count * len(userIDs)
		}
	}
	return demand
}

// BookTopics reserves topics against demand. A category with enough supply
// yields exactly the demanded count, oldest first; a category short on
// supply yields everything it has plus a Shortage record. Demand exactly
// equal to availability books everything with no shortage.
func BookTopics(demand map[string]int, available map[string][]model.Topic) (map[string][]model.Topic, []Shortage) {
	booked := map[string][]model.Topic{}
	shortages := []Shortage{}

	for _, category := range sortedKeys(demand) {
		needed := demand[category]
		pool := available[category]
		if len(pool) < needed {
			shortages = append(shortages, Shortage{Category: category, Needed: needed, Available: len(pool)})
			booked[category] = pool
			continue
		}
		booked[category] = pool[:needed]
	}
	return booked, shortages
}

// Distribute hands the booked topics out to (user, persona) pairs. A shared
// per-category cursor guarantees a topic is never given out twice; when the
// booked list runs dry under a shortage the remaining users simply receive
// fewer or zero topics, with no backfill and no reordering. Personas, their
// users and their categories are iterated in sorted order so the outcome is
// reproducible.
func Distribute(plan store.DailyPlan, subs store.Subscriptions, booked map[string][]model.Topic) []store.TopicAssignment {
	assignments := []store.TopicAssignment{}
	cursors := map[string]int{}

	for _, personaID := range sortedSubKeys(subs) {
		personaPlan := plan[personaID]
		if len(personaPlan) == 0 {
			continue
		}

		userIDs := append([]string{}, subs[personaID]...)
		sort.Strings(userIDs)

		for _, userID := range userIDs {
			for _, category := range sortedKeys(personaPlan) {
				count := personaPlan[category]
				pool := booked[category]

				start := cursors[category]
				end := start + count
				if end > len(pool) {
					end = len(pool)
				}
				if start >= end {
					continue
				}

				for _, topic := range pool[start:end] {
					assignments = append(assignments, store.TopicAssignment{
						TopicID:   topic.Id,
						UserID:    userID,
						PersonaID: personaID,
					})
				}
				cursors[category] = end
			}
		}
	}
	return assignments
}

// Run executes one allocation pass for the calendar date of now. An empty
// plan or empty subscriptions is a no-op success; a shortage degrades to
// partial fulfillment plus an admin alert and never aborts the run.
func (a *DailyAllocator) Run(ctx context.Context, now time.Time) (DailyStats, error) {
	stats := DailyStats{}

	weekStart := utils.DateKey(utils.WeekStart(now))
	dayOfWeek := utils.DayKey(now)

	plan, err := a.store.WeeklyPlan(weekStart, dayOfWeek)
	if err != nil {
		return stats, err
	}
	if len(plan) == 0 {
		Logger.Log.Infof("no plan for %s (%s), nothing to allocate", dayOfWeek, weekStart)
		return stats, nil
	}

	subs, err := a.store.Subscriptions()
	if err != nil {
		return stats, err
	}
	if len(subs) == 0 {
		Logger.Log.Info("no active subscriptions, nothing to allocate")
		return stats, nil
	}

	stats.Demand = ComputeDemand(plan, subs)
	if len(stats.Demand) == 0 {
		Logger.Log.Info("today's plan touches no active subscriber")
		return stats, nil
	}

	available, err := a.store.ReadyTopicsByCategory()
	if err != nil {
		return stats, err
	}

	booked, shortages := BookTopics(stats.Demand, available)
	stats.Shortages = shortages
	if len(shortages) > 0 {
		a.alertShortages(shortages)
	}

	assignments := Distribute(plan, subs, booked)
	stats.Planned = len(assignments)

	assigned, err := a.store.AssignTopics(assignments)
	if err != nil {
		return stats, errors.Wrap(err, "fail to commit assignments")
	}
	stats.Assigned = assigned

	Logger.Log.Infof("daily allocation done: %d topics assigned, %d shortages", assigned, len(shortages))
	return stats, nil
}

// alertShortages sends one aggregated admin alert. A failing notifier is
// logged and ignored, it must never abort the run.
func (a *DailyAllocator) alertShortages(shortages []Shortage) {
	lines := []string{"Topic shortage in daily allocation:"}
	for _, s := range shortages {
		lines = append(lines, fmt.Sprintf("- %s: needed %d, available %d", s.Category, s.Needed, s.Available))
	}
	if err := a.notifier.Notify(strings.Join(lines, "\n")); err != nil {
		Logger.Log.Error("fail to deliver shortage alert: ", err)
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedSubKeys(subs store.Subscriptions) []string {
	keys := make([]string, 0, len(subs))
	for k := range subs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
