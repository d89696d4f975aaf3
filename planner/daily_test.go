package planner

import (
	"context"
	"testing"
	"time"

	"github.com/neurocrypto/newsforge/model"
	"github.com/neurocrypto/newsforge/notify"
	"github.com/neurocrypto/newsforge/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAllocatorStore keeps the whole topic pool in memory and mimics the
// status-guarded commit of the real store.
type fakeAllocatorStore struct {
	plan   store.DailyPlan
	subs   store.Subscriptions
	topics []*model.Topic

	assignCalls int
}

func (f *fakeAllocatorStore) WeeklyPlan(weekStart string, dayOfWeek string) (store.DailyPlan, error) {
	return f.plan, nil
}

func (f *fakeAllocatorStore) Subscriptions() (store.Subscriptions, error) {
	return f.subs, nil
}

func (f *fakeAllocatorStore) ReadyTopicsByCategory() (map[string][]model.Topic, error) {
	byCategory := map[string][]model.Topic{}
	for _, t := range f.topics {
		if t.Status == model.TopicStatusReadyForPlanning {
			byCategory[t.Category] = append(byCategory[t.Category], *t)
		}
	}
	return byCategory, nil
}

func (f *fakeAllocatorStore) AssignTopics(assignments []store.TopicAssignment) (int, error) {
	f.assignCalls++
	assigned := 0
	for _, a := range assignments {
		for _, t := range f.topics {
			if t.Id == a.TopicID && t.Status == model.TopicStatusReadyForPlanning {
				t.Status = model.TopicStatusPlannedForGeneration
				userID, personaID := a.UserID, a.PersonaID
				t.AssignedUserID = &userID
				t.AssignedPersonaID = &personaID
				assigned++
			}
		}
	}
	return assigned, nil
}

func readyTopic(id string, category string, createdAt time.Time) *model.Topic {
	return &model.Topic{
		Id:        id,
		Category:  category,
		Status:    model.TopicStatusReadyForPlanning,
		CreatedAt: createdAt,
	}
}

// Wednesday, fixed so the plan key is stable in tests.
var testNow = time.Date(2021, 12, 15, 9, 30, 0, 0, time.UTC)

func TestComputeDemand(t *testing.T) {
	plan := store.DailyPlan{
		"pA": {"defi": 2, "nft": 1},
		"pB": {"defi": 1},
		"pC": {"regulation": 3}, // no subscribers
	}
	subs := store.Subscriptions{
		"pA": {"u1", "u2"},
		"pB": {"u3"},
	}

	demand := ComputeDemand(plan, subs)
	assert.Equal(t, map[string]int{"defi": 5, "nft": 2}, demand)
}

func TestComputeDemandIgnoresZeroTargets(t *testing.T) {
	plan := store.DailyPlan{"pA": {"defi": 0}}
	subs := store.Subscriptions{"pA": {"u1"}}
	assert.Empty(t, ComputeDemand(plan, subs))
}

func TestBookTopicsFIFO(t *testing.T) {
	older := readyTopic("t-old", "defi", testNow.Add(-2*time.Hour))
	newer := readyTopic("t-new", "defi", testNow.Add(-1*time.Hour))

	booked, shortages := BookTopics(
		map[string]int{"defi": 1},
		map[string][]model.Topic{"defi": {*older, *newer}},
	)

	assert.Empty(t, shortages)
	require.Len(t, booked["defi"], 1)
	assert.Equal(t, "t-old", booked["defi"][0].Id)
}

func TestBookTopicsExactSupplyIsNotAShortage(t *testing.T) {
	booked, shortages := BookTopics(
		map[string]int{"defi": 2},
		map[string][]model.Topic{"defi": {
			*readyTopic("t1", "defi", testNow),
			*readyTopic("t2", "defi", testNow),
		}},
	)

	assert.Empty(t, shortages)
	assert.Len(t, booked["defi"], 2)
}

func TestBookTopicsShortageTakesEverything(t *testing.T) {
	booked, shortages := BookTopics(
		map[string]int{"defi": 4, "nft": 1},
		map[string][]model.Topic{
			"defi": {
				*readyTopic("t1", "defi", testNow),
				*readyTopic("t2", "defi", testNow),
				*readyTopic("t3", "defi", testNow),
			},
			// no nft topics at all
		},
	)

	require.Len(t, shortages, 2)
	assert.Equal(t, Shortage{Category: "defi", Needed: 4, Available: 3}, shortages[0])
	assert.Equal(t, Shortage{Category: "nft", Needed: 1, Available: 0}, shortages[1])
	assert.Len(t, booked["defi"], 3)
	assert.Empty(t, booked["nft"])
}

// The worked scenario: demand 4, supply 3 — u1 gets two topics, u2 gets the
// last one, nobody is backfilled.
func TestDistributeGracefulDegradation(t *testing.T) {
	plan := store.DailyPlan{"pA": {"defi": 2}}
	subs := store.Subscriptions{"pA": {"u1", "u2"}}
	booked := map[string][]model.Topic{"defi": {
		*readyTopic("t1", "defi", testNow.Add(-3 * time.Hour)),
		*readyTopic("t2", "defi", testNow.Add(-2 * time.Hour)),
		*readyTopic("t3", "defi", testNow.Add(-1 * time.Hour)),
	}}

	assignments := Distribute(plan, subs, booked)

	require.Len(t, assignments, 3)
	assert.Equal(t, store.TopicAssignment{TopicID: "t1", UserID: "u1", PersonaID: "pA"}, assignments[0])
	assert.Equal(t, store.TopicAssignment{TopicID: "t2", UserID: "u1", PersonaID: "pA"}, assignments[1])
	assert.Equal(t, store.TopicAssignment{TopicID: "t3", UserID: "u2", PersonaID: "pA"}, assignments[2])
}

func TestDistributeNeverAssignsATopicTwice(t *testing.T) {
	plan := store.DailyPlan{
		"pA": {"defi": 1},
		"pB": {"defi": 1},
	}
	subs := store.Subscriptions{
		"pA": {"u1", "u2"},
		"pB": {"u3"},
	}
	pool := []model.Topic{}
	for _, id := range []string{"t1", "t2", "t3", "t4", "t5"} {
		pool = append(pool, *readyTopic(id, "defi", testNow))
	}

	assignments := Distribute(plan, subs, map[string][]model.Topic{"defi": pool})

	seen := map[string]bool{}
	for _, a := range assignments {
		assert.Falsef(t, seen[a.TopicID], "topic %s assigned twice", a.TopicID)
		seen[a.TopicID] = true
	}
	assert.Len(t, assignments, 3)
}

func TestDistributeIsDeterministic(t *testing.T) {
	plan := store.DailyPlan{
		"pB": {"defi": 1},
		"pA": {"defi": 1},
	}
	subs := store.Subscriptions{
		"pB": {"u9"},
		"pA": {"u2", "u1"},
	}
	pool := []model.Topic{
		*readyTopic("t1", "defi", testNow),
		*readyTopic("t2", "defi", testNow),
		*readyTopic("t3", "defi", testNow),
	}

	first := Distribute(plan, subs, map[string][]model.Topic{"defi": pool})
	second := Distribute(plan, subs, map[string][]model.Topic{"defi": pool})
	assert.Equal(t, first, second)

	// Persona ids and user ids are walked in sorted order.
	require.Len(t, first, 3)
	assert.Equal(t, "u1", first[0].UserID)
	assert.Equal(t, "u2", first[1].UserID)
	assert.Equal(t, "u9", first[2].UserID)
}

func TestRunFullSupplyNoShortage(t *testing.T) {
	s := &fakeAllocatorStore{
		plan: store.DailyPlan{"pA": {"defi": 2}},
		subs: store.Subscriptions{"pA": {"u1", "u2"}},
		topics: []*model.Topic{
			readyTopic("t1", "defi", testNow.Add(-4*time.Hour)),
			readyTopic("t2", "defi", testNow.Add(-3*time.Hour)),
			readyTopic("t3", "defi", testNow.Add(-2*time.Hour)),
			readyTopic("t4", "defi", testNow.Add(-1*time.Hour)),
		},
	}
	n := notify.NewFakeNotifier()

	stats, err := NewDailyAllocator(s, n).Run(context.Background(), testNow)

	require.Nil(t, err)
	assert.Equal(t, 4, stats.Assigned)
	assert.Empty(t, stats.Shortages)
	assert.Empty(t, n.Messages)

	// Every subscriber received exactly the requested count.
	perUser := map[string]int{}
	for _, topic := range s.topics {
		require.Equal(t, model.TopicStatusPlannedForGeneration, topic.Status)
		perUser[*topic.AssignedUserID]++
	}
	assert.Equal(t, map[string]int{"u1": 2, "u2": 2}, perUser)
}

func TestRunShortageAlertsAndContinues(t *testing.T) {
	s := &fakeAllocatorStore{
		plan: store.DailyPlan{"pA": {"defi": 2}},
		subs: store.Subscriptions{"pA": {"u1", "u2"}},
		topics: []*model.Topic{
			readyTopic("t1", "defi", testNow.Add(-3*time.Hour)),
			readyTopic("t2", "defi", testNow.Add(-2*time.Hour)),
			readyTopic("t3", "defi", testNow.Add(-1*time.Hour)),
		},
	}
	n := notify.NewFakeNotifier()

	stats, err := NewDailyAllocator(s, n).Run(context.Background(), testNow)

	require.Nil(t, err)
	assert.Equal(t, 3, stats.Assigned)
	require.Len(t, stats.Shortages, 1)
	assert.Equal(t, Shortage{Category: "defi", Needed: 4, Available: 3}, stats.Shortages[0])

	// One aggregated alert per run.
	require.Len(t, n.Messages, 1)
	assert.Contains(t, n.Messages[0], "defi")
	assert.Contains(t, n.Messages[0], "needed 4")
}

func TestRunNotifierFailureNeverAborts(t *testing.T) {
	s := &fakeAllocatorStore{
		plan:   store.DailyPlan{"pA": {"defi": 1}},
		subs:   store.Subscriptions{"pA": {"u1"}},
		topics: []*model.Topic{},
	}
	n := notify.NewFakeNotifier()
	n.Err = assert.AnError

	stats, err := NewDailyAllocator(s, n).Run(context.Background(), testNow)
	require.Nil(t, err)
	assert.Equal(t, 0, stats.Assigned)
	require.Len(t, stats.Shortages, 1)
}

func TestRunEmptyPlanIsNoOp(t *testing.T) {
	s := &fakeAllocatorStore{
		plan:   store.DailyPlan{},
		subs:   store.Subscriptions{"pA": {"u1"}},
		topics: []*model.Topic{readyTopic("t1", "defi", testNow)},
	}
	n := notify.NewFakeNotifier()

	stats, err := NewDailyAllocator(s, n).Run(context.Background(), testNow)

	require.Nil(t, err)
	assert.Equal(t, 0, stats.Assigned)
	assert.Equal(t, 0, s.assignCalls)
	assert.Empty(t, n.Messages)
}

func TestRunEmptySubscriptionsIsNoOp(t *testing.T) {
	s := &fakeAllocatorStore{
		plan:   store.DailyPlan{"pA": {"defi": 2}},
		subs:   store.Subscriptions{},
		topics: []*model.Topic{readyTopic("t1", "defi", testNow)},
	}

	stats, err := NewDailyAllocator(s, notify.NewFakeNotifier()).Run(context.Background(), testNow)

	require.Nil(t, err)
	assert.Equal(t, 0, stats.Assigned)
	assert.Equal(t, 0, s.assignCalls)
	assert.Equal(t, model.TopicStatusReadyForPlanning, s.topics[0].Status)
}

func TestRunPlanWithoutMatchingSubscribersIsNoOp(t *testing.T) {
	s := &fakeAllocatorStore{
		plan:   store.DailyPlan{"pA": {"defi": 2}},
		subs:   store.Subscriptions{"pB": {"u1"}},
		topics: []*model.Topic{readyTopic("t1", "defi", testNow)},
	}

	stats, err := NewDailyAllocator(s, notify.NewFakeNotifier()).Run(context.Background(), testNow)
	require.Nil(t, err)
	assert.Equal(t, 0, s.assignCalls)
	assert.Equal(t, 0, stats.Assigned)
}

func TestRunNeverAssignsMoreThanReady(t *testing.T) {
	s := &fakeAllocatorStore{
		plan: store.DailyPlan{"pA": {"defi": 5, "nft": 2}},
		subs: store.Subscriptions{"pA": {"u1", "u2", "u3"}},
		topics: []*model.Topic{
			readyTopic("t1", "defi", testNow),
			readyTopic("t2", "nft", testNow),
		},
	}

	stats, err := NewDailyAllocator(s, notify.NewFakeNotifier()).Run(context.Background(), testNow)
	require.Nil(t, err)
	assert.Equal(t, 2, stats.Assigned)
}

// A second run on an unchanged store must not double-book: the pool is
// exhausted, so it books nothing and reports full scarcity.
func TestRunTwiceNeverDoubleAssigns(t *testing.T) {
	s := &fakeAllocatorStore{
		plan: store.DailyPlan{"pA": {"defi": 1}},
		subs: store.Subscriptions{"pA": {"u1"}},
		topics: []*model.Topic{
			readyTopic("t1", "defi", testNow),
		},
	}
	n := notify.NewFakeNotifier()
	allocator := NewDailyAllocator(s, n)

	first, err := allocator.Run(context.Background(), testNow)
	require.Nil(t, err)
	assert.Equal(t, 1, first.Assigned)
	assert.Equal(t, "u1", *s.topics[0].AssignedUserID)

	second, err := allocator.Run(context.Background(), testNow)
	require.Nil(t, err)
	assert.Equal(t, 0, second.Assigned)
	require.Len(t, second.Shortages, 1)
	assert.Equal(t, Shortage{Category: "defi", Needed: 1, Available: 0}, second.Shortages[0])

	// The original assignment is untouched.
	assert.Equal(t, "u1", *s.topics[0].AssignedUserID)
}
