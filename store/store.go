// Package store is the only place that talks to the database. Every entity
// crosses this boundary as a typed record; no downstream code addresses
// rows by loosely-typed keys.
package store

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/neurocrypto/newsforge/model"
	Logger "github.com/neurocrypto/newsforge/utils/log"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DailyPlan maps persona id -> category -> target count for one day.
type DailyPlan map[string]map[string]int

// Subscriptions maps persona id -> subscriber user ids. User ids are always
// sorted ascending so allocation order is reproducible across runs.
type Subscriptions map[string][]string

// TopicAssignment is one (topic, user, persona) booking decided by the
// daily allocator.
type TopicAssignment struct {
	TopicID   string
	UserID    string
	PersonaID string
}

// GenerationTask is a planned topic joined with its persona, everything an
// article writer needs for one generation call.
type GenerationTask struct {
	TopicID      string
	Title        string
	SourceText   string
	UserID       string
	PersonaID    string
	PersonaCode  string
	ProviderName string
}

// ImageTask is a generated article still missing its illustration.
type ImageTask struct {
	ArticleID        string
	Title            string
	ImagePromptStyle string
}

// TokenTask is a generated article still missing its matched-token list.
type TokenTask struct {
	ArticleID string
	Content   string
}

// DeliveryArticle is one article joined with the metadata the packager
// needs.
type DeliveryArticle struct {
	ArticleID     string
	UserID        string
	Username      string
	Title         string
	Content       string
	Category      string
	ImagePath     *string
	MatchedTokens *string
}

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- weekly plan ---

// WeeklyPlan returns the plan cells of one day as {persona: {category: count}}.
func (s *Store) WeeklyPlan(weekStart string, dayOfWeek string) (DailyPlan, error) {
	var entries []model.WeeklyPlanEntry
	if err := s.db.Where("week_start = ? AND day_of_week = ?", weekStart, dayOfWeek).Find(&entries).Error; err != nil {
		return nil, errors.Wrap(err, "fail to load weekly plan")
	}

	plan := DailyPlan{}
	for _, e := range entries {
		if plan[e.PersonaID] == nil {
			plan[e.PersonaID] = map[string]int{}
		}
		plan[e.PersonaID][e.Category] = e.TargetCount
	}
	return plan, nil
}

// ReplaceWeeklyPlan supersedes the whole week atomically: delete all rows of
// the week-start key, then insert the new cells.
func (s *Store) ReplaceWeeklyPlan(weekStart string, entries []model.WeeklyPlanEntry) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("week_start = ?", weekStart).Delete(&model.WeeklyPlanEntry{}).Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		for i := range entries {
			if entries[i].Id == "" {
				entries[i].Id = uuid.New().String()
			}
			if entries[i].CreatedAt.IsZero() {
				entries[i].CreatedAt = time.Now()
			}
		}
		return tx.Create(&entries).Error
	})
}

// --- users and subscriptions ---

// Subscriptions returns {persona: [user ids]} for users that picked a
// persona, user ids sorted ascending.
func (s *Store) Subscriptions() (Subscriptions, error) {
	var users []model.User
	if err := s.db.Where("subscribed_persona_id IS NOT NULL").Find(&users).Error; err != nil {
		return nil, errors.Wrap(err, "fail to load subscriptions")
	}

	subs := Subscriptions{}
	for _, u := range users {
		subs[*u.SubscribedPersonaID] = append(subs[*u.SubscribedPersonaID], u.Id)
	}
	for persona := range subs {
		sort.Strings(subs[persona])
	}
	return subs, nil
}

// UpsertUser records first bot contact; an existing user keeps its
// subscription.
func (s *Store) UpsertUser(userID string, username string) error {
	user := model.User{Id: userID, Username: username, CreatedAt: time.Now()}
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&user).Error
}

func (s *Store) SetUserPersona(userID string, personaID string) error {
	return s.db.Model(&model.User{}).Where("id = ?", userID).
		Update("subscribed_persona_id", personaID).Error
}

// --- topics ---

// ReadyTopicsByCategory returns the available topic pool grouped by
// category, oldest first within each category (FIFO booking order).
func (s *Store) ReadyTopicsByCategory() (map[string][]model.Topic, error) {
	var topics []model.Topic
	if err := s.db.Where("status = ?", model.TopicStatusReadyForPlanning).
		Order("created_at ASC").Find(&topics).Error; err != nil {
		return nil, errors.Wrap(err, "fail to load ready topics")
	}

	byCategory := map[string][]model.Topic{}
	for _, t := range topics {
		byCategory[t.Category] = append(byCategory[t.Category], t)
	}
	return byCategory, nil
}

// AssignTopics commits the allocator's bookings as one transaction. Every
// update is guarded on the topic still being ready_for_planning, so a topic
// already booked by a concurrent or earlier run is skipped rather than
// double-assigned; skipped ids are logged. Returns the number of topics
// actually transitioned.
func (s *Store) AssignTopics(assignments []TopicAssignment) (int, error) {
	if len(assignments) == 0 {
		return 0, nil
	}

	assigned := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, a := range assignments {
			res := tx.Model(&model.Topic{}).
				Where("id = ? AND status = ?", a.TopicID, model.TopicStatusReadyForPlanning).
				Updates(map[string]interface{}{
					"status":              model.TopicStatusPlannedForGeneration,
					"assigned_user_id":    a.UserID,
					"assigned_persona_id": a.PersonaID,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				Logger.Log.Warnf("topic %s no longer available for planning, skipped", a.TopicID)
				continue
			}
			assigned++
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "fail to commit topic assignments")
	}
	return assigned, nil
}

// SaveTopics inserts rebalanced news as fresh topics.
func (s *Store) SaveTopics(topics []model.Topic) error {
	if len(topics) == 0 {
		return nil
	}
	for i := range topics {
		if topics[i].Id == "" {
			topics[i].Id = uuid.New().String()
		}
		if topics[i].CreatedAt.IsZero() {
			topics[i].CreatedAt = time.Now()
		}
	}
	return s.db.Create(&topics).Error
}

func (s *Store) TopicsByStatus(status string) ([]model.Topic, error) {
	var topics []model.Topic
	err := s.db.Where("status = ?", status).Order("created_at ASC").Find(&topics).Error
	return topics, err
}

// UpdateTopicTitle sets the formatted title and advances the topic to
// ready_for_planning in one update.
func (s *Store) UpdateTopicTitle(topicID string, title string) error {
	return s.db.Model(&model.Topic{}).Where("id = ?", topicID).
		Updates(map[string]interface{}{
			"title":  title,
			"status": model.TopicStatusReadyForPlanning,
		}).Error
}

func (s *Store) UpdateTopicStatus(topicID string, status string) error {
	return s.db.Model(&model.Topic{}).Where("id = ?", topicID).
		Update("status", status).Error
}

// --- generation ---

// GenerationTasks returns planned topics joined with their persona.
func (s *Store) GenerationTasks() ([]GenerationTask, error) {
	var tasks []GenerationTask
	err := s.db.Model(&model.Topic{}).
		Select(`topics.id AS topic_id,
			topics.title AS title,
			topics.source_text AS source_text,
			topics.assigned_user_id AS user_id,
			topics.assigned_persona_id AS persona_id,
			personas.code AS persona_code,
			personas.provider_name AS provider_name`).
		Joins("JOIN personas ON personas.id = topics.assigned_persona_id").
		Where("topics.status = ?", model.TopicStatusPlannedForGeneration).
		Scan(&tasks).Error
	if err != nil {
		return nil, errors.Wrap(err, "fail to load generation tasks")
	}
	return tasks, nil
}

func (s *Store) SaveGeneratedArticle(article *model.GeneratedArticle) error {
	if article.Id == "" {
		article.Id = uuid.New().String()
	}
	if article.CreatedAt.IsZero() {
		article.CreatedAt = time.Now()
	}
	return s.db.Create(article).Error
}

// ImageTasks returns articles that still miss an illustration, joined with
// the persona's current image style.
func (s *Store) ImageTasks() ([]ImageTask, error) {
	var tasks []ImageTask
	err := s.db.Model(&model.GeneratedArticle{}).
		Select(`generated_articles.id AS article_id,
			generated_articles.title AS title,
			personas.image_prompt_style AS image_prompt_style`).
		Joins("JOIN personas ON personas.id = generated_articles.persona_id").
		Where("generated_articles.image_path IS NULL").
		Scan(&tasks).Error
	return tasks, err
}

func (s *Store) UpdateArticleImage(articleID string, imagePath string) error {
	return s.db.Model(&model.GeneratedArticle{}).Where("id = ?", articleID).
		Update("image_path", imagePath).Error
}

func (s *Store) TokenTasks() ([]TokenTask, error) {
	var tasks []TokenTask
	err := s.db.Model(&model.GeneratedArticle{}).
		Select("id AS article_id, content AS content").
		Where("matched_tokens IS NULL").
		Scan(&tasks).Error
	return tasks, err
}

func (s *Store) UpdateArticleTokens(articleID string, tokensJSON string) error {
	return s.db.Model(&model.GeneratedArticle{}).Where("id = ?", articleID).
		Update("matched_tokens", tokensJSON).Error
}

// --- personas ---

func (s *Store) Personas() ([]model.Persona, error) {
	var personas []model.Persona
	err := s.db.Order("code ASC").Find(&personas).Error
	return personas, err
}

// PersonasByCode returns {code: persona id}, the mapping the strategic
// planner uses to resolve AI plan payloads.
func (s *Store) PersonasByCode() (map[string]string, error) {
	personas, err := s.Personas()
	if err != nil {
		return nil, err
	}
	byCode := map[string]string{}
	for _, p := range personas {
		byCode[p.Code] = p.Id
	}
	return byCode, nil
}

// PersonaByID returns one persona, gorm.ErrRecordNotFound if the id is
// unknown.
func (s *Store) PersonaByID(personaID string) (model.Persona, error) {
	var persona model.Persona
	err := s.db.Where("id = ?", personaID).First(&persona).Error
	return persona, err
}

// PersonaWeekPlan sums one persona's plan cells over a week as
// {category: total count}.
func (s *Store) PersonaWeekPlan(personaID string, weekStart string) (map[string]int, error) {
	var entries []model.WeeklyPlanEntry
	if err := s.db.Where("persona_id = ? AND week_start = ?", personaID, weekStart).Find(&entries).Error; err != nil {
		return nil, errors.Wrap(err, "fail to load persona week plan")
	}
	totals := map[string]int{}
	for _, e := range entries {
		totals[e.Category] += e.TargetCount
	}
	return totals, nil
}

func (s *Store) UpdatePersonaImageStyle(personaID string, style string) error {
	return s.db.Model(&model.Persona{}).Where("id = ?", personaID).
		Update("image_prompt_style", style).Error
}

// SeedPersonas inserts the predefined personas, skipping codes that already
// exist.
func (s *Store) SeedPersonas(personas []model.Persona) (int, error) {
	created := 0
	for i := range personas {
		if personas[i].Id == "" {
			personas[i].Id = uuid.New().String()
		}
		res := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&personas[i])
		if res.Error != nil {
			return created, res.Error
		}
		created += int(res.RowsAffected)
	}
	return created, nil
}

// --- source article ledger ---

// ExistingSourceArticleIDs returns the set of upstream ids already ingested.
func (s *Store) ExistingSourceArticleIDs() (map[string]bool, error) {
	var ids []string
	if err := s.db.Model(&model.SourceArticle{}).Pluck("external_id", &ids).Error; err != nil {
		return nil, err
	}
	existing := map[string]bool{}
	for _, id := range ids {
		existing[id] = true
	}
	return existing, nil
}

// SaveSourceArticles appends to the dedup ledger, ignoring conflicts on the
// upstream id. Returns the number of genuinely new rows.
func (s *Store) SaveSourceArticles(articles []model.SourceArticle) (int, error) {
	saved := 0
	for i := range articles {
		if articles[i].Id == "" {
			articles[i].Id = uuid.New().String()
		}
		res := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&articles[i])
		if res.Error != nil {
			return saved, res.Error
		}
		saved += int(res.RowsAffected)
	}
	return saved, nil
}

// RecentSourceTitles returns the latest upstream titles of a category,
// newest first, used as few-shot examples by the title formatter.
func (s *Store) RecentSourceTitles(categoryID string, limit int) ([]string, error) {
	var titles []string
	err := s.db.Model(&model.SourceArticle{}).
		Where("category_id = ?", categoryID).
		Order("created_at DESC").Limit(limit).
		Pluck("title", &titles).Error
	return titles, err
}

// --- delivery ---

// ArticlesForDelivery returns today's finished articles grouped per user.
func (s *Store) ArticlesForDelivery(since time.Time) (map[string][]DeliveryArticle, error) {
	var rows []DeliveryArticle
	err := s.db.Model(&model.GeneratedArticle{}).
		Select(`generated_articles.id AS article_id,
			generated_articles.user_id AS user_id,
			users.username AS username,
			generated_articles.title AS title,
			generated_articles.content AS content,
			topics.category AS category,
			generated_articles.image_path AS image_path,
			generated_articles.matched_tokens AS matched_tokens`).
		Joins("JOIN topics ON topics.id = generated_articles.topic_id").
		Joins("JOIN users ON users.id = generated_articles.user_id").
		Where("generated_articles.created_at >= ?", since).
		Order("generated_articles.user_id, generated_articles.created_at").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "fail to load articles for delivery")
	}

	byUser := map[string][]DeliveryArticle{}
	for _, r := range rows {
		byUser[r.UserID] = append(byUser[r.UserID], r)
	}
	return byUser, nil
}

func (s *Store) LogDelivery(entry model.DeliveryLog) error {
	if entry.Id == "" {
		entry.Id = uuid.New().String()
	}
	return s.db.Create(&entry).Error
}
