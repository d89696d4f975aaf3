package model

import "time"

// Topic status state machine. Transitions are one-directional; the *_failed
// statuses are terminal for the run that produced them and are only reset by
// an operator.
const (
	TopicStatusNeedsTitle           = "needs_title"
	TopicStatusReadyForPlanning     = "ready_for_planning"
	TopicStatusPlannedForGeneration = "planned_for_generation"
	TopicStatusArticleGenerated     = "article_generated"

	TopicStatusTitleFailed   = "title_generation_failed"
	TopicStatusArticleFailed = "article_generation_failed"
)

/*

Topic is a candidate news-derived content unit

Topics are created by the rebalancing stage with status "needs_title" and
progress through the state machine above. A topic is never physically
deleted; failures are recorded in Status.

Id: primary key, use to identify a topic
CreatedAt: creation time, also the FIFO booking order within a category
UpdatedAt: time of the last status transition
Title: formatted title, nil until the title formatter has run
Category: editorial category assigned by the rebalancer
Status: current state machine position
SourceText: the news summary this topic was derived from
AssignedUserID:
AssignedPersonaID: set exactly once by the daily allocator and read-only
	afterward. Both nil before allocation.

*/
type Topic struct {
	Id                string `gorm:"primaryKey"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Title             *string
	Category          string `gorm:"index"`
	Status            string `gorm:"index"`
	SourceText        string
	AssignedUserID    *string
	AssignedPersonaID *string
}
