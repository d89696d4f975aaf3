package model

import "time"

/*

DeliveryLog records one digest delivery attempt per user per day

PlannedCount vs ActualCount makes scarcity visible after the fact: under a
topic shortage a user receives fewer articles than planned and the gap is
recorded here rather than surfaced as an error.

*/
type DeliveryLog struct {
	Id           string `gorm:"primaryKey"`
	CreatedAt    time.Time
	DeliveryDate string `gorm:"index"`
	UserID       string
	PlannedCount int
	ActualCount  int
	Status       string
}
