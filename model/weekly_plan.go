package model

import "time"

/*

WeeklyPlanEntry is one cell of the strategist's weekly content plan

The strategic planner produces, once per week, a target article count for
every (day, persona, category) combination. Entries of a week are
superseded as a whole: the planner deletes all rows of the week-start key
and reinserts.

Id: primary key
WeekStart: Monday of the planned week, formatted 2006-01-02
DayOfWeek: three letter day key, "Mon" ... "Sun"
PersonaID: persona this target belongs to
Category: editorial category
TargetCount: number of articles each subscriber of the persona should
	receive in this category on this day

*/
type WeeklyPlanEntry struct {
	Id          string `gorm:"primaryKey"`
	CreatedAt   time.Time
	WeekStart   string `gorm:"uniqueIndex:idx_plan_cell"`
	DayOfWeek   string `gorm:"uniqueIndex:idx_plan_cell"`
	PersonaID   string `gorm:"uniqueIndex:idx_plan_cell"`
	Category    string `gorm:"uniqueIndex:idx_plan_cell"`
	TargetCount int
}
