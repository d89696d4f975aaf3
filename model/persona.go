package model

import (
	"time"
)

/*

Persona is a data model for a content "voice"

Each generated article is written in the style of exactly one persona.
Personas are created once by seeding (or by a strategic update) and are
never deleted in normal operation; only ImagePromptStyle is mutated by the
daily style refresh.

Id: primary key, use to identify a persona
CreatedAt: time when entity is created
Code: short unique code used in AI plan payloads, for example "main", "t1"
Name: persona's display name
ProviderName: AI provider that writes for this persona, for example "gemini", "grok"
ImagePromptStyle: style text prepended to every image prompt of this persona
Description: editorial description fed into the strategist prompt

*/
type Persona struct {
	Id               string `gorm:"primaryKey"`
	CreatedAt        time.Time
	Code             string `gorm:"uniqueIndex"`
	Name             string
	ProviderName     string
	ImagePromptStyle string
	Description      string
}
