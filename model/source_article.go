package model

import "time"

/*

SourceArticle is the deduplication ledger of externally scraped items

One row per upstream post ever seen; the unique ExternalId prevents
re-ingesting the same item on later collector runs. Recent titles per
category also serve as few-shot examples for the title formatter.

Id: primary key
ExternalId: identifier assigned by the upstream portal
Title: upstream title in plain text
CategoryId: upstream category identifier
PublishedAt: date the item was ingested, formatted 2006-01-02

*/
type SourceArticle struct {
	Id          string `gorm:"primaryKey"`
	CreatedAt   time.Time
	ExternalId  string `gorm:"uniqueIndex"`
	Title       string
	CategoryId  string
	PublishedAt string
}
