package model

import "time"

/*

GeneratedArticle is the final content unit produced by the writers

Append-only: created once per successful generation and owned by the
(user, persona) pair it was generated for, no sharing.

Id: primary key
CreatedAt: generation time, used to select today's articles for delivery
TopicID: the topic this article was written from, "belongs-to" relation
UserID: subscriber the article belongs to
PersonaID: persona voice the article is written in
Title: article title, copied from the topic at generation time
Content: full article text
ImagePath: local path of the generated illustration, nil until the picture
	generator has run
MatchedTokens: JSON-encoded list of crypto tokens matched to the content,
	nil until the token matcher has run

*/
type GeneratedArticle struct {
	Id            string `gorm:"primaryKey"`
	CreatedAt     time.Time
	TopicID       string `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Topic         Topic  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	UserID        string
	PersonaID     string
	Title         string
	Content       string
	ImagePath     *string
	MatchedTokens *string
}
