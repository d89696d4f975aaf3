package model

import "time"

/*

User is a subscriber reached through the chat bot

Id: primary key, the chat id assigned by the messenger
CreatedAt: time of first bot contact
Username: messenger username, may be empty
SubscribedPersonaID:
SubscribedPersona: persona this user currently follows, nil until the user
	picks one. "belongs-to" relation; clearing a persona keeps the user.

*/
type User struct {
	Id                  string `gorm:"primaryKey"`
	CreatedAt           time.Time
	Username            string
	SubscribedPersonaID *string  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
	SubscribedPersona   *Persona `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
}
