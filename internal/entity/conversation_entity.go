package entity

import "time"

type Conversation struct {
	Id        int64
	Name      string
	CreatedAt time.Time
	Summary   string
	Notes     string
}
