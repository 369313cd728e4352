package models

import "time"

// ActionLog stores an administrative or moderation action for auditing.
type ActionLog struct {
	ActorID   int64                  `bson:"actor_id"`
	ActorName string                 `bson:"actor_name,omitempty"`
	ChatID    int64                  `bson:"chat_id"`
	Action    string                 `bson:"action"`
	Details   map[string]interface{} `bson:"details,omitempty"`
	Time      time.Time              `bson:"time"`
}
