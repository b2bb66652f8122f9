package model

import "gorm.io/gorm"

// Models lists every table owned by the service, parents first.
func Models() []interface{} {
	return []interface{}{
		&Conversation{},
		&Message{},
		&MindMap{},
	}
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
