package dbhelper

import (
	"log"

	"gorm.io/gorm"

	"modaapi/models"
)

func SetupCleaner(db *gorm.DB) func() {

	return func() {

		db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.InteractionEvent{})
		db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.WishlistItem{})
		db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Follow{})
		db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.SearchAlert{})
		db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.CuratedCollection{})
		db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.UserStyleProfile{})
		db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Garment{})
		db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.UserAccount{})

	}
}

func Migrate(db *gorm.DB, model interface{}) {
	err := db.AutoMigrate(model)
	if err != nil {
		log.Printf("Error while migrating %s", model)
		log.Fatal(err)
	}
}
