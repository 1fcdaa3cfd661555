package models

import (
	"log"

	"bitbucket.org/mmdatafocus/salesfacts_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Upload{}, &StagingFile{},
		&SalesFact{},
		&Store{}, &ProductMapping{}, &ProductPrice{},
		&Reseller{},
		&CurrencyRateOverride{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
