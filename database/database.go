package database

import (
	"fmt"
	"log"
	"os"

	"studio-app/internal/domain/announcements"
	"studio-app/internal/domain/attendance"
	"studio-app/internal/domain/billing"
	"studio-app/internal/domain/classes"
	"studio-app/internal/domain/plans"
	"studio-app/internal/domain/staff"
	"studio-app/internal/domain/students"
	"studio-app/internal/domain/studios"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func InitDB() {
	dsn := os.Getenv("DB_URL")
	if dsn == "" {
		log.Fatal("❌ DB_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("❌ Failed to connect to database:", err)
	}

	DB = db

	if err := Migrate(DB); err != nil {
		log.Fatal("❌ AutoMigrate error:", err)
	}

	fmt.Println("✅ Connected and migrated successfully")
}

// Migrate is separate from InitDB so tests can run it against their own DB.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// tenancy + staff
		&studios.Studio{},
		&staff.Member{},

		// core studio records
		&students.Student{},
		&plans.MembershipPlan{},
		&classes.ClassOffering{},
		&attendance.AttendanceRecord{},
		&attendance.Absence{},
		&announcements.Announcement{},

		// billing history (append-only)
		&billing.Invoice{},
		&billing.Payment{},
	)
}
