package db

import (
	"fmt"
	"time"

	"github.com/nikhilsahni7/SurveyMap/log"
	"github.com/nikhilsahni7/SurveyMap/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to Postgres, tunes the pool and migrates the schema.
func Open(dsn string) (*gorm.DB, error) {
	gormLogger := logger.New(
		log.Logger,
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Warn,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:      gormLogger,
		PrepareStmt: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(db); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Info("Database connected and migrated successfully")
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Theme{},
		&models.Survey{},
		&models.SurveyPage{},
		&models.PageSection{},
		&models.OptionGroup{},
		&models.SectionOption{},
		&models.Submission{},
		&models.AnswerEntry{},
	)
}

// Store implements the survey persistence operations on top of GORM.
type Store struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db, Now: time.Now}
}
