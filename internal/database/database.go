package database

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mrlokans/bookclub/internal/entities"
	"github.com/mrlokans/bookclub/internal/logger"
)

var defaultCategories = []string{
	"Fiction",
	"Non-fiction",
	"Science",
	"History",
	"Biography",
	"Poetry",
	"Essay",
	"Children",
}

type Database struct {
	DB *gorm.DB
}

// NewDatabase opens the sqlite database at dbPath, migrates the schema and
// seeds the default categories.
func NewDatabase(dbPath string) (*Database, error) {
	logMode := gormlogger.Silent
	if logger.Log.IsLevelEnabled(logrus.DebugLevel) {
		logMode = gormlogger.Info
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logMode),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.AutoMigrate(
		&entities.User{},
		&entities.Follow{},
		&entities.Category{},
		&entities.Book{},
		&entities.Thread{},
		&entities.ThreadLike{},
		&entities.Comment{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	database := &Database{DB: db}

	if err := database.seedCategories(); err != nil {
		return nil, fmt.Errorf("failed to seed categories: %w", err)
	}

	logger.Log.WithField("path", dbPath).Info("Database initialized")

	return database, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the underlying connection is alive.
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (d *Database) seedCategories() error {
	for _, name := range defaultCategories {
		var existing entities.Category
		err := d.DB.Where("name = ?", name).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := d.DB.Create(&entities.Category{Name: name}).Error; err != nil {
				return fmt.Errorf("failed to create category %s: %w", name, err)
			}
			logger.Log.Debugf("Created category: %s", name)
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}
