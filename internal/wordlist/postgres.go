package wordlist

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Word is one row of the words table.
type Word struct {
	ID       uint   `gorm:"primaryKey"`
	Category string `gorm:"not null;uniqueIndex:idx_category_word"`
	Word     string `gorm:"not null;uniqueIndex:idx_category_word"`
}

func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Word{})
}

// LoadPostgres reads the whole words table. Every category named in
// categories is registered even when the table has no rows for it.
func LoadPostgres(ctx context.Context, db *gorm.DB, categories []string) (*Set, error) {
	var rows []Word
	if err := db.WithContext(ctx).Order("category, word").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load words: %w", err)
	}

	set := New()
	for _, c := range categories {
		set.Ensure(c)
	}
	for _, r := range rows {
		set.Add(r.Category, r.Word)
	}
	return set, nil
}

// Seed inserts every word of set, skipping pairs that already exist.
// It returns the number of rows written.
func Seed(ctx context.Context, db *gorm.DB, set *Set) (int64, error) {
	var rows []Word
	set.Each(func(category, word string) {
		rows = append(rows, Word{Category: category, Word: word})
	})
	if len(rows) == 0 {
		return 0, nil
	}

	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(rows, 500)
	if res.Error != nil {
		return 0, fmt.Errorf("seed words: %w", res.Error)
	}
	return res.RowsAffected, nil
}
