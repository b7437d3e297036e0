package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/nowtask/internal/model"
)

// CreateCategory inserts a new category, or returns the existing one with
// the same name.
func (s *SQLiteStore) CreateCategory(ctx context.Context, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &model.ValidationError{Field: "category", Message: "must not be blank"}
	}

	var existing []model.Category
	if err := s.db.SelectContext(ctx, &existing,
		"SELECT id, name, created_at FROM categories WHERE name = ?", name); err != nil {
		return nil, fmt.Errorf("looking up category %q: %w", name, err)
	}
	if len(existing) > 0 {
		return &existing[0], nil
	}

	c := model.Category{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO categories (id, name, created_at) VALUES (?, ?, ?)",
		c.ID, c.Name, c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating category %q: %w", name, err)
	}
	return &c, nil
}

// GetCategories returns every category ordered by name.
func (s *SQLiteStore) GetCategories(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	err := s.db.SelectContext(ctx, &categories,
		"SELECT id, name, created_at FROM categories ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	return categories, nil
}

// DeleteCategory removes a category. Its tasks become uncategorized.
func (s *SQLiteStore) DeleteCategory(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting category %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("category %s: %w", id, model.ErrNotFound)
	}
	return nil
}
