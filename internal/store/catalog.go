package store

import (
	"context"
	"fmt"

	"storefront/internal/models"
)

func (s *Store) ListCourses(ctx context.Context, includeDrafts bool) ([]models.Course, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if !includeDrafts {
		q = q.Where("published = ?", true)
	}

	var courses []models.Course
	if err := q.Find(&courses).Error; err != nil {
		return nil, err
	}
	return courses, nil
}

func (s *Store) CourseBySlug(ctx context.Context, slug string) (*models.Course, error) {
	var c models.Course
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&c).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *Store) CreateCourse(ctx context.Context, c *models.Course) error {
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("failed to create course: %w", conflict(err))
	}
	return nil
}

func (s *Store) CreateContact(ctx context.Context, c *models.Contact) error {
	return s.db.WithContext(ctx).Create(c).Error
}

func (s *Store) ListContacts(ctx context.Context, limit int) ([]models.Contact, error) {
	var contacts []models.Contact
	err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&contacts).Error
	return contacts, err
}
