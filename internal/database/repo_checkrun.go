package database

import (
	"sndiag/internal/logger"

	"gorm.io/gorm"
)

type CheckRunRepo struct {
	db *gorm.DB
}

func NewCheckRunRepo() *CheckRunRepo {
	return &CheckRunRepo{db: DB}
}

func (r *CheckRunRepo) Create(run *CheckRun) error {
	if err := r.db.Create(run).Error; err != nil {
		logger.DB.Error().Err(err).Str("check", run.CheckName).Msg("check run write failed")
		return err
	}
	return nil
}

func (r *CheckRunRepo) List(filter CheckRunFilter) ([]CheckRun, int64, error) {
	var runs []CheckRun
	var total int64

	q := r.db.Model(&CheckRun{})
	if filter.CheckName != "" {
		q = q.Where("check_name = ?", filter.CheckName)
	}
	if filter.Instance != "" {
		q = q.Where("instance = ?", filter.Instance)
	}
	if filter.Source != "" {
		q = q.Where("source = ?", filter.Source)
	}
	if filter.StartTime != "" {
		q = q.Where("created_at >= ?", filter.StartTime)
	}
	if filter.EndTime != "" {
		q = q.Where("created_at <= ?", filter.EndTime)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortBy := filter.SortBy
	if !sortableColumns[sortBy] {
		sortBy = "created_at"
	}
	sortOrder := filter.SortOrder
	if sortOrder != "asc" {
		sortOrder = "desc"
	}

	err := q.Order(sortBy + " " + sortOrder).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&runs).Error
	return runs, total, err
}

// sortableColumns are the only columns accepted for ORDER BY. The sort field
// reaches raw SQL, so anything outside this set falls back to created_at.
var sortableColumns = map[string]bool{
	"created_at":  true,
	"duration_ms": true,
	"check_name":  true,
	"instance":    true,
	"source":      true,
	"success":     true,
}

type CheckRunFilter struct {
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
	CheckName string
	Instance  string
	Source    string
	StartTime string
	EndTime   string
}

func (f *CheckRunFilter) Offset() int {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = 20
	}
	return (f.Page - 1) * f.PageSize
}
