package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/Wikid82/warden/internal/metrics"
	"github.com/Wikid82/warden/internal/models"
)

var (
	ErrLogRowNotFound = errors.New("elevation log row not found")
	// ErrAuditWriteFailed marks an elevation that could not be durably
	// logged. Callers must treat it as a policy failure and deny.
	ErrAuditWriteFailed = errors.New("audit write failed")
)

// AuditQueryOptions filters and paginates the elevation log. Pagination is
// keyed off the monotonically increasing row id, not the timestamp, so
// concurrent appends never duplicate or skip rows across pages.
type AuditQueryOptions struct {
	// PageSize bounds the rows returned; defaults to 50, capped at 500.
	PageSize int
	// Cursor returns rows with id strictly below it; zero starts from the
	// newest row.
	Cursor uint

	User        *models.User
	Success     *bool
	StartMicros int64
	EndMicros   int64
}

// AuditPage is one page of the elevation log, newest first.
type AuditPage struct {
	Rows []models.JitElevationLog `json:"rows"`
	// NextCursor continues the iteration; zero when exhausted.
	NextCursor uint  `json:"next_cursor"`
	Total      int64 `json:"total"`
}

// AuditService owns the append-only elevation log. Rows are never mutated or
// deleted by the daemon.
type AuditService struct {
	db *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// Append durably records one decided elevation attempt and returns the row
// id. Exactly one row is written per decision, success or not.
func (s *AuditService) Append(row *models.JitElevationLog) (uint, error) {
	if err := s.db.Create(row).Error; err != nil {
		metrics.IncAuditWriteFailure()
		return 0, ErrAuditWriteFailed
	}
	return row.ID, nil
}

// Get fetches a single log row by id.
func (s *AuditService) Get(id uint) (*models.JitElevationLog, error) {
	var row models.JitElevationLog
	if err := s.db.Preload("User").First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLogRowNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (s *AuditService) filtered(opts AuditQueryOptions) (*gorm.DB, error) {
	q := s.db.Model(&models.JitElevationLog{})

	if opts.User != nil {
		var stored models.User
		err := s.db.Where(&models.User{
			AccountName: opts.User.AccountName,
			DomainName:  opts.User.DomainName,
			AccountSid:  opts.User.AccountSid,
			DomainSid:   opts.User.DomainSid,
		}).First(&stored).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Unknown user: no rows can match.
				return q.Where("1 = 0"), nil
			}
			return nil, err
		}
		q = q.Where("user_id = ?", stored.ID)
	}
	if opts.Success != nil {
		q = q.Where("success = ?", *opts.Success)
	}
	if opts.StartMicros > 0 {
		q = q.Where("timestamp_micros >= ?", opts.StartMicros)
	}
	if opts.EndMicros > 0 {
		q = q.Where("timestamp_micros <= ?", opts.EndMicros)
	}
	return q, nil
}

// Query returns one page ordered by id descending.
func (s *AuditService) Query(opts AuditQueryOptions) (AuditPage, error) {
	if opts.PageSize <= 0 {
		opts.PageSize = 50
	}
	if opts.PageSize > 500 {
		opts.PageSize = 500
	}

	q, err := s.filtered(opts)
	if err != nil {
		return AuditPage{}, err
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return AuditPage{}, err
	}

	if opts.Cursor > 0 {
		q = q.Where("id < ?", opts.Cursor)
	}

	var rows []models.JitElevationLog
	if err := q.Preload("User").Order("id DESC").Limit(opts.PageSize).Find(&rows).Error; err != nil {
		return AuditPage{}, err
	}

	page := AuditPage{Rows: rows, Total: total}
	if len(rows) == opts.PageSize {
		page.NextCursor = rows[len(rows)-1].ID
	}
	return page, nil
}
