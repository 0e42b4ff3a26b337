package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"voice-recorder/entities"
)

var ErrNotFound = errors.New("record not found")

type Repository interface {
	Transaction(ctx context.Context, callback func(ctx context.Context) error, opts ...*sql.TxOptions) error
	GetDB() *gorm.DB
	Migrate(ctx context.Context) error
	UpsertRecording(ctx context.Context, recording *entities.Recording) error
	FindAllRecordings(ctx context.Context) ([]entities.Recording, error)
	FindRecordingByLocation(ctx context.Context, location string) (*entities.Recording, error)
	InsertMediaEntry(ctx context.Context, entry *entities.MediaEntry) error
	FindMediaEntryById(ctx context.Context, id uuid.UUID) (*entities.MediaEntry, error)
	UpdateMediaEntryPending(ctx context.Context, id uuid.UUID, pending bool) error
}

type txKey struct{}

type repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) Repository {
	return &repo{
		db: db,
	}
}

func (r *repo) GetDB() *gorm.DB {
	return r.db
}

// conn returns the transaction bound to ctx, if any.
func (r *repo) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return r.db.WithContext(ctx)
}

func (r *repo) Transaction(ctx context.Context, callback func(ctx context.Context) error, opts ...*sql.TxOptions) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return callback(context.WithValue(ctx, txKey{}, tx))
	}, opts...)
}

func (r *repo) Migrate(ctx context.Context) error {
	return r.conn(ctx).AutoMigrate(&entities.Recording{}, &entities.MediaEntry{})
}

// UpsertRecording inserts the recording or, when its location already exists,
// overwrites the duration.
func (r *repo) UpsertRecording(ctx context.Context, recording *entities.Recording) error {
	return r.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "location"}},
		DoUpdates: clause.AssignmentColumns([]string{"duration_seconds", "updated_at"}),
	}).Create(recording).Error
}

func (r *repo) FindAllRecordings(ctx context.Context) ([]entities.Recording, error) {
	var recordings []entities.Recording
	err := r.conn(ctx).Order("created_at ASC").Order("location ASC").Find(&recordings).Error
	if err != nil {
		return nil, err
	}
	return recordings, nil
}

func (r *repo) FindRecordingByLocation(ctx context.Context, location string) (*entities.Recording, error) {
	recording := &entities.Recording{}
	err := r.conn(ctx).First(recording, "location = ?", location).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return recording, nil
}

func (r *repo) InsertMediaEntry(ctx context.Context, entry *entities.MediaEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.conn(ctx).Create(entry).Error
}

func (r *repo) FindMediaEntryById(ctx context.Context, id uuid.UUID) (*entities.MediaEntry, error) {
	entry := &entities.MediaEntry{}
	err := r.conn(ctx).First(entry, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *repo) UpdateMediaEntryPending(ctx context.Context, id uuid.UUID, pending bool) error {
	result := r.conn(ctx).Model(&entities.MediaEntry{}).Where("id = ?", id).Update("is_pending", pending)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
