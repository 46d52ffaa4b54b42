package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/cseasy-api/internal/models"
)

const maxUpdateAttempts = 5

type gormStudentRepository struct {
	db *gorm.DB
}

// NewGormStudentRepository stores students as versioned JSON rows. Update
// keeps the copy-on-write contract: the row is only replaced when nobody else
// replaced it since it was read.
func NewGormStudentRepository(db *gorm.DB) StudentRepository {
	return &gormStudentRepository{db: db}
}

func (r *gormStudentRepository) Create(ctx context.Context, student models.Student) error {
	payload, err := json.Marshal(student)
	if err != nil {
		return fmt.Errorf("encode student: %w", err)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.StudentRecord{}).Where("id = ?", student.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicate
		}

		var position int64
		if err := tx.Model(&models.StudentRecord{}).Select("COALESCE(MAX(position), 0)").Scan(&position).Error; err != nil {
			return err
		}

		record := models.StudentRecord{
			ID:           student.ID,
			ZID:          student.ZID,
			PasswordHash: student.PasswordHash,
			Position:     position + 1,
			Payload:      datatypes.JSON(payload),
			Version:      1,
		}
		return tx.Create(&record).Error
	})
}

func (r *gormStudentRepository) GetByID(ctx context.Context, id string) (models.Student, error) {
	record, err := r.load(ctx, "id = ?", id)
	if err != nil {
		return models.Student{}, err
	}
	return decodeStudent(record)
}

func (r *gormStudentRepository) GetByZID(ctx context.Context, zid string) (models.Student, error) {
	record, err := r.load(ctx, "z_id = ?", zid)
	if err != nil {
		return models.Student{}, err
	}
	return decodeStudent(record)
}

func (r *gormStudentRepository) List(ctx context.Context) ([]models.Student, error) {
	var records []models.StudentRecord
	if err := r.db.WithContext(ctx).Order("position ASC").Find(&records).Error; err != nil {
		return nil, err
	}

	students := make([]models.Student, 0, len(records))
	for _, record := range records {
		student, err := decodeStudent(record)
		if err != nil {
			return nil, err
		}
		students = append(students, student)
	}
	return students, nil
}

func (r *gormStudentRepository) First(ctx context.Context) (models.Student, error) {
	var record models.StudentRecord
	err := r.db.WithContext(ctx).Order("position ASC").First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Student{}, ErrNotFound
		}
		return models.Student{}, err
	}
	return decodeStudent(record)
}

func (r *gormStudentRepository) Update(ctx context.Context, id string, mutate StudentMutator) (models.Student, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		record, err := r.load(ctx, "id = ?", id)
		if err != nil {
			return models.Student{}, err
		}

		student, err := decodeStudent(record)
		if err != nil {
			return models.Student{}, err
		}
		if err := mutate(&student); err != nil {
			return models.Student{}, err
		}

		payload, err := json.Marshal(student)
		if err != nil {
			return models.Student{}, fmt.Errorf("encode student: %w", err)
		}

		result := r.db.WithContext(ctx).
			Model(&models.StudentRecord{}).
			Where("id = ? AND version = ?", id, record.Version).
			Updates(map[string]interface{}{
				"payload":    datatypes.JSON(payload),
				"version":    record.Version + 1,
				"updated_at": time.Now().UTC(),
			})
		if result.Error != nil {
			return models.Student{}, result.Error
		}
		if result.RowsAffected == 1 {
			return student, nil
		}
	}

	return models.Student{}, ErrVersionConflict
}

func (r *gormStudentRepository) load(ctx context.Context, query string, arg interface{}) (models.StudentRecord, error) {
	var record models.StudentRecord
	if err := r.db.WithContext(ctx).Where(query, arg).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.StudentRecord{}, ErrNotFound
		}
		return models.StudentRecord{}, err
	}
	return record, nil
}

func decodeStudent(record models.StudentRecord) (models.Student, error) {
	var student models.Student
	if err := json.Unmarshal(record.Payload, &student); err != nil {
		return models.Student{}, fmt.Errorf("decode student %s: %w", record.ID, err)
	}
	if student.TaskStates == nil {
		student.TaskStates = map[string]models.TaskState{}
	}
	student.ID = record.ID
	student.ZID = record.ZID
	student.PasswordHash = record.PasswordHash
	return student, nil
}
