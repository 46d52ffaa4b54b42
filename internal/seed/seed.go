// Package seed loads the demo catalog and student records.
package seed

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/cseasy-api/internal/models"
	"github.com/noah-isme/cseasy-api/internal/repository"
)

//go:embed data/*.yaml
var defaults embed.FS

const day = 24 * time.Hour

type catalogFile struct {
	Courses []courseSeed `yaml:"courses"`
}

type courseSeed struct {
	ID               string             `yaml:"id"`
	Name             string             `yaml:"name"`
	Code             string             `yaml:"code"`
	Instructor       string             `yaml:"instructor"`
	WebsiteURL       string             `yaml:"website_url"`
	Image            models.CourseImage `yaml:"image"`
	Grade            int                `yaml:"grade"`
	Weeks            int                `yaml:"weeks"`
	TotalWeeks       int                `yaml:"total_weeks"`
	Color            string             `yaml:"color"`
	Initials         string             `yaml:"initials"`
	TotalLabs        *int               `yaml:"total_labs"`
	TotalAssignments *int               `yaml:"total_assignments"`
	TotalExams       *int               `yaml:"total_exams"`
	Labs             []unitSeed         `yaml:"labs"`
	Assignments      []unitSeed         `yaml:"assignments"`
	Announcements    []announcementSeed `yaml:"announcements"`
}

// unitSeed accepts either an absolute due_at or a due_in_days offset from load time.
type unitSeed struct {
	ID        string     `yaml:"id"`
	Title     string     `yaml:"title"`
	DueAt     *time.Time `yaml:"due_at"`
	DueInDays int        `yaml:"due_in_days"`
}

type announcementSeed struct {
	ID      string     `yaml:"id"`
	Title   string     `yaml:"title"`
	Content string     `yaml:"content"`
	Date    *time.Time `yaml:"date"`
	DaysAgo int        `yaml:"days_ago"`
}

type studentsFile struct {
	Students []studentSeed `yaml:"students"`
}

type studentSeed struct {
	ID                string          `yaml:"id"`
	Name              string          `yaml:"name"`
	ZID               string          `yaml:"z_id"`
	Password          string          `yaml:"password"`
	EnrolledCourseIDs []string        `yaml:"enrolled_course_ids"`
	Todos             []models.Todo   `yaml:"todos"`
	CompletedTasks    []completedSeed `yaml:"completed_tasks"`
}

type completedSeed struct {
	TaskID  string `yaml:"task_id"`
	DaysAgo int    `yaml:"days_ago"`
}

// Loader reads seed files. Empty paths fall back to the embedded demo data.
type Loader struct {
	CatalogPath  string
	StudentsPath string
	Now          func() time.Time
	// HashCost is the bcrypt cost used for seed passwords.
	HashCost int
}

// Courses parses the catalog seed, resolving relative dates against Now.
func (l Loader) Courses() ([]models.Course, error) {
	raw, err := l.read(l.CatalogPath, "data/catalog.yaml")
	if err != nil {
		return nil, err
	}

	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse catalog seed: %w", err)
	}

	now := l.now()
	courses := make([]models.Course, 0, len(file.Courses))
	for _, item := range file.Courses {
		course := models.Course{
			ID:               item.ID,
			Name:             item.Name,
			Code:             item.Code,
			Instructor:       item.Instructor,
			WebsiteURL:       item.WebsiteURL,
			Image:            item.Image,
			Grade:            item.Grade,
			Weeks:            item.Weeks,
			TotalWeeks:       item.TotalWeeks,
			Color:            item.Color,
			Initials:         item.Initials,
			TotalLabs:        item.TotalLabs,
			TotalAssignments: item.TotalAssignments,
			TotalExams:       item.TotalExams,
			Labs:             make([]models.LabUnit, 0, len(item.Labs)),
			Assignments:      make([]models.AssignmentUnit, 0, len(item.Assignments)),
			Announcements:    make([]models.Announcement, 0, len(item.Announcements)),
		}
		for _, lab := range item.Labs {
			course.Labs = append(course.Labs, models.LabUnit{ID: lab.ID, Title: lab.Title, DueDate: lab.due(now)})
		}
		for _, assignment := range item.Assignments {
			course.Assignments = append(course.Assignments, models.AssignmentUnit{ID: assignment.ID, Title: assignment.Title, DueDate: assignment.due(now)})
		}
		for _, ann := range item.Announcements {
			date := now.Add(-time.Duration(ann.DaysAgo) * day)
			if ann.Date != nil {
				date = ann.Date.UTC()
			}
			course.Announcements = append(course.Announcements, models.Announcement{
				ID:       ann.ID,
				CourseID: item.ID,
				Title:    ann.Title,
				Content:  ann.Content,
				Date:     date,
			})
		}
		courses = append(courses, course)
	}

	return courses, nil
}

// Students parses the student seed and hashes each password.
func (l Loader) Students() ([]models.Student, error) {
	raw, err := l.read(l.StudentsPath, "data/students.yaml")
	if err != nil {
		return nil, err
	}

	var file studentsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse student seed: %w", err)
	}

	cost := l.HashCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	now := l.now()
	students := make([]models.Student, 0, len(file.Students))
	for _, item := range file.Students {
		hash, err := bcrypt.GenerateFromPassword([]byte(item.Password), cost)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", item.ID, err)
		}

		student := models.Student{
			ID:                item.ID,
			Name:              item.Name,
			ZID:               item.ZID,
			PasswordHash:      string(hash),
			EnrolledCourseIDs: dedupe(item.EnrolledCourseIDs),
			Todos:             append([]models.Todo{}, item.Todos...),
			TaskStates:        make(map[string]models.TaskState, len(item.CompletedTasks)),
		}
		for _, done := range item.CompletedTasks {
			student.TaskStates[done.TaskID] = models.CompletedState(true, now.Add(-time.Duration(done.DaysAgo)*day))
		}
		students = append(students, student)
	}

	return students, nil
}

// Apply loads both seed files into fresh repositories. Students that already
// exist in the store are left as they are.
func Apply(ctx context.Context, loader Loader, students repository.StudentRepository, logger zerolog.Logger) (repository.CatalogRepository, error) {
	courses, err := loader.Courses()
	if err != nil {
		return nil, err
	}

	catalog, err := repository.NewCatalogRepository(courses)
	if err != nil {
		return nil, err
	}

	records, err := loader.Students()
	if err != nil {
		return nil, err
	}

	created := 0
	for _, record := range records {
		if err := students.Create(ctx, record); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				continue
			}
			return nil, fmt.Errorf("seed student %s: %w", record.ID, err)
		}
		created++
	}

	logger.Info().Int("courses", len(courses)).Int("students_created", created).Msg("seed data loaded")
	return catalog, nil
}

func (l Loader) read(path, fallback string) ([]byte, error) {
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read seed %s: %w", path, err)
		}
		return raw, nil
	}
	return defaults.ReadFile(fallback)
}

func (l Loader) now() time.Time {
	if l.Now != nil {
		return l.Now().UTC()
	}
	return time.Now().UTC()
}

func (u unitSeed) due(now time.Time) time.Time {
	if u.DueAt != nil {
		return u.DueAt.UTC()
	}
	return now.Add(time.Duration(u.DueInDays) * day)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
