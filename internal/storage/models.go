package storage

import (
	"time"

	"github.com/lib/pq"
)

// DefaultFreshnessDays is used for filters created without an explicit window.
const DefaultFreshnessDays = 3

type User struct {
	TelegramID      int64  `gorm:"primaryKey;autoIncrement:false"`
	FullName        string `gorm:"type:varchar(255)"`
	City            string `gorm:"type:varchar(255)"`
	DesiredPosition string `gorm:"type:varchar(255)"`
	Skills          string
	BaseResume      string
	LLMBaseURL      string `gorm:"column:llm_base_url"`
	LLMAPIKey       string `gorm:"column:llm_api_key"`
	LLMModel        string `gorm:"column:llm_model"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Registered reports whether the user went through the registration dialog.
func (u *User) Registered() bool {
	return u != nil && u.FullName != "" && u.DesiredPosition != ""
}

type VacancyFilter struct {
	TelegramID      int64  `gorm:"primaryKey;autoIncrement:false"`
	DesiredPosition string `gorm:"type:varchar(255)"`
	City            string `gorm:"type:varchar(255)"`
	// MinSalary is nil when the user has no salary floor.
	MinSalary           *int
	MetroStations       pq.StringArray `gorm:"type:text[]"`
	FreshnessDays       int            `gorm:"default:3"`
	EmploymentType      string         `gorm:"type:varchar(100)"`
	Experience          string         `gorm:"type:varchar(100)"`
	DirectEmployersOnly bool
	CompanySize         string `gorm:"type:varchar(100)"`
	TopCompaniesOnly    bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewVacancyFilter returns a filter with defaults applied.
func NewVacancyFilter(telegramID int64) *VacancyFilter {
	return &VacancyFilter{
		TelegramID:    telegramID,
		FreshnessDays: DefaultFreshnessDays,
	}
}

// Active reports whether the filter is worth searching with.
func (f *VacancyFilter) Active() bool {
	return f != nil && (f.DesiredPosition != "" || f.City != "")
}

func (f *VacancyFilter) Salary() int {
	if f == nil || f.MinSalary == nil {
		return 0
	}
	return *f.MinSalary
}

type Vacancy struct {
	ExternalID  string `gorm:"primaryKey;type:varchar(64)"`
	Title       string `gorm:"type:varchar(512)"`
	Company     string `gorm:"type:varchar(512)"`
	City        string `gorm:"type:varchar(255)"`
	Salary      string `gorm:"type:varchar(255)"`
	URL         string `gorm:"type:varchar(1024)"`
	Description string
	PublishedAt *time.Time
	CreatedAt   time.Time
}

type Interaction struct {
	TelegramID        int64  `gorm:"primaryKey;autoIncrement:false"`
	VacancyExternalID string `gorm:"primaryKey;type:varchar(64)"`
	// IsInteresting is nil until the user gives feedback.
	IsInteresting        *bool
	ResumeGenerated      bool
	CoverLetterGenerated bool
	InteractedAt         time.Time
}

func (Interaction) TableName() string {
	return "user_vacancy_interactions"
}
