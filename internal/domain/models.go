package domain

import "time"

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 6

// RecentAttemptsLimit caps ProgressReport.RecentAttempts.
const RecentAttemptsLimit = 10

// Subjects is the fixed, ordered set of subjects progress is bucketed into.
var Subjects = []string{"biology", "physics", "chemistry", "geology", "english"}

// Preferences are per-user study settings.
type Preferences struct {
	DefaultTimeLimit    int    `json:"defaultTimeLimit"` // minutes
	PreferredDifficulty string `json:"preferredDifficulty"`
	EmailNotifications  bool   `json:"emailNotifications"`
	AutoSubmit          bool   `json:"autoSubmit"`
}

// DefaultPreferences returns the preferences assigned to a freshly registered user.
func DefaultPreferences() Preferences {
	return Preferences{
		DefaultTimeLimit:    10,
		PreferredDifficulty: "",
		EmailNotifications:  false,
		AutoSubmit:          true,
	}
}

// Stats are the running aggregates updated every time a quiz attempt is recorded.
type Stats struct {
	TotalQuizzes  int        `json:"totalQuizzes"`
	TotalTime     int        `json:"totalTime"` // seconds
	AverageScore  int        `json:"averageScore"`
	CurrentStreak int        `json:"currentStreak"`
	LastStudyDate *time.Time `json:"lastStudyDate"`
}

// User is a registered account. PasswordDigest keeps the "password" JSON key
// so blobs written by the browser app decode unchanged.
type User struct {
	ID             string      `json:"id"`
	Email          string      `json:"email"`
	FullName       string      `json:"fullName"`
	TargetExam     string      `json:"targetExam,omitempty"`
	PasswordDigest string      `json:"password,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	LastLogin      time.Time   `json:"lastLogin"`
	Preferences    Preferences `json:"preferences"`
	Stats          Stats       `json:"stats"`
}

// Clone returns a deep copy so callers can't mutate shared stats pointers.
func (u User) Clone() User {
	if u.Stats.LastStudyDate != nil {
		d := *u.Stats.LastStudyDate
		u.Stats.LastStudyDate = &d
	}
	return u
}

// Public strips the password digest for display.
func (u User) Public() User {
	u = u.Clone()
	u.PasswordDigest = ""
	return u
}

// QuizAttempt is one completed quiz. Attempts are immutable once logged.
type QuizAttempt struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	PassageID      string    `json:"passageId"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
	TimeElapsed    int       `json:"timeElapsed"` // seconds
	CompletedAt    time.Time `json:"completedAt"`
}

// Passage is the slice of the external passage catalog this module reads.
type Passage struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Title   string `json:"title,omitempty"`
}

// RegisterInput carries the registration form fields.
type RegisterInput struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	FullName        string `json:"fullName"`
	TargetExam      string `json:"targetExam"`
}

// AttemptInput is the outcome of a finished quiz as reported by the client.
type AttemptInput struct {
	PassageID      string `json:"passageId"`
	Score          int    `json:"score"`
	TimeElapsed    int    `json:"timeElapsed"`
	TotalQuestions int    `json:"totalQuestions"`
}

// SubjectProgress aggregates a user's attempts within one subject.
type SubjectProgress struct {
	Attempts     int `json:"attempts"`
	AverageScore int `json:"averageScore"`
	TotalTime    int `json:"totalTime"`
}

// ProgressReport is derived on demand; it is never persisted.
type ProgressReport struct {
	Overall        Stats                      `json:"overall"`
	Subjects       map[string]SubjectProgress `json:"subjects"`
	RecentAttempts []QuizAttempt              `json:"recentAttempts"`
}
