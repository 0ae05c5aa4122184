package model

import "time"

type UnitStatus string

const (
	StatusLocked     UnitStatus = "locked"
	StatusUnlocked   UnitStatus = "unlocked"
	StatusInProgress UnitStatus = "in-progress"
	StatusCompleted  UnitStatus = "completed"
)

type SubmissionStatus string

const (
	SubmissionSubmitted SubmissionStatus = "submitted"
	SubmissionGraded    SubmissionStatus = "graded"
)

// UnitProgress 进度台账核心实体：每个 (用户, 课程, 难度, 单元序号) 一行。
// 计数器不可独立修改，始终由子表行数在同一事务内重新计算得出。
type UnitProgress struct {
	BaseModel
	UserID   uint        `gorm:"index:idx_user_course_level_ordinal,unique;not null" json:"userId"`
	CourseID uint        `gorm:"index:idx_user_course_level_ordinal,unique;not null" json:"courseId"`
	Level    CourseLevel `gorm:"size:20;index:idx_user_course_level_ordinal,unique;not null" json:"level"`
	Ordinal  int         `gorm:"index:idx_user_course_level_ordinal,unique;not null" json:"ordinal"`

	Topic  string     `gorm:"size:255" json:"topic"`
	Status UnitStatus `gorm:"size:20;not null;default:'unlocked'" json:"status"`

	AssignmentsCompleted int `gorm:"not null;default:0" json:"assignmentsCompleted"`
	TotalAssignments     int `gorm:"not null;default:0" json:"totalAssignments"`
	QuizzesCompleted     int `gorm:"not null;default:0" json:"quizzesCompleted"`
	TotalQuizzes         int `gorm:"not null;default:0" json:"totalQuizzes"`

	UnlockedAt  *time.Time `json:"unlockedAt"`
	StartedAt   *time.Time `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt"`

	QuizScores            []UnitQuizScore            `gorm:"foreignKey:UnitProgressID" json:"quizScores,omitempty"`
	AssignmentSubmissions []UnitAssignmentSubmission `gorm:"foreignKey:UnitProgressID" json:"assignmentSubmissions,omitempty"`
}

func (UnitProgress) TableName() string {
	return "unit_progress"
}

// IsComplete 完成判定谓词，所有判定处必须使用同一实现
func (p *UnitProgress) IsComplete() bool {
	return p.AssignmentsCompleted >= p.TotalAssignments &&
		p.QuizzesCompleted >= p.TotalQuizzes
}

// UnitQuizScore 单元内某个测验的最新成绩。
// (unit_progress_id, quiz_index) 唯一，重交覆盖而不追加。
type UnitQuizScore struct {
	BaseModel
	UnitProgressID uint      `gorm:"index:idx_progress_quiz,unique;not null" json:"-"`
	QuizIndex      int       `gorm:"index:idx_progress_quiz,unique;not null" json:"quizIndex"`
	Score          int       `gorm:"not null" json:"score"`
	CompletedAt    time.Time `gorm:"not null" json:"completedAt"`
}

func (UnitQuizScore) TableName() string {
	return "unit_quiz_scores"
}

// UnitAssignmentSubmission 单元内某个作业的提交记录。
// (unit_progress_id, assignment_index) 唯一。
type UnitAssignmentSubmission struct {
	BaseModel
	UnitProgressID  uint             `gorm:"index:idx_progress_assignment,unique;not null" json:"-"`
	AssignmentIndex int              `gorm:"index:idx_progress_assignment,unique;not null" json:"assignmentIndex"`
	SubmittedAt     time.Time        `gorm:"not null" json:"submittedAt"`
	Status          SubmissionStatus `gorm:"size:20;not null;default:'submitted'" json:"status"`
	Grade           *int             `json:"grade,omitempty"`
}

func (UnitAssignmentSubmission) TableName() string {
	return "unit_assignment_submissions"
}
