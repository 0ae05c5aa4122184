package model

import "time"

// CourseProgress 每个 (用户, 课程) 一行的粗粒度进度：
// 结课集合、课程内累计 XP、累计学习时长与当前课节。
type CourseProgress struct {
	BaseModel
	UserID          uint      `gorm:"index:idx_user_course,unique;not null" json:"userId"`
	CourseID        uint      `gorm:"index:idx_user_course,unique;not null" json:"courseId"`
	CurrentLessonID *uint     `json:"currentLessonId"`
	Progress        int       `gorm:"not null;default:0" json:"progress"` // 0-100
	XPEarned        int       `gorm:"not null;default:0" json:"xpEarned"`
	TimeSpent       int       `gorm:"not null;default:0" json:"timeSpent"` // 分钟
	LastAccessed    time.Time `gorm:"not null" json:"lastAccessed"`

	CompletedLessons []LessonCompletion `gorm:"foreignKey:CourseProgressID" json:"completedLessons,omitempty"`
	QuizScores       []LessonQuizScore  `gorm:"foreignKey:CourseProgressID" json:"quizScores,omitempty"`
}

func (CourseProgress) TableName() string {
	return "course_progress"
}

// LessonCompletion 结课集合成员，(course_progress_id, lesson_id) 唯一，重复写入为空操作
type LessonCompletion struct {
	BaseModel
	CourseProgressID uint      `gorm:"index:idx_progress_lesson,unique;not null" json:"-"`
	LessonID         uint      `gorm:"index:idx_progress_lesson,unique;not null" json:"lessonId"`
	CompletedAt      time.Time `gorm:"not null" json:"completedAt"`
}

func (LessonCompletion) TableName() string {
	return "lesson_completions"
}

// LessonQuizScore 课节小测成绩历史，每课节只保留最新一条
type LessonQuizScore struct {
	BaseModel
	CourseProgressID uint      `gorm:"index:idx_progress_lesson_quiz,unique;not null" json:"-"`
	LessonID         uint      `gorm:"index:idx_progress_lesson_quiz,unique;not null" json:"lessonId"`
	Score            int       `gorm:"not null" json:"score"`
	AttemptedAt      time.Time `gorm:"not null" json:"attemptedAt"`
}

func (LessonQuizScore) TableName() string {
	return "lesson_quiz_scores"
}
