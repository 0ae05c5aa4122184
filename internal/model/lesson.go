package model

// Lesson 课程下的单节课。QuizQuestionCount>0 表示附带小测，
// 结课时要求测验成绩达标（见 CourseProgressService.CompleteLesson）。
type Lesson struct {
	BaseModel
	CourseID          uint   `gorm:"index;not null" json:"courseId"`
	Title             string `gorm:"size:255;not null" json:"title"`
	Description       string `gorm:"type:text" json:"description"`
	Order             int    `gorm:"default:0" json:"order"`
	VideoURL          string `gorm:"size:512" json:"videoUrl"`
	QuizQuestionCount int    `gorm:"default:0" json:"quizQuestionCount"`
	Published         bool   `gorm:"default:true" json:"published"`
}

func (Lesson) TableName() string {
	return "lessons"
}

func (l *Lesson) HasQuiz() bool {
	return l.QuizQuestionCount > 0
}
