package model

import "strings"

// CourseLevel 课程难度档位，与周进度记录使用同一套取值
type CourseLevel string

const (
	Beginner     CourseLevel = "beginner"
	Intermediate CourseLevel = "intermediate"
	Advanced     CourseLevel = "advanced"
	Basic        CourseLevel = "basic"
	Secondary    CourseLevel = "secondary"
)

// NormalizeLevel 统一前端传入的难度名称：Basic 是 beginner 的别名，
// 其余取值小写后透传
func NormalizeLevel(level string) CourseLevel {
	normalized := CourseLevel(strings.ToLower(level))
	if normalized == Basic {
		return Beginner
	}
	return normalized
}

// Course 课程目录条目，由内容端维护，进度引擎只读
// swagger:model Course
type Course struct {
	BaseModel
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Subject     string `gorm:"size:100;index" json:"subject"`
	ImageURL    string `gorm:"size:512" json:"imageUrl"`
	Published   bool   `gorm:"default:true" json:"published"`

	Units   []CourseUnit `gorm:"foreignKey:CourseID" json:"units,omitempty"`
	Lessons []Lesson     `gorm:"foreignKey:CourseID" json:"lessons,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

// CourseUnit 某课程某难度下的一个内容单元（周）。Ordinal 自 1 起连续编号。
// TotalAssignments/TotalQuizzes 是创建进度记录时拷贝的声明总量。
type CourseUnit struct {
	BaseModel
	CourseID         uint        `gorm:"index:idx_course_level_ordinal,unique;not null" json:"courseId"`
	Level            CourseLevel `gorm:"size:20;index:idx_course_level_ordinal,unique;not null" json:"level"`
	Ordinal          int         `gorm:"index:idx_course_level_ordinal,unique;not null" json:"ordinal"`
	Topic            string      `gorm:"size:255;not null" json:"topic"`
	Summary          string      `gorm:"type:text" json:"summary"`
	TotalAssignments int         `gorm:"not null;default:0" json:"totalAssignments"`
	TotalQuizzes     int         `gorm:"not null;default:0" json:"totalQuizzes"`
}

func (CourseUnit) TableName() string {
	return "course_units"
}
