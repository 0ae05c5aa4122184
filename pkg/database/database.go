package database

import (
	"academician_hub_backend/internal/config"
	"academician_hub_backend/internal/model"
	"fmt"
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
		// 唯一索引碰撞要能识别为 gorm.ErrDuplicatedKey，写冲突重试依赖它
		TranslateError: true,
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	return db, nil
}

// Migrate 建表/迁移。目录表（courses/course_units/lessons）由内容端的
// 种子脚本写入，引擎侧只建结构不填数据。
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Course{},
		&model.CourseUnit{},
		&model.Lesson{},
		&model.UnitProgress{},
		&model.UnitQuizScore{},
		&model.UnitAssignmentSubmission{},
		&model.CourseProgress{},
		&model.LessonCompletion{},
		&model.LessonQuizScore{},
	)
}
