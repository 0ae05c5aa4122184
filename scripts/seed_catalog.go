// 课程目录种子脚本
//
// 进度引擎对 courses/course_units/lessons 三张目录表只读，
// 内容通过本脚本从 JSON 文件导入。同名课程已存在时跳过，可重复执行。
//
// 用法: go run scripts/seed_catalog.go content/algebra.json [more.json...]

package main

import (
	"academician_hub_backend/internal/config"
	"academician_hub_backend/internal/model"
	"academician_hub_backend/pkg/database"
	"academician_hub_backend/pkg/logger"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

type seedUnit struct {
	Ordinal          int      `json:"ordinal"`
	Topic            string   `json:"topic"`
	Summary          string   `json:"summary"`
	Assignments      []string `json:"assignments"`
	Quizzes          []string `json:"quizzes"`
	TotalAssignments int      `json:"totalAssignments"`
	TotalQuizzes     int      `json:"totalQuizzes"`
}

type seedLesson struct {
	Title             string `json:"title"`
	Description       string `json:"description"`
	Order             int    `json:"order"`
	VideoURL          string `json:"videoUrl"`
	QuizQuestionCount int    `json:"quizQuestionCount"`
}

type seedCourse struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Subject     string                `json:"subject"`
	ImageURL    string                `json:"imageUrl"`
	Levels      map[string][]seedUnit `json:"levels"`
	Lessons     []seedLesson          `json:"lessons"`
}

func main() {
	if len(os.Args) < 2 {
		log.Fatal("用法: go run scripts/seed_catalog.go <course.json> [more.json...]")
	}

	data, err := os.ReadFile("configs/config.yaml")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	logger.InitLogger(&cfg)

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	for _, path := range os.Args[1:] {
		if err := seedFile(db, path); err != nil {
			log.Fatalf("导入 %s 失败: %v", path, err)
		}
	}
	log.Println("完成！")
}

func seedFile(db *gorm.DB, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var sc seedCourse
	if err := json.Unmarshal(data, &sc); err != nil {
		return err
	}
	if sc.Title == "" {
		return fmt.Errorf("课程标题不能为空")
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&model.Course{}).Where("title = ?", sc.Title).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			log.Printf("课程已存在，跳过: %s", sc.Title)
			return nil
		}

		course := model.Course{
			Title:       sc.Title,
			Description: sc.Description,
			Subject:     sc.Subject,
			ImageURL:    sc.ImageURL,
			Published:   true,
		}
		if err := tx.Create(&course).Error; err != nil {
			return err
		}

		for rawLevel, units := range sc.Levels {
			level := model.NormalizeLevel(rawLevel)
			for _, u := range units {
				if u.Ordinal < 1 {
					return fmt.Errorf("单元序号必须从 1 开始: %s/%s", sc.Title, rawLevel)
				}
				totalAssignments := u.TotalAssignments
				if totalAssignments == 0 {
					totalAssignments = len(u.Assignments)
				}
				totalQuizzes := u.TotalQuizzes
				if totalQuizzes == 0 {
					totalQuizzes = len(u.Quizzes)
				}
				unit := model.CourseUnit{
					CourseID:         course.ID,
					Level:            level,
					Ordinal:          u.Ordinal,
					Topic:            u.Topic,
					Summary:          u.Summary,
					TotalAssignments: totalAssignments,
					TotalQuizzes:     totalQuizzes,
				}
				if err := tx.Create(&unit).Error; err != nil {
					return err
				}
			}
		}

		for i, l := range sc.Lessons {
			order := l.Order
			if order == 0 {
				order = i + 1
			}
			lesson := model.Lesson{
				CourseID:          course.ID,
				Title:             l.Title,
				Description:       l.Description,
				Order:             order,
				VideoURL:          l.VideoURL,
				QuizQuestionCount: l.QuizQuestionCount,
				Published:         true,
			}
			if err := tx.Create(&lesson).Error; err != nil {
				return err
			}
		}

		log.Printf("已导入课程: %s（%d 个难度档）", sc.Title, len(sc.Levels))
		return nil
	})
}
