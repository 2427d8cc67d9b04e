package database

import (
	"examina_backend/internal/config"
	"examina_backend/internal/model"
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
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	err = db.AutoMigrate(
		&model.User{},
		&model.QuestionBankModule{},
		&model.QuestionBankSubject{},
		&model.Question{},
		&model.OperationPoint{},
		&model.OperationParameter{},
		&model.MockExamConfiguration{},
		&model.MockExam{},
		&model.MockExamCompletion{},
	)

	if err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	// 默认题库模块（ID 与客户端约定的模块编号保持一致）
	var count int64
	db.Model(&model.QuestionBankModule{}).Count(&count)
	if count == 0 {
		defaultModules := []model.QuestionBankModule{
			{Name: "Word文档", Type: "word", Description: "Word文档编辑与排版", Order: 1, IsEnabled: true},
			{Name: "Excel表格", Type: "excel", Description: "Excel数据处理与分析", Order: 2, IsEnabled: true},
			{Name: "PowerPoint演示文稿", Type: "ppt", Description: "PowerPoint演示文稿制作与编辑", Order: 3, IsEnabled: true},
			{Name: "C#编程", Type: "csharp", Description: "C#程序设计", Order: 4, IsEnabled: true},
			{Name: "Windows操作系统", Type: "windows", Description: "Windows基本操作", Order: 5, IsEnabled: true},
		}
		for _, m := range defaultModules {
			db.Create(&m)
		}
	}

	return db, nil
}
