package main

import (
	"fmt"
	"log"
	"time"

	"github.com/neurohabit/internal/config"
	"github.com/neurohabit/internal/db"
	"github.com/neurohabit/internal/service"
	"golang.org/x/crypto/bcrypt"
)

// 演示数据生成器：创建演示账号、若干习惯，并回填最近三周的完成记录。
// 完成事件走 EventService，连胜与宠物状态因此与线上路径一致。
func main() {
	cfg := config.Load()
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	fmt.Println("开始生成演示数据...")

	user := createDemoUser()
	habits := createDemoHabits(user.ID)
	backfillEvents(habits)

	fmt.Println("演示数据生成完成！")
	fmt.Println("账号: demo@neurohabit.dev (密码: demo1234)")
	fmt.Printf("习惯: %d 个，含最近三周打卡记录\n", len(habits))
}

// 创建演示用户
func createDemoUser() *db.User {
	var user db.User
	if err := db.DB.Where("email = ?", "demo@neurohabit.dev").First(&user).Error; err == nil {
		fmt.Println("演示用户已存在，跳过创建")
		return &user
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte("demo1234"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("密码加密失败:", err)
	}

	user = db.User{
		Email:    "demo@neurohabit.dev",
		FullName: "Demo User",
		Password: string(hashed),
	}
	if err := db.DB.Create(&user).Error; err != nil {
		log.Fatal("创建演示用户失败:", err)
	}
	return &user
}

// 创建演示习惯
func createDemoHabits(userID uint) []db.Habit {
	var count int64
	db.DB.Model(&db.Habit{}).Where("user_id = ?", userID).Count(&count)
	if count > 0 {
		var habits []db.Habit
		db.DB.Where("user_id = ?", userID).Find(&habits)
		fmt.Println("演示习惯已存在，跳过创建")
		return habits
	}

	habits := []db.Habit{
		{
			UserID:           userID,
			Title:            "晨间冥想",
			Description:      "起床后冥想十分钟",
			Category:         "mindfulness",
			Frequency:        db.FrequencyDaily,
			TargetCount:      1,
			Icon:             "🧘",
			DifficultyRating: 2,
			ImportanceRating: 5,
		},
		{
			UserID:           userID,
			Title:            "力量训练",
			Description:      "每周三次去健身房",
			Category:         "fitness",
			Frequency:        db.FrequencyCustom,
			TargetCount:      3,
			Icon:             "🏋️",
			DifficultyRating: 4,
			ImportanceRating: 4,
		},
		{
			UserID:           userID,
			Title:            "每周复盘",
			Description:      "周末写一篇复盘笔记",
			Category:         "productivity",
			Frequency:        db.FrequencyWeekly,
			TargetCount:      1,
			Icon:             "📓",
			DifficultyRating: 3,
			ImportanceRating: 3,
		},
	}

	for i := range habits {
		if err := db.DB.Create(&habits[i]).Error; err != nil {
			log.Fatal("创建演示习惯失败:", err)
		}
	}
	return habits
}

// 回填最近三周的完成事件
func backfillEvents(habits []db.Habit) {
	streaks := service.NewStreakService(db.DB, time.Local)
	pets := service.NewPetService(db.DB)
	events := service.NewEventService(db.DB, streaks, pets, time.Local)

	now := time.Now()
	mood := 4
	energy := 3

	for _, habit := range habits {
		step := 1
		if habit.Frequency == db.FrequencyWeekly {
			step = 7
		}
		for daysAgo := 21; daysAgo >= 0; daysAgo -= step {
			// 自定义频率的习惯隔天打卡，周频满足度保持在目标附近
			if habit.Frequency == db.FrequencyCustom && daysAgo%2 != 0 {
				continue
			}
			completedAt := now.AddDate(0, 0, -daysAgo).Add(-time.Duration(daysAgo) * time.Minute)
			input := service.EventInput{
				CompletedAt: &completedAt,
				Mood:        &mood,
				EnergyLevel: &energy,
			}
			if _, err := events.Log(habit.ID, habit.UserID, input, now); err != nil {
				log.Fatalf("回填习惯 %q 的完成事件失败: %v", habit.Title, err)
			}
		}
	}
}
