package db

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User 定义了用户模型
// PetLevel/PetExperience/PetHappiness 为游戏化宠物状态，仅由 PetService 修改
// IsPremium 预留付费标记，当前不做任何功能限制
type User struct {
	gorm.Model
	Email         string `gorm:"unique;not null"`
	FullName      string
	Password      string `gorm:"not null"`
	IsActive      bool   `gorm:"default:true"`
	IsPremium     bool   `gorm:"default:false"`
	PetLevel      int    `gorm:"default:1"`
	PetExperience int    `gorm:"default:0"`
	PetHappiness  int    `gorm:"default:50"`
}

// EnsureUser 存在性检查：若提供的邮箱与密码均非空且不存在对应账号，则创建一个 bcrypt 哈希的用户。
func EnsureUser(email, password string) error {
	trimmedEmail := strings.TrimSpace(email)
	trimmedPassword := strings.TrimSpace(password)
	if trimmedEmail == "" || trimmedPassword == "" {
		return nil
	}

	if DB == nil {
		return errors.New("database not initialized")
	}

	var existing User
	if err := DB.Where("email = ?", trimmedEmail).First(&existing).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(trimmedPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		return DB.Create(&User{Email: trimmedEmail, Password: string(hashed)}).Error
	}

	return nil
}
