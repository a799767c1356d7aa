package service

import (
	"errors"
	"fmt"

	"github.com/neurohabit/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 游戏化规则常量
const (
	xpPerCompletion        = 10
	happinessPerCompletion = 2
	xpPerLevelFactor       = 100
	happinessMin           = 0
	happinessMax           = 100
)

// ErrUserNotFound 在指定用户不存在时返回
var ErrUserNotFound = errors.New("user not found")

// PetState 是宠物的游戏化状态快照。
// Experience 在每次升级时扣除当级阈值归零重计，不跨级累计。
type PetState struct {
	Level      int
	Experience int
	Happiness  int
}

// ApplyCompletion 对一次合格的完成事件施加游戏化增量，纯函数：
// 经验 +10，经验达到 level*100 时升级并扣除阈值（支持一次跨多级），
// 快乐值 +2 并钳制到 [0,100]。调用方保证同一逻辑完成只调用一次。
// 快乐值随时间衰减是预留扩展，当前不做任何处理。
func ApplyCompletion(pet PetState) PetState {
	if pet.Level < 1 {
		pet.Level = 1
	}
	if pet.Experience < 0 {
		pet.Experience = 0
	}

	pet.Experience += xpPerCompletion
	for pet.Experience >= pet.Level*xpPerLevelFactor {
		pet.Experience -= pet.Level * xpPerLevelFactor
		pet.Level++
	}

	pet.Happiness = clampInt(pet.Happiness+happinessPerCompletion, happinessMin, happinessMax)
	return pet
}

// PetService 负责把游戏化增量落回用户行。
type PetService struct {
	db *gorm.DB
}

// NewPetService 构造 PetService
func NewPetService(gdb *gorm.DB) *PetService {
	return &PetService{db: gdb}
}

// Reward 在事务内对用户行加锁后应用一次完成奖励。
// 与事件写入共用同一事务，保证同一用户的并发完成串行生效。
func (s *PetService) Reward(tx *gorm.DB, userID uint) (PetState, error) {
	var user db.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PetState{}, ErrUserNotFound
		}
		return PetState{}, fmt.Errorf("lock user: %w", err)
	}

	next := ApplyCompletion(PetState{
		Level:      user.PetLevel,
		Experience: user.PetExperience,
		Happiness:  user.PetHappiness,
	})

	if err := tx.Model(&db.User{}).Where("id = ?", userID).
		Updates(map[string]interface{}{
			"pet_level":      next.Level,
			"pet_experience": next.Experience,
			"pet_happiness":  next.Happiness,
		}).Error; err != nil {
		return PetState{}, fmt.Errorf("update pet stats: %w", err)
	}

	return next, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
