package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/neurohabit/internal/db"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// 令牌有效期
const tokenTTL = 24 * time.Hour

const currentUserContextKey = "__current_user"

type registerPayload struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register 处理用户注册请求
func (a *API) Register(c *gin.Context) {
	var payload registerPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	email := strings.TrimSpace(strings.ToLower(payload.Email))
	if email == "" || !strings.Contains(email, "@") {
		respondError(c, http.StatusBadRequest, "邮箱格式不正确")
		return
	}
	if len(payload.Password) < 6 {
		respondError(c, http.StatusBadRequest, "密码至少 6 位")
		return
	}

	var existing db.User
	err := a.db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		respondError(c, http.StatusBadRequest, "邮箱已被注册")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, http.StatusInternalServerError, "注册失败")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "注册失败")
		return
	}

	user := db.User{
		Email:    email,
		FullName: strings.TrimSpace(payload.FullName),
		Password: string(hashed),
		IsActive: true,
	}
	if err := a.db.Create(&user).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "注册失败")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": userToPayload(user)})
}

// Login 校验凭据并签发 JWT
func (a *API) Login(c *gin.Context) {
	var payload loginPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	email := strings.TrimSpace(strings.ToLower(payload.Email))

	var user db.User
	if err := a.db.Where("email = ?", email).First(&user).Error; err != nil {
		respondError(c, http.StatusUnauthorized, "邮箱或密码错误")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(payload.Password)); err != nil {
		respondError(c, http.StatusUnauthorized, "邮箱或密码错误")
		return
	}

	if !user.IsActive {
		respondError(c, http.StatusForbidden, "账号已停用")
		return
	}

	token, err := a.issueToken(user)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "签发令牌失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

func (a *API) issueToken(user db.User) (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(user.ID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}

// AuthRequired 是基于 Bearer JWT 的认证中间件，
// 解析通过后把当前用户挂到请求上下文。
func (a *API) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			respondError(c, http.StatusUnauthorized, "请先登录")
			c.Abort()
			return
		}

		raw := strings.TrimPrefix(header, "Bearer ")
		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return a.jwtSecret, nil
		})
		if err != nil || !token.Valid {
			respondError(c, http.StatusUnauthorized, "登录已失效")
			c.Abort()
			return
		}

		userID, err := strconv.ParseUint(claims.Subject, 10, 32)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "登录已失效")
			c.Abort()
			return
		}

		var user db.User
		if err := a.db.First(&user, uint(userID)).Error; err != nil || !user.IsActive {
			respondError(c, http.StatusUnauthorized, "登录已失效")
			c.Abort()
			return
		}

		c.Set(currentUserContextKey, &user)
		c.Next()
	}
}

// currentUser 取出认证中间件挂载的用户，缺失说明路由未挂中间件。
func currentUser(c *gin.Context) (*db.User, bool) {
	value, exists := c.Get(currentUserContextKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*db.User)
	return user, ok
}

func userToPayload(user db.User) gin.H {
	return gin.H{
		"id":             user.ID,
		"email":          user.Email,
		"full_name":      user.FullName,
		"is_active":      user.IsActive,
		"is_premium":     user.IsPremium,
		"pet_level":      user.PetLevel,
		"pet_experience": user.PetExperience,
		"pet_happiness":  user.PetHappiness,
		"created_at":     user.CreatedAt.Format(time.RFC3339),
	}
}
