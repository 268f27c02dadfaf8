package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"campusmarket/internal/models"
	"campusmarket/internal/utils"
)

// Общие структуры запросов и ответов для Swagger и тестов

type RegisterRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	Nickname        string `json:"nickname"`
	Campus          string `json:"campus"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Code     string `json:"code"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ChangePasswordRequest struct {
	OldPassword     string `json:"old_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type Enable2FARequest struct {
	Password string `json:"password"`
}

type Enable2FAResponse struct {
	Secret string `json:"secret"`
	URL    string `json:"url"`
}

type ProfileResponse struct {
	Username     string `json:"username"`
	Nickname     string `json:"nickname"`
	Campus       string `json:"campus"`
	TwoFAEnabled bool   `json:"twofa_enabled"`
}

func issueTokens(db *gorm.DB, userID string, ttl map[string]time.Duration) (TokenResponse, error) {
	accessStr, err := utils.GenerateNanoID()
	if err != nil {
		return TokenResponse{}, err
	}
	refreshStr, err := utils.GenerateNanoID()
	if err != nil {
		return TokenResponse{}, err
	}
	access := models.Token{UserID: userID, Token: accessStr, Type: "access", ExpiresAt: time.Now().Add(ttl["access"])}
	refresh := models.Token{UserID: userID, Token: refreshStr, Type: "refresh", ExpiresAt: time.Now().Add(ttl["refresh"])}
	if err := db.Create(&access).Error; err != nil {
		return TokenResponse{}, err
	}
	if err := db.Create(&refresh).Error; err != nil {
		return TokenResponse{}, err
	}
	return TokenResponse{AccessToken: accessStr, RefreshToken: refreshStr}, nil
}

// Register godoc
// @Summary Регистрация пользователя
// @Tags auth
// @Accept json
// @Produce json
// @Param input body RegisterRequest true "данные регистрации"
// @Success 200 {object} Response{data=TokenResponse}
// @Failure 400 {object} Response
// @Failure 409 {object} Response
// @Router /auth/register [post]
func Register(db *gorm.DB, ttl map[string]time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var r RegisterRequest
		if err := c.BindJSON(&r); err != nil || r.Username == "" || r.Password == "" {
			respondErr(c, http.StatusBadRequest, "invalid json")
			return
		}
		if r.Password != r.PasswordConfirm {
			respondErr(c, http.StatusBadRequest, "passwords do not match")
			return
		}
		var count int64
		db.Model(&models.User{}).Where("username = ?", r.Username).Count(&count)
		if count > 0 {
			respondConflict(c, "username exists")
			return
		}
		pwdHash, err := bcrypt.GenerateFromPassword([]byte(r.Password), bcrypt.DefaultCost)
		if err != nil {
			respondErr(c, http.StatusInternalServerError, "hash error")
			return
		}
		pwd := string(pwdHash)
		user := models.User{Username: r.Username, Nickname: r.Nickname, Campus: r.Campus, Password: &pwd}
		if user.Nickname == "" {
			user.Nickname = r.Username
		}
		if err := db.Create(&user).Error; err != nil {
			respondErr(c, http.StatusInternalServerError, "db error")
			return
		}
		tokens, err := issueTokens(db, user.ID, ttl)
		if err != nil {
			respondErr(c, http.StatusInternalServerError, "token error")
			return
		}
		respondOK(c, tokens)
	}
}

// Login godoc
// @Summary Вход пользователя
// @Description Аутентифицирует пользователя и выдаёт пару токенов. При включённой 2FA требуется код.
// @Tags auth
// @Accept json
// @Produce json
// @Param input body LoginRequest true "учётные данные"
// @Success 200 {object} Response{data=TokenResponse}
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Router /auth/login [post]
func Login(db *gorm.DB, ttl map[string]time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var r LoginRequest
		if err := c.BindJSON(&r); err != nil {
			respondErr(c, http.StatusBadRequest, "invalid json")
			return
		}
		var user models.User
		if err := db.Where("username = ?", r.Username).First(&user).Error; err != nil {
			respondErr(c, http.StatusUnauthorized, "invalid credentials")
			return
		}
		if user.Password == nil || bcrypt.CompareHashAndPassword([]byte(*user.Password), []byte(r.Password)) != nil {
			respondErr(c, http.StatusUnauthorized, "invalid credentials")
			return
		}
		if user.TwoFAEnabled {
			if r.Code == "" || user.TOTPSecret == nil || !totp.Validate(r.Code, *user.TOTPSecret) {
				respondErr(c, http.StatusUnauthorized, "invalid code")
				return
			}
		}
		tokens, err := issueTokens(db, user.ID, ttl)
		if err != nil {
			respondErr(c, http.StatusInternalServerError, "token error")
			return
		}
		respondOK(c, tokens)
	}
}

// Refresh godoc
// @Summary Обновление access токена
// @Tags auth
// @Accept json
// @Produce json
// @Param input body RefreshRequest true "refresh токен"
// @Success 200 {object} Response{data=TokenResponse}
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Router /auth/refresh [post]
func Refresh(db *gorm.DB, ttl map[string]time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var r RefreshRequest
		if err := c.BindJSON(&r); err != nil {
			respondErr(c, http.StatusBadRequest, "invalid json")
			return
		}
		var token models.Token
		if err := db.Where("token = ? AND type = ?", r.RefreshToken, "refresh").First(&token).Error; err != nil {
			respondErr(c, http.StatusUnauthorized, "invalid token")
			return
		}
		if token.ExpiresAt.Before(time.Now()) {
			respondErr(c, http.StatusUnauthorized, "token expired")
			return
		}
		db.Delete(&token)
		tokens, err := issueTokens(db, token.UserID, ttl)
		if err != nil {
			respondErr(c, http.StatusInternalServerError, "token error")
			return
		}
		respondOK(c, tokens)
	}
}

// Logout godoc
// @Summary Выход пользователя
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} Response
// @Router /auth/logout [post]
func Logout(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := actorID(c)
		if !ok {
			return
		}
		db.Where("user_id = ?", userID).Delete(&models.Token{})
		respondOK(c, nil)
	}
}

// Profile godoc
// @Summary Профиль текущего пользователя
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} Response{data=ProfileResponse}
// @Router /auth/profile [get]
func Profile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := actorID(c)
		if !ok {
			return
		}
		var user models.User
		if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
			respondErr(c, http.StatusUnauthorized, "invalid user")
			return
		}
		respondOK(c, ProfileResponse{
			Username:     user.Username,
			Nickname:     user.Nickname,
			Campus:       user.Campus,
			TwoFAEnabled: user.TwoFAEnabled,
		})
	}
}

// ChangePassword godoc
// @Summary Смена пароля
// @Tags auth
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param input body ChangePasswordRequest true "пароли"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Router /auth/password [post]
func ChangePassword(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := actorID(c)
		if !ok {
			return
		}
		var r ChangePasswordRequest
		if err := c.BindJSON(&r); err != nil || r.NewPassword == "" {
			respondErr(c, http.StatusBadRequest, "invalid json")
			return
		}
		if r.NewPassword != r.ConfirmPassword {
			respondErr(c, http.StatusBadRequest, "passwords do not match")
			return
		}
		var user models.User
		if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
			respondErr(c, http.StatusUnauthorized, "invalid user")
			return
		}
		if user.Password == nil || bcrypt.CompareHashAndPassword([]byte(*user.Password), []byte(r.OldPassword)) != nil {
			respondErr(c, http.StatusUnauthorized, "invalid credentials")
			return
		}
		pwdHash, err := bcrypt.GenerateFromPassword([]byte(r.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			respondErr(c, http.StatusInternalServerError, "hash error")
			return
		}
		if err := db.Model(&user).Update("password", string(pwdHash)).Error; err != nil {
			respondErr(c, http.StatusInternalServerError, "db error")
			return
		}
		respondOK(c, nil)
	}
}

// Enable2FA godoc
// @Summary Включение двухфакторной аутентификации
// @Tags auth
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param input body Enable2FARequest true "пароль"
// @Success 200 {object} Response{data=Enable2FAResponse}
// @Failure 401 {object} Response
// @Router /auth/2fa/enable [post]
func Enable2FA(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := actorID(c)
		if !ok {
			return
		}
		var r Enable2FARequest
		if err := c.BindJSON(&r); err != nil {
			respondErr(c, http.StatusBadRequest, "invalid json")
			return
		}
		var user models.User
		if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
			respondErr(c, http.StatusUnauthorized, "invalid user")
			return
		}
		if user.Password == nil || bcrypt.CompareHashAndPassword([]byte(*user.Password), []byte(r.Password)) != nil {
			respondErr(c, http.StatusUnauthorized, "invalid credentials")
			return
		}
		key, err := totp.Generate(totp.GenerateOpts{Issuer: "campusmarket", AccountName: user.Username})
		if err != nil {
			respondErr(c, http.StatusInternalServerError, "totp error")
			return
		}
		secret := key.Secret()
		if err := db.Model(&user).Updates(map[string]any{"totp_secret": secret, "two_fa_enabled": true}).Error; err != nil {
			respondErr(c, http.StatusInternalServerError, "db error")
			return
		}
		respondOK(c, Enable2FAResponse{Secret: secret, URL: key.URL()})
	}
}

// AuthMiddleware проверяет access токен и кладёт идентификатор пользователя
// в контекст запроса. Токен принимается из заголовка Authorization или,
// для вебсокетов, из query-параметра token.
func AuthMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := ""
		header := c.GetHeader("Authorization")
		if parts := strings.SplitN(header, " ", 2); len(parts) == 2 && parts[0] == "Bearer" {
			tokenStr = parts[1]
		}
		if tokenStr == "" {
			tokenStr = c.Query("token")
		}
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Code: http.StatusUnauthorized, Message: "invalid authorization"})
			return
		}
		var token models.Token
		if err := db.Where("token = ? AND type = ?", tokenStr, "access").First(&token).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Code: http.StatusUnauthorized, Message: "invalid token"})
			return
		}
		if token.ExpiresAt.Before(time.Now()) {
			db.Delete(&token)
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Code: http.StatusUnauthorized, Message: "token expired"})
			return
		}
		c.Set("user_id", token.UserID)
		c.Next()
	}
}
