package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"telecare-server/internal/models"
	"telecare-server/internal/utils"
)

// UserHandler handles user directory and admin account operations.
type UserHandler struct {
	DB *gorm.DB
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{DB: db}
}

// DoctorListing is the shape returned to patients browsing doctors.
type DoctorListing struct {
	ID             string `json:"id"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Specialization string `json:"specialization"`
	Qualification  string `json:"qualification,omitempty"`
	ExperienceYrs  int    `json:"experienceYears"`
	ClinicAddress  string `json:"clinicAddress,omitempty"`
	FeeAmount      int    `json:"feeAmount"`
}

// GetDoctors returns active, admin-verified doctors with their profiles.
// An optional ?specialty= filter narrows by specialization (case-insensitive).
func (h *UserHandler) GetDoctors(c *gin.Context) {
	query := h.DB.Model(&models.User{}).
		Preload("Profile").
		Where("role = ? AND is_active = ? AND admin_verification_status = ?",
			models.RoleDoctor, true, models.VerificationVerified)

	var doctors []models.User
	if err := query.Find(&doctors).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch doctors: "+err.Error())
		return
	}

	specialty := strings.TrimSpace(c.Query("specialty"))
	listings := make([]DoctorListing, 0, len(doctors))
	for _, d := range doctors {
		if d.Profile == nil {
			continue
		}
		if specialty != "" && !strings.EqualFold(d.Profile.Specialization, specialty) {
			continue
		}
		listings = append(listings, DoctorListing{
			ID:             d.ID,
			FirstName:      d.FirstName,
			LastName:       d.LastName,
			Specialization: d.Profile.Specialization,
			Qualification:  d.Profile.Qualification,
			ExperienceYrs:  d.Profile.ExperienceYrs,
			ClinicAddress:  d.Profile.ClinicAddress,
			FeeAmount:      d.Profile.FeeAmount,
		})
	}

	utils.Success(c, listings)
}

// GetUsers handles fetching all users (admin).
func (h *UserHandler) GetUsers(c *gin.Context) {
	var users []models.User
	if err := h.DB.Find(&users).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch users: "+err.Error())
		return
	}

	sanitized := make([]models.UserSanitized, len(users))
	for i, u := range users {
		sanitized[i] = u.Sanitize()
	}
	utils.Success(c, sanitized)
}

// GetUserByID handles fetching a single user by ID (admin).
func (h *UserHandler) GetUserByID(c *gin.Context) {
	userID := c.Param("id")

	var user models.User
	if err := h.DB.Preload("Profile").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "User not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}
	utils.Success(c, user.Sanitize())
}
