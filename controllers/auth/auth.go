package authController

import (
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"subminder/apperror"
	"subminder/config"
	"subminder/logger"
	"subminder/middleware"
	"subminder/models"
	"subminder/repository"
	authValidator "subminder/validators/auth"
)

type Controller struct {
	users *repository.UserRepository
}

func New(users *repository.UserRepository) *Controller {
	return &Controller{users: users}
}

func (h *Controller) Signup(c *fiber.Ctx) error {
	reqData := c.Locals("validatedUser").(*authValidator.SignupRequest)
	ctx := c.UserContext()

	exists, err := h.users.ExistsByEmailOrUsername(ctx, reqData.Email, reqData.Username)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	if exists {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Email or username is already registered!", nil)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(reqData.Password), config.AppConfig.SaltRound)
	if err != nil {
		logger.L.Errorw("error hashing password", "error", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to process your request!", nil)
	}

	newUser := &models.User{
		ID:       uuid.NewString(),
		Username: reqData.Username,
		Email:    reqData.Email,
		Password: string(hashedPassword),
	}
	if err := h.users.Create(ctx, newUser); err != nil {
		// a concurrent signup took the email or username after the check above
		if errors.Is(err, apperror.ErrConflict) {
			return middleware.JsonResponse(c, fiber.StatusConflict, false, "Email or username is already registered!", nil)
		}
		return middleware.ErrorResponse(c, err)
	}

	token, err := middleware.GenerateJWT(newUser.ID, newUser.Username, newUser.Email)
	if err != nil {
		logger.L.Errorw("error generating token", "error", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to generate token!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "User registered successfully.", fiber.Map{
		"token": token,
		"user":  newUser,
	})
}

func (h *Controller) Login(c *fiber.Ctx) error {
	reqData := c.Locals("validatedUser").(*authValidator.LoginRequest)

	user, err := h.users.FindByEmail(c.UserContext(), reqData.Email)
	if errors.Is(err, apperror.ErrNotFound) {
		// an unknown email and a wrong password look the same to the caller
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid credentials!", nil)
	}
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(reqData.Password)); err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid credentials!", nil)
	}

	token, err := middleware.GenerateJWT(user.ID, user.Username, user.Email)
	if err != nil {
		logger.L.Errorw("error generating token", "error", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to generate token!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Login successful.", fiber.Map{
		"token": token,
		"user":  user,
	})
}

func (h *Controller) Profile(c *fiber.Ctx) error {
	user, err := h.users.FindByID(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Profile fetched successfully.", user)
}
