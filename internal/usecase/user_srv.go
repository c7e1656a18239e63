package usecase

import (
	"context"
	"strings"
	"time"

	"marketplace-api/internal/data/entity"
	"marketplace-api/internal/data/repository"
	"marketplace-api/internal/dto/request"
	"marketplace-api/internal/dto/response"
	"marketplace-api/pkg/utils"

	"github.com/google/uuid"
	"github.com/samber/oops"
	"go.uber.org/zap"
)

type UserService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*response.UserResponse, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req *request.UpdateProfileRequest) (*response.UserResponse, error)
}

type userService struct {
	userRepo repository.UserRepository
	log      *zap.Logger
	now      func() time.Time
}

func NewUserService(userRepo repository.UserRepository, log *zap.Logger, clock func() time.Time) UserService {
	if clock == nil {
		clock = time.Now
	}
	return &userService{
		userRepo: userRepo,
		log:      log.With(zap.String("service", "user")),
		now:      clock,
	}
}

func (us *userService) GetProfile(ctx context.Context, userID uuid.UUID) (*response.UserResponse, error) {
	user, err := us.find(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := response.UserToResponse(user)
	return &resp, nil
}

func (us *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *request.UpdateProfileRequest) (*response.UserResponse, error) {
	// 1. Validasi
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		us.log.Warn("Update profile validation failed", zap.Any("errors", errs))
		return nil, validationErr(errs)
	}

	// 2. Ambil user
	user, err := us.find(ctx, userID)
	if err != nil {
		return nil, err
	}

	// 3. Terapkan perubahan
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fieldErr("Name", "This field is required")
		}
		user.Name = name
	}
	if req.Phone != nil {
		user.Phone = emptyToNil(*req.Phone)
	}
	if req.Avatar != nil {
		user.Avatar = emptyToNil(*req.Avatar)
	}
	if req.DateOfBirth != nil {
		dob, err := time.Parse(time.DateOnly, *req.DateOfBirth)
		if err != nil {
			return nil, fieldErr("DateOfBirth", "Invalid date format")
		}
		if dob.After(us.now()) {
			return nil, fieldErr("DateOfBirth", "Date of birth cannot be in the future")
		}
		user.DateOfBirth = &dob
	}
	if req.Address != nil {
		user.Address = *req.Address
	}
	if p := req.Preferences; p != nil {
		if p.Language != "" {
			user.Preferences.Language = p.Language
		}
		if p.Currency != "" {
			user.Preferences.Currency = strings.ToUpper(p.Currency)
		}
		if p.Notifications != nil {
			user.Preferences.Notifications = *p.Notifications
		}
	}
	user.UpdatedAt = us.now()

	// 4. Simpan
	if err := us.userRepo.UpdateProfile(ctx, user); err != nil {
		utils.LogError(us.log, "Failed to update profile", err, zap.String("user_id", userID.String()))
		return nil, storeErr("update_profile", err)
	}

	us.log.Info("Profile updated", zap.String("user_id", userID.String()))
	resp := response.UserToResponse(user)
	return &resp, nil
}

func (us *userService) find(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := us.userRepo.FindByID(ctx, userID)
	if err != nil {
		utils.LogError(us.log, "Failed to find user", err, zap.String("user_id", userID.String()))
		return nil, storeErr("find_by_id", err)
	}
	if user == nil {
		return nil, oops.Code("USER_NOT_FOUND").With("user_id", userID.String()).Wrap(ErrNotFound)
	}
	return user, nil
}

func emptyToNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
