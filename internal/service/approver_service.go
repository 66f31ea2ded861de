package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"posbackend/internal/model"
	"posbackend/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DTOs for Request validation
type SetApprovalPINRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	PIN             string `json:"pin" binding:"required"`
}

type ApproverResponse struct {
	ID             uuid.UUID `json:"id"`
	Username       string    `json:"username"`
	Role           string    `json:"role"`
	HasApprovalPIN bool      `json:"has_approval_pin"`
	UpdatedAt      string    `json:"updated_at"`
}

// ApproverService lets privileged staff enrol the PIN the approval gate checks
type ApproverService interface {
	SetApprovalPIN(ctx context.Context, sc SettlementContext, req SetApprovalPINRequest) (*ApproverResponse, error)
}

type approverService struct {
	repo    repository.UserRepository
	pinCost int
}

var pinPattern = regexp.MustCompile(`^[0-9]{4,8}$`)

// NewApproverService returns a new instance of ApproverService. pinCost is the
// bcrypt cost used for new PIN hashes.
func NewApproverService(repo repository.UserRepository, pinCost int) ApproverService {
	if pinCost < bcrypt.MinCost {
		pinCost = bcrypt.DefaultCost
	}
	return &approverService{repo: repo, pinCost: pinCost}
}

func (s *approverService) SetApprovalPIN(ctx context.Context, sc SettlementContext, req SetApprovalPINRequest) (*ApproverResponse, error) {
	if err := sc.validate(); err != nil {
		return nil, err
	}
	if !pinPattern.MatchString(req.PIN) {
		return nil, validationError("pin must be 4 to 8 digits")
	}

	user, err := s.repo.GetByID(ctx, sc.TenantID, sc.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, ErrInternal.Wrap(err)
	}
	if !model.IsPrivilegedRole(user.Role) {
		return nil, validationError("role %s cannot approve settlements", user.Role)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		return nil, ErrInvalidCredentials
	}

	hash, err := HashPIN(req.PIN, s.pinCost)
	if err != nil {
		return nil, ErrInternal.Wrap(fmt.Errorf("failed to hash pin: %w", err))
	}

	if err := s.repo.UpdateManagerPIN(ctx, user.ID, hash); err != nil {
		return nil, ErrInternal.Wrap(err)
	}
	user.ManagerPINHash = &hash

	return &ApproverResponse{
		ID:             user.ID,
		Username:       user.Username,
		Role:           user.Role,
		HasApprovalPIN: true,
		UpdatedAt:      user.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}, nil
}
