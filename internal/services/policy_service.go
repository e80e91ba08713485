package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Wikid82/warden/internal/models"
	"github.com/Wikid82/warden/internal/policy"
)

var (
	ErrProfileNotFound    = errors.New("profile not found")
	ErrProfileNotAssigned = errors.New("profile is not assigned to this user")
	ErrInvalidProfile     = errors.New("invalid profile")
	ErrUserUnresolvable   = errors.New("user identity could not be resolved")
)

// ProfileAssignment is the API shape for one profile's user list.
type ProfileAssignment struct {
	ProfileID string        `json:"profile_id"`
	Users     []models.User `json:"users"`
}

// PolicyService owns profiles, assignments and user identities. All
// mutations run in a single transaction so partial writes are never
// observable.
type PolicyService struct {
	db *gorm.DB
}

func NewPolicyService(db *gorm.DB) *PolicyService {
	return &PolicyService{db: db}
}

func (s *PolicyService) validateProfile(p *models.Profile) error {
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProfile)
	}
	if !p.DefaultElevationKind.Valid() {
		return fmt.Errorf("%w: unknown elevation kind %q", ErrInvalidProfile, p.DefaultElevationKind)
	}
	if p.ElevationMethod != models.MethodLocalAdmin && p.ElevationMethod != models.MethodVirtualAccount {
		return fmt.Errorf("%w: unknown elevation method %q", ErrInvalidProfile, p.ElevationMethod)
	}
	if err := policy.ValidateRules(p.Rules); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	return nil
}

// CreateProfile validates and stores a new profile.
func (s *PolicyService) CreateProfile(p *models.Profile) error {
	if err := s.validateProfile(p); err != nil {
		return err
	}
	return s.db.Create(p).Error
}

// GetProfile fetches a profile by its external UUID.
func (s *PolicyService) GetProfile(id string) (*models.Profile, error) {
	var p models.Profile
	if err := s.db.Where("uuid = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ListProfiles returns all profile ids.
func (s *PolicyService) ListProfiles() ([]string, error) {
	var ids []string
	if err := s.db.Model(&models.Profile{}).Order("id").Pluck("uuid", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// UpdateProfile replaces the mutable fields of a profile in place. The UUID
// is immutable once created; last writer wins, but the write is atomic.
func (s *PolicyService) UpdateProfile(id string, updates *models.Profile) (*models.Profile, error) {
	if err := s.validateProfile(updates); err != nil {
		return nil, err
	}

	var p models.Profile
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("uuid = ?", id).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProfileNotFound
			}
			return err
		}

		p.Name = updates.Name
		p.Description = updates.Description
		p.ElevationMethod = updates.ElevationMethod
		p.DefaultElevationKind = updates.DefaultElevationKind
		p.TargetMustBeSigned = updates.TargetMustBeSigned
		p.PromptSecureDesktop = updates.PromptSecureDesktop
		p.Rules = updates.Rules

		return tx.Save(&p).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProfile removes a profile, cascading to its assignments and any
// active selections pointing at it.
func (s *PolicyService) DeleteProfile(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var p models.Profile
		if err := tx.Where("uuid = ?", id).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProfileNotFound
			}
			return err
		}

		if err := tx.Where("profile_id = ?", p.ID).Delete(&models.Assignment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("profile_id = ?", p.ID).Delete(&models.UserProfile{}).Error; err != nil {
			return err
		}
		return tx.Delete(&p).Error
	})
}

// ResolveUser returns the stored identity for the SID quadruple, creating it
// on first sight. Identities are immutable once recorded.
func (s *PolicyService) ResolveUser(u models.User) (*models.User, error) {
	if u.AccountSid == "" || u.AccountName == "" {
		return nil, ErrUserUnresolvable
	}

	var stored models.User
	err := s.db.Where(&models.User{
		AccountName: u.AccountName,
		DomainName:  u.DomainName,
		AccountSid:  u.AccountSid,
		DomainSid:   u.DomainSid,
	}).FirstOrCreate(&stored).Error
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// ListUsers returns every identity the daemon has seen.
func (s *PolicyService) ListUsers() ([]models.User, error) {
	var users []models.User
	if err := s.db.Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// GetAssignments returns the user list of every profile.
func (s *PolicyService) GetAssignments() ([]ProfileAssignment, error) {
	var profiles []models.Profile
	if err := s.db.Order("id").Find(&profiles).Error; err != nil {
		return nil, err
	}

	out := make([]ProfileAssignment, 0, len(profiles))
	for _, p := range profiles {
		users, err := s.assignedUsers(p.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, ProfileAssignment{ProfileID: p.UUID, Users: users})
	}
	return out, nil
}

// GetAssignment returns the user list for one profile.
func (s *PolicyService) GetAssignment(profileID string) (ProfileAssignment, error) {
	p, err := s.GetProfile(profileID)
	if err != nil {
		return ProfileAssignment{}, err
	}
	users, err := s.assignedUsers(p.ID)
	if err != nil {
		return ProfileAssignment{}, err
	}
	return ProfileAssignment{ProfileID: p.UUID, Users: users}, nil
}

func (s *PolicyService) assignedUsers(profileID uint) ([]models.User, error) {
	var assignments []models.Assignment
	if err := s.db.Preload("User").Where("profile_id = ?", profileID).Find(&assignments).Error; err != nil {
		return nil, err
	}
	users := make([]models.User, 0, len(assignments))
	for _, a := range assignments {
		users = append(users, a.User)
	}
	return users, nil
}

// SetAssignment replaces the user set of a profile. Users unknown so far are
// recorded. Selections of users dropped from the set are cleared.
func (s *PolicyService) SetAssignment(profileID string, users []models.User) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var p models.Profile
		if err := tx.Where("uuid = ?", profileID).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProfileNotFound
			}
			return err
		}

		if err := tx.Where("profile_id = ?", p.ID).Delete(&models.Assignment{}).Error; err != nil {
			return err
		}

		keep := make([]uint, 0, len(users))
		for _, u := range users {
			var stored models.User
			if err := tx.Where(&models.User{
				AccountName: u.AccountName,
				DomainName:  u.DomainName,
				AccountSid:  u.AccountSid,
				DomainSid:   u.DomainSid,
			}).FirstOrCreate(&stored).Error; err != nil {
				return err
			}
			keep = append(keep, stored.ID)
			if err := tx.Create(&models.Assignment{ProfileID: p.ID, UserID: stored.ID}).Error; err != nil {
				return err
			}
		}

		// A user removed from the assignment loses their active selection.
		q := tx.Where("profile_id = ?", p.ID)
		if len(keep) > 0 {
			q = q.Where("user_id NOT IN ?", keep)
		}
		return q.Delete(&models.UserProfile{}).Error
	})
}

// ActiveProfile returns the user's active profile id and the list of
// profiles available to them. When no profile is active the id is the
// all-zero UUID rather than an error.
func (s *PolicyService) ActiveProfile(u models.User) (string, []string, error) {
	available := []string{}

	var stored models.User
	err := s.db.Where(&models.User{
		AccountName: u.AccountName,
		DomainName:  u.DomainName,
		AccountSid:  u.AccountSid,
		DomainSid:   u.DomainSid,
	}).First(&stored).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil.String(), available, nil
		}
		return "", nil, err
	}

	var assignments []models.Assignment
	if err := s.db.Preload("Profile").Where("user_id = ?", stored.ID).Find(&assignments).Error; err != nil {
		return "", nil, err
	}
	for _, a := range assignments {
		available = append(available, a.Profile.UUID)
	}

	active := uuid.Nil.String()
	var sel models.UserProfile
	err = s.db.Preload("Profile").Where("user_id = ?", stored.ID).First(&sel).Error
	switch {
	case err == nil:
		active = sel.Profile.UUID
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return "", nil, err
	}

	return active, available, nil
}

// SetActiveProfile selects one of the user's assigned profiles as active.
func (s *PolicyService) SetActiveProfile(u models.User, profileID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var p models.Profile
		if err := tx.Where("uuid = ?", profileID).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProfileNotFound
			}
			return err
		}

		var stored models.User
		if err := tx.Where(&models.User{
			AccountName: u.AccountName,
			DomainName:  u.DomainName,
			AccountSid:  u.AccountSid,
			DomainSid:   u.DomainSid,
		}).First(&stored).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProfileNotAssigned
			}
			return err
		}

		var count int64
		if err := tx.Model(&models.Assignment{}).
			Where("profile_id = ? AND user_id = ?", p.ID, stored.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrProfileNotAssigned
		}

		sel := models.UserProfile{UserID: stored.ID, ProfileID: p.ID}
		return tx.Save(&sel).Error
	})
}

// ActiveProfileModel returns the full active profile for evaluation, or nil
// when the user has none.
func (s *PolicyService) ActiveProfileModel(u models.User) (*models.Profile, error) {
	var stored models.User
	err := s.db.Where(&models.User{
		AccountName: u.AccountName,
		DomainName:  u.DomainName,
		AccountSid:  u.AccountSid,
		DomainSid:   u.DomainSid,
	}).First(&stored).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var sel models.UserProfile
	err = s.db.Preload("Profile").Where("user_id = ?", stored.ID).First(&sel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sel.Profile, nil
}
