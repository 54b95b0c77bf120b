package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"anoa.com/alumninetwork/internal/entity"
	search "anoa.com/alumninetwork/internal/modules/search/service"
	"anoa.com/alumninetwork/internal/modules/signup/dto"
	"anoa.com/alumninetwork/internal/modules/signup/repository"
	userRepo "anoa.com/alumninetwork/internal/modules/user/repository"
	"anoa.com/alumninetwork/pkg/apperror"
	"anoa.com/alumninetwork/pkg/mailer"
	"anoa.com/alumninetwork/pkg/password"
	"anoa.com/alumninetwork/pkg/ratelimit"
	"anoa.com/alumninetwork/pkg/storage"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	otpRateScope = "signup_otp"
	photoFolder  = "signup"
)

var errInvalidOTP = fmt.Errorf("%w: invalid OTP", apperror.ErrUnauthorized)

type SignupService interface {
	IssueOTP(ctx context.Context, email string) error
	SubmitSignup(ctx context.Context, input dto.SubmitSignupInput) (*entity.PendingSignup, error)
	ApproveSignup(ctx context.Context, email string) (*entity.User, error)
	DenySignup(ctx context.Context, email string) error
	ListPending(ctx context.Context) ([]entity.PendingSignup, error)
	CleanupExpiredOTPs(ctx context.Context) (int64, error)
}

type Options struct {
	OTPTTL       time.Duration
	OTPRateLimit time.Duration
	// AdminEmail receives "new signup" notifications.
	AdminEmail string
	From       string
	Now        func() time.Time
}

type signupService struct {
	repo     repository.Repository
	users    userRepo.UserRepository
	hasher   password.Hasher
	sender   mailer.Sender
	images   storage.ImageStorage
	index    search.UserIndex
	limiter  *ratelimit.Limiter
	validate *validator.Validate
	opts     Options
}

func NewSignupService(
	repo repository.Repository,
	users userRepo.UserRepository,
	hasher password.Hasher,
	sender mailer.Sender,
	images storage.ImageStorage,
	index search.UserIndex,
	limiter *ratelimit.Limiter,
	opts Options,
) SignupService {
	if opts.OTPTTL == 0 {
		opts.OTPTTL = 5 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &signupService{
		repo:     repo,
		users:    users,
		hasher:   hasher,
		sender:   sender,
		images:   images,
		index:    index,
		limiter:  limiter,
		validate: validator.New(),
		opts:     opts,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *signupService) checkEmail(email string) error {
	if email == "" {
		return apperror.NewValidation("email is required", "email")
	}
	if err := s.validate.Var(email, "email"); err != nil {
		return apperror.NewValidation("email is not a valid address", "email")
	}
	return nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func (s *signupService) IssueOTP(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if err := s.checkEmail(email); err != nil {
		return err
	}

	allowed, err := s.limiter.Allow(ctx, otpRateScope, email, s.opts.OTPRateLimit)
	if err != nil {
		log.Printf("[signup] rate limit check failed for %s: %v", email, err)
	} else if !allowed {
		return fmt.Errorf("%w: an OTP was sent recently, please wait before requesting another", apperror.ErrRateLimitExceeded)
	}

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("failed to generate OTP: %w", err)
	}

	otp := &entity.SignupOTP{Email: email, Code: code, CreatedAt: s.opts.Now()}
	if err := s.repo.CreateOTP(ctx, otp); err != nil {
		return fmt.Errorf("failed to store OTP: %w", err)
	}

	msg := mailer.Message{
		Subject: "Your Signup OTP",
		Body: fmt.Sprintf("Your OTP for signup is %s\nOTP is valid for %d minutes",
			code, int(s.opts.OTPTTL.Minutes())),
		From: s.opts.From,
		To:   []string{email},
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		if _, delErr := s.repo.DeleteOTP(context.Background(), otp.ID); delErr != nil {
			log.Printf("[signup] failed to remove undelivered OTP %d: %v", otp.ID, delErr)
		}
		if clrErr := s.limiter.Clear(context.Background(), otpRateScope, email); clrErr != nil {
			log.Printf("[signup] failed to clear rate limit for %s: %v", email, clrErr)
		}
		return fmt.Errorf("%w: failed to send OTP email: %v", apperror.ErrDelivery, err)
	}

	return nil
}

func missingProfileFields(input dto.SubmitSignupInput) []string {
	var missing []string
	required := []struct {
		name  string
		value string
	}{
		{"name", input.Name},
		{"college_name", input.CollegeName},
		{"role", input.Role},
		{"phone", input.Phone},
		{"username", input.Username},
		{"password", input.Password},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

func (s *signupService) validateSubmission(ctx context.Context, input *dto.SubmitSignupInput) error {
	input.Email = normalizeEmail(input.Email)
	input.OTP = strings.TrimSpace(input.OTP)
	input.Username = strings.TrimSpace(input.Username)
	input.Role = strings.ToLower(strings.TrimSpace(input.Role))

	var missing []string
	if input.Email == "" {
		missing = append(missing, "email")
	}
	if input.OTP == "" {
		missing = append(missing, "otp")
	}
	if len(missing) > 0 {
		return apperror.NewValidation("email and OTP are required", missing...)
	}
	if err := s.checkEmail(input.Email); err != nil {
		return err
	}

	if missing := missingProfileFields(*input); len(missing) > 0 {
		return apperror.NewValidation("missing required fields: "+strings.Join(missing, ", "), missing...)
	}

	if input.Role != entity.RoleStudent && input.Role != entity.RoleStaff {
		return apperror.NewValidation("role must be student or staff", "role")
	}

	taken, err := s.users.ExistsByUsername(ctx, input.Username)
	if err != nil {
		return err
	}
	if !taken {
		taken, err = s.repo.UsernameTakenByOther(ctx, input.Username, input.Email)
		if err != nil {
			return err
		}
	}
	if taken {
		return fmt.Errorf("%w: username already exists", apperror.ErrConflict)
	}

	registered, err := s.users.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return err
	}
	if registered {
		return fmt.Errorf("%w: email is already registered", apperror.ErrConflict)
	}

	return nil
}

func (s *signupService) uploadPhoto(ctx context.Context, photo *dto.PhotoFile) (*string, error) {
	if photo == nil || photo.Reader == nil {
		return nil, nil
	}
	if s.images == nil {
		log.Printf("[signup] image storage not configured, dropping uploaded photo %q", photo.FileName)
		return nil, nil
	}

	url, err := s.images.UploadImage(ctx, photo.Reader, photoFolder, photo.FileName)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to upload photo: %v", apperror.ErrInvalidInput, err)
	}
	return &url, nil
}

func (s *signupService) deletePhotos(urls ...*string) {
	if s.images == nil {
		return
	}
	for _, url := range urls {
		if url == nil || *url == "" {
			continue
		}
		if err := s.images.DeleteImage(context.Background(), *url); err != nil {
			log.Printf("[signup] failed to delete image %s: %v", *url, err)
		}
	}
}

func (s *signupService) SubmitSignup(ctx context.Context, input dto.SubmitSignupInput) (*entity.PendingSignup, error) {
	if err := s.validateSubmission(ctx, &input); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	profilePhoto, err := s.uploadPhoto(ctx, input.ProfilePhoto)
	if err != nil {
		return nil, err
	}
	coverPhoto, err := s.uploadPhoto(ctx, input.CoverPhoto)
	if err != nil {
		s.deletePhotos(profilePhoto)
		return nil, err
	}

	socialLinks := input.SocialLinks
	if socialLinks == nil {
		socialLinks = entity.DefaultSocialLinks()
	}

	pending := &entity.PendingSignup{
		Email:        input.Email,
		Name:         strings.TrimSpace(input.Name),
		Role:         input.Role,
		Username:     input.Username,
		PasswordHash: hash,
		ProfileFields: entity.ProfileFields{
			CollegeName:   strings.TrimSpace(input.CollegeName),
			Phone:         strings.TrimSpace(input.Phone),
			SocialLinks:   socialLinks,
			ProfilePhoto:  profilePhoto,
			CoverPhoto:    coverPhoto,
			Bio:           input.Bio,
			ContactNumber: input.ContactNumber,
			PassedOutYear: input.PassedOutYear,
			CurrentWork:   input.CurrentWork,
			PreviousWork:  input.PreviousWork,
			Experience:    input.Experience,
		},
	}

	var expired bool
	var previous *entity.PendingSignup

	err = s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		otp, err := repo.LatestOTPForUpdate(ctx, input.Email)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errInvalidOTP
			}
			return err
		}
		if subtle.ConstantTimeCompare([]byte(otp.Code), []byte(input.OTP)) != 1 {
			return errInvalidOTP
		}

		if s.opts.Now().Sub(otp.CreatedAt) > s.opts.OTPTTL {
			if _, err := repo.DeleteOTP(ctx, otp.ID); err != nil {
				return err
			}
			expired = true
			return nil
		}

		previous, err = repo.FindPendingByEmail(ctx, input.Email)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := repo.UpsertPending(ctx, pending); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: username already exists", apperror.ErrConflict)
			}
			return err
		}

		deleted, err := repo.DeleteOTP(ctx, otp.ID)
		if err != nil {
			return err
		}
		if deleted != 1 {
			return errInvalidOTP
		}

		if err := s.sender.Send(ctx, s.adminNotification(pending)); err != nil {
			return fmt.Errorf("%w: failed to notify administrator: %v", apperror.ErrDelivery, err)
		}
		return nil
	})
	if err != nil || expired {
		s.deletePhotos(profilePhoto, coverPhoto)
	}
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, fmt.Errorf("%w: OTP has expired, please request a new one", apperror.ErrExpired)
	}

	if previous != nil {
		var stale []*string
		if !samePhoto(previous.ProfilePhoto, pending.ProfilePhoto) {
			stale = append(stale, previous.ProfilePhoto)
		}
		if !samePhoto(previous.CoverPhoto, pending.CoverPhoto) {
			stale = append(stale, previous.CoverPhoto)
		}
		s.deletePhotos(stale...)
	}

	return pending, nil
}

func samePhoto(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *signupService) adminNotification(p *entity.PendingSignup) mailer.Message {
	body := fmt.Sprintf(
		"A new user has signed up and is awaiting approval.\n\nEmail: %s\nName: %s\nCollege: %s\nRole: %s\nPhone: %s\nUsername: %s",
		p.Email, p.Name, p.CollegeName, p.Role, p.Phone, p.Username,
	)
	return mailer.Message{
		Subject: "New Signup Approval Needed",
		Body:    body,
		From:    s.opts.From,
		To:      []string{s.opts.AdminEmail},
	}
}

func (s *signupService) findUnapproved(ctx context.Context, repo repository.Repository, email string) (*entity.PendingSignup, error) {
	pending, err := repo.FindUnapprovedForUpdate(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no pending signup for %s", apperror.ErrNotFound, email)
		}
		return nil, err
	}
	return pending, nil
}

func (s *signupService) ApproveSignup(ctx context.Context, email string) (*entity.User, error) {
	email = normalizeEmail(email)
	if err := s.checkEmail(email); err != nil {
		return nil, err
	}

	var user *entity.User
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		users := s.users.WithTx(tx)

		pending, err := s.findUnapproved(ctx, repo, email)
		if err != nil {
			return err
		}

		if err := repo.MarkApproved(ctx, pending.ID, s.opts.Now()); err != nil {
			return err
		}

		role, err := users.FindRoleByName(ctx, pending.Role)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("role %q is not provisioned", pending.Role)
			}
			return err
		}

		user = &entity.User{
			Username:     pending.Username,
			Email:        pending.Email,
			PasswordHash: pending.PasswordHash,
			RoleID:       &role.ID,
			IsActive:     true,
		}
		profile := &entity.Profile{
			FullName:      pending.Name,
			ProfileFields: pending.ProfileFields,
		}
		if err := users.Create(ctx, user, profile); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: username or email already belongs to an account", apperror.ErrConflict)
			}
			return err
		}
		user.Role = *role
		user.Profile = profile

		if err := repo.DeletePending(ctx, pending.ID); err != nil {
			return err
		}

		msg := mailer.Message{
			Subject: "Your Account Has Been Approved",
			Body: fmt.Sprintf("Congratulations! Your account has been approved.\n\nUsername: %s\nYou can now log in with the password you chose at signup.",
				user.Username),
			From: s.opts.From,
			To:   []string{user.Email},
		}
		if err := s.sender.Send(ctx, msg); err != nil {
			return fmt.Errorf("%w: failed to send approval email: %v", apperror.ErrDelivery, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.index != nil {
		if err := s.index.IndexUser(user); err != nil {
			log.Printf("[signup] failed to index user %s: %v", user.Username, err)
		}
	}

	return user, nil
}

func (s *signupService) DenySignup(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if err := s.checkEmail(email); err != nil {
		return err
	}

	var denied *entity.PendingSignup
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		pending, err := s.findUnapproved(ctx, repo, email)
		if err != nil {
			return err
		}
		if err := repo.DeletePending(ctx, pending.ID); err != nil {
			return err
		}

		msg := mailer.Message{
			Subject: "Signup Request Denied",
			Body:    "We regret to inform you that your signup request has been denied.",
			From:    s.opts.From,
			To:      []string{pending.Email},
		}
		if err := s.sender.Send(ctx, msg); err != nil {
			return fmt.Errorf("%w: failed to send denial email: %v", apperror.ErrDelivery, err)
		}
		denied = pending
		return nil
	})
	if err != nil {
		return err
	}

	s.deletePhotos(denied.ProfilePhoto, denied.CoverPhoto)
	return nil
}

func (s *signupService) ListPending(ctx context.Context) ([]entity.PendingSignup, error) {
	pending, err := s.repo.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		pending = []entity.PendingSignup{}
	}
	return pending, nil
}

func (s *signupService) CleanupExpiredOTPs(ctx context.Context) (int64, error) {
	return s.repo.DeleteOTPsBefore(ctx, s.opts.Now().Add(-s.opts.OTPTTL))
}
