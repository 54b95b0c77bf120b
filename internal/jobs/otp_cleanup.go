package jobs

import (
	"context"
	"fmt"
	"log"
	"time"
)

type OTPCleaner interface {
	CleanupExpiredOTPs(ctx context.Context) (int64, error)
}

// OTPCleanupJob removes signup codes that are past their validity window.
type OTPCleanupJob struct {
	cleaner OTPCleaner
	every   time.Duration
}

func NewOTPCleanupJob(cleaner OTPCleaner, every time.Duration) *OTPCleanupJob {
	return &OTPCleanupJob{cleaner: cleaner, every: every}
}

func (j *OTPCleanupJob) Name() string {
	return "otp-cleanup"
}

func (j *OTPCleanupJob) Schedule() string {
	if j.every <= 0 {
		return ""
	}
	return "@every " + j.every.String()
}

func (j *OTPCleanupJob) Run(ctx context.Context) error {
	removed, err := j.cleaner.CleanupExpiredOTPs(ctx)
	if err != nil {
		return fmt.Errorf("cleanup expired OTPs: %w", err)
	}
	if removed > 0 {
		log.Printf("[jobs] removed %d expired OTPs", removed)
	}
	return nil
}
