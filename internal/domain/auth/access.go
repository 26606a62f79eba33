package auth

import (
	"context"
	"time"

	platformerrors "captionkit-server-go/internal/platform/errors"
	"captionkit-server-go/internal/platform/storage"
)

// Accounts without an active subscription get a small free allowance,
// measured from a fixed epoch so their whole history counts against it.
const freeAllowanceHours = 4

var freeAllowanceEpoch = time.Date(2024, time.November, 13, 12, 0, 0, 0, time.UTC)

// Access is a granted access check result.
type Access struct {
	AccountID        string
	Role             string
	SecondsRemaining float64
}

// AccessChecker verifies account membership and caption-time quota.
type AccessChecker struct {
	store *storage.Store
}

func NewAccessChecker(store *storage.Store) *AccessChecker {
	return &AccessChecker{store: store}
}

// CheckAccess confirms the identity may caption on the account and that the
// account has caption time left in its current period. Non-members get an
// access error; exhausted accounts get a quota error.
func (c *AccessChecker) CheckAccess(ctx context.Context, identity *Identity, accountID string) (*Access, error) {
	op := "auth.check_access"

	role, err := c.store.AccountRole(ctx, identity.UserID, accountID)
	if err != nil {
		return nil, err
	}
	if role == "" {
		return nil, platformerrors.New(platformerrors.KindAccess, op,
			"user is not a member of the account")
	}

	hours := freeAllowanceHours
	periodStart := freeAllowanceEpoch
	sub, err := c.store.ActiveSubscription(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if sub != nil {
		hours = sub.Hours
		periodStart = sub.CurrentPeriodStart
	}

	used, err := c.store.UsageSince(ctx, accountID, periodStart)
	if err != nil {
		return nil, err
	}

	planSeconds := float64(hours) * 3600
	if used >= planSeconds {
		return nil, platformerrors.New(platformerrors.KindQuota, op,
			"caption time exhausted for the current period")
	}

	return &Access{
		AccountID:        accountID,
		Role:             role,
		SecondsRemaining: planSeconds - used,
	}, nil
}
