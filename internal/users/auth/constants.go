// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import "time"

// # Authentication Constraints

const (
	// RefreshLockTTL bounds how long one refresh may hold the per-user lock.
	// It only needs to outlive a bcrypt compare, two signatures and one write.
	RefreshLockTTL = 10 * time.Second

	// MaxFullNameLength caps the display name.
	MaxFullNameLength = 100

	// MaxUserNameLength caps the login handle.
	MaxUserNameLength = 50

	// Refresh results recorded by metrics and logs.
	refreshRotated = "rotated"
)
