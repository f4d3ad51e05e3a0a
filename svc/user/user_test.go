package user_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wavsocial/wavscan/svc/user"
)

func TestPlan(t *testing.T) {
	t.Parallel()

	assert.True(t, user.PlanFree.Valid())
	assert.True(t, user.PlanPlus.Valid())
	assert.True(t, user.PlanPro.Valid())
	assert.False(t, user.Plan("enterprise").Valid())

	assert.False(t, user.PlanFree.IsPaid())
	assert.True(t, user.PlanPlus.IsPaid())
	assert.True(t, user.PlanPro.IsPaid())
}

func TestPasswordResetToken_Expired(t *testing.T) {
	t.Parallel()

	live := user.PasswordResetToken{ExpiresAt: time.Now().Add(time.Hour)}
	assert.False(t, live.Expired())

	dead := user.PasswordResetToken{ExpiresAt: time.Now().Add(-time.Minute)}
	assert.True(t, dead.Expired())
}
