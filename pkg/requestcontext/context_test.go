package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	id "dossier/pkg/domain"
)

func TestAccessors(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults when unset", func(t *testing.T) {
		assert.True(t, UserID(ctx).IsNil())
		assert.Empty(t, Role(ctx))
		_, ok := PartnerID(ctx)
		assert.False(t, ok)
		assert.Empty(t, RequestID(ctx))
		assert.WithinDuration(t, time.Now(), Now(ctx), time.Second)
	})

	t.Run("round trips injected values", func(t *testing.T) {
		userID := id.UserID(uuid.New())
		partnerID := id.PartnerID(uuid.New())
		fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

		c := WithUserID(ctx, userID)
		c = WithRole(c, "PARTNER")
		c = WithPartnerID(c, partnerID)
		c = WithRequestID(c, "req-1")
		c = WithTime(c, fixed)
		c = WithClientMetadata(c, "10.0.0.1", "curl/8.0")

		assert.Equal(t, userID, UserID(c))
		assert.Equal(t, "PARTNER", Role(c))
		got, ok := PartnerID(c)
		assert.True(t, ok)
		assert.Equal(t, partnerID, got)
		assert.Equal(t, "req-1", RequestID(c))
		assert.Equal(t, fixed, Now(c))
		assert.Equal(t, "10.0.0.1", ClientIP(c))
		assert.Equal(t, "curl/8.0", UserAgent(c))
	})

	t.Run("nil partner id is treated as absent", func(t *testing.T) {
		_, ok := PartnerID(WithPartnerID(ctx, id.PartnerID{}))
		assert.False(t, ok)
	})
}
