package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{in: "admin", want: RoleAdmin},
		{in: "Store", want: RoleStore},
		{in: " client ", want: RoleClient},
		{in: "COURIER", want: RoleCourier},
		{in: "viewer", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidRole)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRole_In(t *testing.T) {
	assert.True(t, RoleCourier.In(RoleStore, RoleCourier))
	assert.False(t, RoleClient.In(RoleStore, RoleCourier, RoleAdmin))
	assert.False(t, RoleClient.In())
}

func TestIdentityContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{UserID: "u1", Role: RoleAdmin})
	id, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", id.UserID)
	assert.Equal(t, RoleAdmin, id.Role)
}
