package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var issuedAt = time.Date(2024, 5, 14, 9, 0, 0, 0, time.UTC)

func fixedService(secret string, expiry time.Duration) *Service {
	s := NewService(secret, expiry)
	s.now = func() time.Time { return issuedAt }
	return s
}

func TestNewService_Defaults(t *testing.T) {
	s := NewService("", 0)
	assert.Equal(t, []byte(defaultSecret), s.jwtSecret)
	assert.Equal(t, 24*time.Hour, s.tokenExp)

	s = NewService("s3cret", time.Hour)
	assert.Equal(t, []byte("s3cret"), s.jwtSecret)
	assert.Equal(t, time.Hour, s.tokenExp)
}

func TestGenerateToken_RoundTrip(t *testing.T) {
	s := fixedService("workshop", time.Hour)

	token, err := s.GenerateToken("u-1", "Workshop Lead")
	require.NoError(t, err)

	claims, err := s.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, "Workshop Lead", claims.Actor())
	assert.Equal(t, issuedAt.Add(time.Hour).Unix(), claims.Exp)

	_, err = s.GenerateToken(" ", "nobody")
	assert.Error(t, err)
}

func TestValidateToken(t *testing.T) {
	s := fixedService("workshop", time.Hour)
	good, err := s.GenerateToken("u-1", "")
	require.NoError(t, err)
	forged, err := fixedService("other", time.Hour).GenerateToken("u-1", "")
	require.NoError(t, err)
	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": issuedAt.Add(time.Hour).Unix(),
	}).SignedString(s.jwtSecret)
	require.NoError(t, err)

	cases := []struct {
		name  string
		token string
		want  error
	}{
		{"valid", good, nil},
		{"bearer prefix tolerated", "Bearer " + good, nil},
		{"garbage", "not-a-jwt", ErrInvalidToken},
		{"wrong secret", forged, ErrInvalidToken},
		{"missing subject", noSubject, ErrInvalidToken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			claims, err := s.ValidateToken(tc.token)
			if tc.want != nil {
				assert.ErrorIs(t, err, tc.want)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "u-1", claims.Actor())
		})
	}
}

func TestValidateToken_Expired(t *testing.T) {
	s := fixedService("workshop", time.Hour)
	token, err := s.GenerateToken("u-1", "")
	require.NoError(t, err)

	s.now = func() time.Time { return issuedAt.Add(59 * time.Minute) }
	_, err = s.ValidateToken(token)
	assert.NoError(t, err)

	s.now = func() time.Time { return issuedAt.Add(2 * time.Hour) }
	_, err = s.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestExtractTokenFromHeader(t *testing.T) {
	s := NewService("", 0)

	cases := []struct {
		header string
		want   string
		err    bool
	}{
		{"Bearer abc.def", "abc.def", false},
		{"", "", true},
		{"abc.def", "", true},
		{"Bearer ", "", true},
		{"Basic abc", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.header, func(t *testing.T) {
			got, err := s.ExtractTokenFromHeader(tc.header)
			if tc.err {
				assert.ErrorIs(t, err, ErrInvalidToken)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
