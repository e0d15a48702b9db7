package auth

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret-0123456789abcdef0123456789")

func newTestCodec(t *testing.T, opts ...CodecOption) *Codec {
	t.Helper()
	c, err := NewCodec(testSecret, opts...)
	require.NoError(t, err)
	return c
}

func signMap(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return s
}

func TestNewCodecRequiresSecret(t *testing.T) {
	_, err := NewCodec(nil)
	assert.ErrorIs(t, err, ErrMissingSecret)
	_, err = NewCodec([]byte("   "))
	assert.ErrorIs(t, err, ErrMissingSecret)
	_, err = NewCodec(testSecret, WithTTL(0))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestIssueDefaultsToLowestRanks(t *testing.T) {
	c := newTestCodec(t)
	tok, err := c.Issue(Basis{ID: "u1", Email: "u1@x.io"})
	require.NoError(t, err)

	ac := c.Verify(tok.Value)
	p, ok := ac.Principal()
	require.True(t, ok)
	assert.Equal(t, LevelAuthenticated, ac.Level)
	assert.Equal(t, "u1", p.ID)
	assert.Equal(t, "u1@x.io", p.Email)
	assert.Equal(t, RoleUser, p.Role)
	assert.Equal(t, TierExplorer, p.Tier)
	assert.True(t, p.Permissions.Equal(DefaultGrants(RoleUser)))
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	c := newTestCodec(t)
	cases := []struct {
		basis  Basis
		custom []Permission
	}{
		{Basis{ID: "a", Email: "a@x.io", Role: RoleAdmin, Tier: TierSeeker}, nil},
		{Basis{ID: "b", Email: "b@x.io", Role: RoleCommander, Tier: TierCreator}, []Permission{PermBillingManage, PermUsersManage}},
		{Basis{ID: "c", Email: "c@x.io", Role: RoleFounder, Tier: TierSovereign}, []Permission{PermTokensIssue}},
		{Basis{ID: "d", Email: "d@x.io", Role: RoleMasterAdmin}, []Permission{PermCapsuleRead}},
		{Basis{ID: "e", Email: "e@x.io", Tier: TierCreator}, []Permission{Wildcard}},
	}
	for _, tc := range cases {
		t.Run(tc.basis.ID, func(t *testing.T) {
			tok, err := c.Issue(tc.basis, tc.custom...)
			require.NoError(t, err)

			want := tc.basis
			if !want.Role.Valid() {
				want.Role = RoleUser
			}
			if !want.Tier.Valid() {
				want.Tier = TierExplorer
			}
			expected := Principal{
				ID:          want.ID,
				Email:       want.Email,
				Role:        want.Role,
				Tier:        want.Tier,
				Permissions: DefaultGrants(want.Role).Union(NewPermissionSet(tc.custom...)),
			}

			p, ok := c.Verify(tok.Value).Principal()
			require.True(t, ok)
			assert.True(t, expected.Equal(p), "got %+v want %+v", p, expected)
		})
	}
}

func TestIssueDeduplicatesCustomPermissions(t *testing.T) {
	c := newTestCodec(t)
	tok, err := c.Issue(Basis{ID: "u", Email: "u@x.io"}, PermCapsuleRead, PermBillingManage, PermBillingManage)
	require.NoError(t, err)

	claims := &Claims{}
	_, _, err = jwt.NewParser().ParseUnverified(tok.Value, claims)
	require.NoError(t, err)
	seen := map[string]int{}
	for _, p := range claims.Permissions {
		seen[p]++
	}
	for p, n := range seen {
		assert.Equal(t, 1, n, "duplicate %s", p)
	}
	assert.Equal(t, 1, seen[string(PermBillingManage)])
}

func TestIssueRejectsInvalidInput(t *testing.T) {
	c := newTestCodec(t)
	_, err := c.Issue(Basis{Email: "x@x.io"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = c.Issue(Basis{ID: "x"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = c.Issue(Basis{ID: "x", Email: "x@x.io"}, "made.up")
	assert.ErrorIs(t, err, ErrUnknownPermission)
}

func TestIssueUsesTwentyFourHourWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := newTestCodec(t, WithClock(func() time.Time { return now }))
	tok, err := c.Issue(Basis{ID: "u", Email: "u@x.io"})
	require.NoError(t, err)
	assert.Equal(t, now, tok.IssuedAt)
	assert.Equal(t, now.Add(24*time.Hour), tok.ExpiresAt)
}

func TestVerifyIsIdempotent(t *testing.T) {
	c := newTestCodec(t)
	tok, err := c.Issue(Basis{ID: "u", Email: "u@x.io", Role: RoleAdmin}, PermTreasuryView)
	require.NoError(t, err)

	p1, ok1 := c.Verify(tok.Value).Principal()
	p2, ok2 := c.Verify(tok.Value).Principal()
	require.True(t, ok1)
	require.True(t, ok2)
	assert.True(t, p1.Equal(p2))
}

func TestVerifyFailsOpenToPublic(t *testing.T) {
	c := newTestCodec(t)
	other, err := NewCodec([]byte("another-secret-0123456789abcdef012345"))
	require.NoError(t, err)
	foreign, err := other.Issue(Basis{ID: "u", Email: "u@x.io", Role: RoleMasterAdmin})
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"id": "u", "email": "u@x.io", "role": "MASTER_ADMIN",
		"iat": time.Now().Unix(), "exp": time.Now().Add(time.Hour).Unix(),
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"empty":         "",
		"blank":         "   ",
		"garbage":       "not-a-token",
		"two parts":     "abc.def",
		"wrong secret":  foreign.Value,
		"alg none":      unsigned,
		"no expiry":     signMap(t, testSecret, jwt.MapClaims{"id": "u", "email": "u@x.io", "iat": time.Now().Unix()}),
		"no id":         signMap(t, testSecret, jwt.MapClaims{"email": "u@x.io", "iat": time.Now().Unix(), "exp": time.Now().Add(time.Hour).Unix()}),
		"role not text": signMap(t, testSecret, jwt.MapClaims{"id": "u", "role": 5, "exp": time.Now().Add(time.Hour).Unix()}),
	} {
		t.Run(name, func(t *testing.T) {
			var ac AuthContext
			require.NotPanics(t, func() { ac = c.Verify(tok) })
			assert.Equal(t, LevelPublic, ac.Level)
			_, ok := ac.Principal()
			assert.False(t, ok)
		})
	}
}

func TestVerifyTamperedSignature(t *testing.T) {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	c := newTestCodec(t)
	tok, err := c.Issue(Basis{ID: "u", Email: "u@x.io", Role: RoleFounder})
	require.NoError(t, err)
	require.True(t, c.Verify(tok.Value).IsAuthenticated())

	sigStart := strings.LastIndexByte(tok.Value, '.') + 1
	for i := sigStart; i < len(tok.Value); i++ {
		// Flip the high bit of the 6-bit group so trailing padding bits
		// cannot mask the change.
		v := strings.IndexByte(alphabet, tok.Value[i])
		require.GreaterOrEqual(t, v, 0)
		tampered := tok.Value[:i] + string(alphabet[v^0x20]) + tok.Value[i+1:]

		var ac AuthContext
		require.NotPanics(t, func() { ac = c.Verify(tampered) })
		assert.Equal(t, LevelPublic, ac.Level, "position %d", i)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	past := time.Now().Add(-48 * time.Hour)
	issuer := newTestCodec(t, WithClock(func() time.Time { return past }))
	tok, err := issuer.Issue(Basis{ID: "u", Email: "u@x.io"})
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c := newTestCodec(t, WithLogger(logger))
	assert.Equal(t, LevelPublic, c.Verify(tok.Value).Level)
	assert.Contains(t, buf.String(), "reason=expired")
	assert.NotContains(t, buf.String(), tok.Value)

	_, err = c.Parse(tok.Value)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.True(t, errors.Is(err, jwt.ErrTokenExpired))
}

func TestVerifyDefaultsMissingClaims(t *testing.T) {
	c := newTestCodec(t)
	tok := signMap(t, testSecret, jwt.MapClaims{
		"id":    "legacy",
		"email": "legacy@x.io",
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	p, ok := c.Verify(tok).Principal()
	require.True(t, ok)
	assert.Equal(t, RoleUser, p.Role)
	assert.Equal(t, TierExplorer, p.Tier)
	assert.True(t, p.Permissions.Equal(DefaultGrants(RoleUser)))
}

func TestVerifyKeepsEmbeddedPermissions(t *testing.T) {
	c := newTestCodec(t)
	tok := signMap(t, testSecret, jwt.MapClaims{
		"id":          "u",
		"email":       "u@x.io",
		"role":        "ADMIN",
		"tier":        "SEEKER",
		"permissions": []string{"capsule.read"},
		"iat":         time.Now().Unix(),
		"exp":         time.Now().Add(time.Hour).Unix(),
	})
	p, ok := c.Verify(tok).Principal()
	require.True(t, ok)
	assert.True(t, p.Permissions.Equal(NewPermissionSet(PermCapsuleRead)))
	assert.False(t, p.HasPermission(PermUsersRead), "rights are not recomputed from the role")
}

func TestVerifyUnrecognizedRankFallsToFloor(t *testing.T) {
	c := newTestCodec(t)
	tok := signMap(t, testSecret, jwt.MapClaims{
		"id":          "u",
		"email":       "u@x.io",
		"role":        "SUPREME_OVERLORD",
		"tier":        "DIAMOND",
		"permissions": []string{},
		"iat":         time.Now().Unix(),
		"exp":         time.Now().Add(time.Hour).Unix(),
	})
	p, ok := c.Verify(tok).Principal()
	require.True(t, ok)
	assert.Equal(t, RoleUnknown, p.Role)
	assert.Equal(t, TierUnknown, p.Tier)
	assert.False(t, p.HasRole(RoleUser))
	assert.False(t, p.HasTier(TierExplorer))
	assert.Empty(t, p.Permissions)
}

func TestCodecsWithDifferentSecretsAreIndependent(t *testing.T) {
	a := newTestCodec(t)
	b, err := NewCodec([]byte("second-secret-0123456789abcdef0123456"))
	require.NoError(t, err)

	ta, err := a.Issue(Basis{ID: "a", Email: "a@x.io"})
	require.NoError(t, err)
	tb, err := b.Issue(Basis{ID: "b", Email: "b@x.io"})
	require.NoError(t, err)

	assert.True(t, a.Verify(ta.Value).IsAuthenticated())
	assert.True(t, b.Verify(tb.Value).IsAuthenticated())
	assert.False(t, a.Verify(tb.Value).IsAuthenticated())
	assert.False(t, b.Verify(ta.Value).IsAuthenticated())
}

func TestSecretIsCopied(t *testing.T) {
	secret := []byte("mutable-secret-0123456789abcdef012345")
	c, err := NewCodec(secret)
	require.NoError(t, err)
	tok, err := c.Issue(Basis{ID: "u", Email: "u@x.io"})
	require.NoError(t, err)

	secret[0] = 'X'
	assert.True(t, c.Verify(tok.Value).IsAuthenticated())
}
