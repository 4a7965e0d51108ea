package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "fomet_session", "secret", time.Hour, false), mr
}

func roundTrip(t *testing.T, sm *SessionManager, cookie *http.Cookie, mutate func(*Session)) (*Session, *http.Cookie) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	if mutate != nil {
		mutate(sess)
	}
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(context.Background(), rec, req, sess))
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	return sess, cookies[0]
}

func TestPrincipalSurvivesRoundTrip(t *testing.T) {
	sm, _ := newTestManager(t)
	_, cookie := roundTrip(t, sm, nil, func(s *Session) {
		s.SetPrincipal(&Principal{Username: "admin", Role: "ADMINISTRATOR", Unit: "PUSAT"})
	})
	sess, _ := roundTrip(t, sm, cookie, nil)
	p := sess.Principal()
	require.NotNil(t, p)
	assert.True(t, p.IsAdmin())
	assert.Equal(t, "PUSAT", p.Unit)
}

func TestFlashSurvivesRedirect(t *testing.T) {
	sm, _ := newTestManager(t)
	_, cookie := roundTrip(t, sm, nil, func(s *Session) {
		s.AddFlash(FlashMessage{Kind: "success", Message: "Data berhasil disimpan"})
	})
	var flash *FlashMessage
	_, cookie = roundTrip(t, sm, cookie, func(s *Session) { flash = s.PopFlash() })
	require.NotNil(t, flash)
	assert.Equal(t, "Data berhasil disimpan", flash.Message)

	roundTrip(t, sm, cookie, func(s *Session) { flash = s.PopFlash() })
	assert.Nil(t, flash)
}

func TestRotateDropsOldEntry(t *testing.T) {
	sm, mr := newTestManager(t)
	first, cookie := roundTrip(t, sm, nil, nil)
	oldID := first.ID
	require.True(t, mr.Exists("fomet:session:"+oldID))

	rotated, _ := roundTrip(t, sm, cookie, func(s *Session) {
		s.Rotate()
		s.SetPrincipal(&Principal{Username: "u", Role: "USER", Unit: "A"})
	})
	assert.NotEqual(t, oldID, rotated.ID)
	assert.False(t, mr.Exists("fomet:session:"+oldID))
	assert.True(t, mr.Exists("fomet:session:"+rotated.ID))
}

func TestDestroyExpiresCookie(t *testing.T) {
	sm, mr := newTestManager(t)
	sess, cookie := roundTrip(t, sm, nil, nil)
	_, expired := roundTrip(t, sm, cookie, func(s *Session) { sm.Destroy(s) })
	assert.Equal(t, -1, expired.MaxAge)
	assert.False(t, mr.Exists("fomet:session:"+sess.ID))
}

func TestPrincipalFromLogin(t *testing.T) {
	p := PrincipalFromLogin(" pusat ", map[string]any{
		"success": true,
		"user":    map[string]any{"role": "administrator", "unit": " PUSAT "},
		"token":   "abc",
	})
	assert.Equal(t, "pusat", p.Username)
	assert.Equal(t, "ADMINISTRATOR", p.Role)
	assert.Equal(t, "PUSAT", p.Unit)
	assert.Equal(t, "abc", p.Extra["token"])
	assert.Equal(t, "PUSAT", p.DisplayName())

	user := PrincipalFromLogin("ulp", map[string]any{"success": true, "unit": "ULP A"})
	assert.Equal(t, "USER", user.Role)
	assert.False(t, user.IsAdmin())
}

func TestIdempotencyStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewIdempotencyStore(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.CheckAndInsert(ctx, "k1", "records"))
	assert.ErrorIs(t, store.CheckAndInsert(ctx, "k1", "records"), ErrIdempotencyConflict)
	require.NoError(t, store.CheckAndInsert(ctx, "k1", "other"))
	require.NoError(t, store.Release(ctx, "k1", "records"))
	require.NoError(t, store.CheckAndInsert(ctx, "k1", "records"))

	var disabled *IdempotencyStore
	assert.NoError(t, disabled.CheckAndInsert(ctx, "k1", "records"))
}
