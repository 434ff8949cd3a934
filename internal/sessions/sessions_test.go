package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/listenupapp/doujinshelf/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoad(t *testing.T) {
	s, err := OpenInMemory(nil)
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	_, ok, err := s.Load(ctx, "ehentai")
	require.NoError(t, err)
	assert.False(t, ok)

	used := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	want := remote.Session{
		Cookies:   map[string]string{"ipb_member_id": "42", "ipb_pass_hash": "abc"},
		UserAgent: "agent",
		LastUsed:  used,
	}
	require.NoError(t, s.Save(ctx, "ehentai", want))

	got, ok, err := s.Load(ctx, "ehentai")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.Cookies, got.Cookies)
	assert.Equal(t, "agent", got.UserAgent)
	assert.True(t, used.Equal(got.LastUsed))

	names, err := s.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ehentai"}, names)

	require.NoError(t, s.Delete(ctx, "ehentai"))
	_, ok, err = s.Load(ctx, "ehentai")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir, nil)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "chaika", remote.Session{UserAgent: "ua"}))
	require.NoError(t, s.Close())

	s, err = Open(dir, nil)
	require.NoError(t, err)
	defer s.Close()
	got, ok, err := s.Load(ctx, "chaika")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ua", got.UserAgent)
}

func TestClientRestoresSession(t *testing.T) {
	s, err := OpenInMemory(nil)
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "ehentai", remote.Session{Cookies: map[string]string{"igneous": "x"}}))

	c := remote.NewClient(ctx, "ehentai", remote.ClientOptions{Sessions: s}, nil)
	assert.Equal(t, "x", c.Cookie("igneous"))

	sess := c.Session()
	sess.Cookies["ipb_member_id"] = "7"
	require.NoError(t, c.SetSession(ctx, sess))
	require.NoError(t, c.Close())

	got, _, err := s.Load(ctx, "ehentai")
	require.NoError(t, err)
	assert.Equal(t, "7", got.Cookies["ipb_member_id"])
	assert.NotEmpty(t, got.UserAgent)
}
