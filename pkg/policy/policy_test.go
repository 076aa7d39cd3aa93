package policy_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restqlite/restqlite/internal/testutil"
	"github.com/restqlite/restqlite/pkg/policy"
)

func TestParseTag(t *testing.T) {
	cases := map[string]policy.Tag{
		"login_required": policy.TagLoginRequired,
		"bind_user":      policy.TagBindUser,
		"bind_user_read": policy.TagBindUserRead,
	}
	for raw, want := range cases {
		tag, ok := policy.ParseTag(raw)
		require.True(t, ok, raw)
		assert.Equal(t, want, tag)
		assert.Equal(t, raw, tag.String())
	}

	_, ok := policy.ParseTag("frobnicate")
	assert.False(t, ok)
}

func TestTagsWithoutSettingsTable(t *testing.T) {
	db := testutil.OpenInMemoryDB(t)
	store := policy.NewStore(db)

	tags, err := store.Tags(context.Background(), "test")
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestTags(t *testing.T) {
	db := testutil.OpenInMemoryDB(t)
	testutil.CreateSettingsTable(t, db,
		[2]string{"notes", "login_required"},
		[2]string{"notes", "bind_user"},
		[2]string{"notes", "some_future_tag"},
		[2]string{"other", "bind_user_read"},
	)
	store := policy.NewStore(db)
	ctx := context.Background()

	t.Run("tagged table", func(t *testing.T) {
		tags, err := store.Tags(ctx, "notes")
		require.NoError(t, err)
		assert.True(t, tags.Has(policy.TagLoginRequired))
		assert.True(t, tags.Has(policy.TagBindUser))
		assert.False(t, tags.Has(policy.TagBindUserRead))
		// unknown tag strings are ignored
		assert.Len(t, tags, 2)
	})

	t.Run("untagged table", func(t *testing.T) {
		tags, err := store.Tags(ctx, "test")
		require.NoError(t, err)
		assert.Empty(t, tags)
	})

	t.Run("policy edits take effect immediately", func(t *testing.T) {
		tags, err := store.Tags(ctx, "other")
		require.NoError(t, err)
		assert.True(t, tags.Has(policy.TagBindUserRead))

		testutil.Exec(t, db, `DELETE FROM _table_settings WHERE table_name = 'other'`)

		tags, err = store.Tags(ctx, "other")
		require.NoError(t, err)
		assert.Empty(t, tags)
	})
}
