package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var sixCategories = []string{"Science", "History", "Sports", "Music", "Movies", "Geography"}

func TestGameDraftNormalize(t *testing.T) {
	draft, err := GameDraft{
		GameName:   "  Friday Night ",
		PlayerOne:  " Alice",
		PlayerTwo:  "Bob ",
		Categories: append([]string{" Science", ""}, sixCategories[1:]...),
	}.Normalize()
	require.NoError(t, err)
	require.Equal(t, "Friday Night", draft.GameName)
	require.Equal(t, "Alice", draft.PlayerOne)
	require.Equal(t, "Bob", draft.PlayerTwo)
	require.Equal(t, sixCategories, draft.Categories)
}

func TestGameDraftRejects(t *testing.T) {
	cases := []struct {
		name  string
		draft GameDraft
		want  error
	}{
		{"blank game name", GameDraft{GameName: "  ", PlayerOne: "A", PlayerTwo: "B", Categories: sixCategories}, ErrGameNameRequired},
		{"blank player", GameDraft{GameName: "g", PlayerOne: "   ", PlayerTwo: "Bob", Categories: sixCategories}, ErrPlayerNameRequired},
		{"same players", GameDraft{GameName: "g", PlayerOne: "Sam", PlayerTwo: " sam ", Categories: sixCategories}, ErrSamePlayerNames},
		{"too few categories", GameDraft{GameName: "g", PlayerOne: "A", PlayerTwo: "B", Categories: sixCategories[:5]}, ErrCategoryCount},
		{"duplicates do not count", GameDraft{GameName: "g", PlayerOne: "A", PlayerTwo: "B", Categories: append(sixCategories[:5:5], "Science")}, ErrCategoryCount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.draft.Normalize()
			require.ErrorIs(t, err, tc.want)
			require.Equal(t, KindValidation, KindOf(err))
		})
	}
}

func TestGameHasCategory(t *testing.T) {
	g := Game{PlayerOne: "Alice", PlayerTwo: "Bob", Categories: sixCategories}
	require.True(t, g.HasCategory("Music"))
	require.False(t, g.HasCategory("music"))
	require.Equal(t, "Bob", g.Player(PlayerTwo))
	require.True(t, SameName("Friday", " friday "))
}
