package domain

import (
	"strings"
)

// LobbyCategories is the number of categories picked when creating a game.
const LobbyCategories = 6

// GameDraft is the user input for a new lobby.
type GameDraft struct {
	GameName   string   `json:"gameName"`
	PlayerOne  string   `json:"playerOne"`
	PlayerTwo  string   `json:"playerTwo"`
	Categories []string `json:"categories"`
}

// Normalize trims every field and checks the lobby rules: a game name, two
// distinct player names and exactly LobbyCategories distinct categories.
func (d GameDraft) Normalize() (GameDraft, error) {
	out := GameDraft{
		GameName:  strings.TrimSpace(d.GameName),
		PlayerOne: strings.TrimSpace(d.PlayerOne),
		PlayerTwo: strings.TrimSpace(d.PlayerTwo),
	}
	switch {
	case out.GameName == "":
		return GameDraft{}, &ValidationError{Err: ErrGameNameRequired}
	case out.PlayerOne == "" || out.PlayerTwo == "":
		return GameDraft{}, &ValidationError{Err: ErrPlayerNameRequired}
	case strings.EqualFold(out.PlayerOne, out.PlayerTwo):
		return GameDraft{}, &ValidationError{Err: ErrSamePlayerNames}
	}

	seen := make(map[string]struct{}, len(d.Categories))
	for _, c := range d.Categories {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out.Categories = append(out.Categories, c)
	}
	if len(out.Categories) != LobbyCategories {
		return GameDraft{}, &ValidationError{Err: &CategoryCountError{Want: LobbyCategories, Got: len(out.Categories)}}
	}
	return out, nil
}

// SameName reports whether two game names collide, ignoring case.
func SameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
