package main

// Player is a participant. It outlives its characters: a new Character is
// spawned on every respawn and the player keeps only its handle.
type Player struct {
	ID     string
	Name   string
	Score  int
	Kills  int
	Deaths int

	Input       CharacterInput
	Character   Handle
	RespawnTick int64
}

// NewPlayer creates a player waiting to spawn
func NewPlayer(id, name string) *Player {
	return &Player{ID: id, Name: name}
}

// HasCharacter reports whether the player's character is still in the world
func (p *Player) HasCharacter(w *World) bool {
	return w.Character(p.Character) != nil
}

// ToScore converts to the scoreboard row
func (p *Player) ToScore() ScoreSnap {
	return ScoreSnap{
		ID:     p.ID,
		Name:   p.Name,
		Score:  p.Score,
		Kills:  p.Kills,
		Deaths: p.Deaths,
	}
}
