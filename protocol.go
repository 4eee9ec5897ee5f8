package main

import (
	"bytes"
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
)

// Client -> Server message types
const (
	MsgJoin  = "join"
	MsgLeave = "leave"
	MsgInput = "input"
	MsgAuth  = "auth" // rejoin with a previously issued token
	MsgRcon  = "rcon"
)

// Server -> Client message types
const (
	MsgWelcome  = "welcome"
	MsgKill     = "kill"
	MsgRconResp = "rcon_ok"
	MsgError    = "error"
)

// Envelope wraps all outgoing JSON messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages; D is decoded per type
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// JoinMsg asks for a new player
type JoinMsg struct {
	Name string `json:"name"`
}

// AuthMsg resumes a player identity from a token
type AuthMsg struct {
	Token string `json:"token"`
	Name  string `json:"name"`
}

// WelcomeMsg is sent to a player when they join
type WelcomeMsg struct {
	ID        string `json:"id"`
	Token     string `json:"token"`
	Map       string `json:"map"`
	TickSpeed int    `json:"tick_speed"`
}

// RconMsg carries a console command for the server
type RconMsg struct {
	Password string `json:"pw"`
	Command  string `json:"cmd"`
}

// KillMsg is broadcast when a character dies
type KillMsg struct {
	KillerID string `json:"kid,omitempty"`
	VictimID string `json:"vid"`
	Weapon   int    `json:"w"`
}

// ErrorMsg sends error to client
type ErrorMsg struct {
	Msg string `json:"msg"`
}

// NetCharacter is the fixed-layout character state put on the wire.
// Velocities are 1/256 units; every field is a fixed-width int32 so two
// states can be compared by their encoded bytes.
type NetCharacter struct {
	_msgpack struct{} `msgpack:",as_array"`

	X         int32
	Y         int32
	VelX      int32
	VelY      int32
	Angle     int32
	Direction int32
	Jumped    int32
}

// EncodeNetCharacter serializes the state with fixed-width integers
func EncodeNetCharacter(n *NetCharacter) []byte {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.UseCompactInts(false)
	if err := enc.Encode(n); err != nil {
		// only reachable on a broken writer; bytes.Buffer never fails
		return nil
	}
	return buf.Bytes()
}

// DecodeNetCharacter is the inverse of EncodeNetCharacter
func DecodeNetCharacter(data []byte) (NetCharacter, error) {
	var n NetCharacter
	err := msgpack.Unmarshal(data, &n)
	return n, err
}

// CharacterSnap is one character slot of a snapshot. Tick 0 means the
// state is literal and must not be extrapolated.
type CharacterSnap struct {
	ID     string       `msgpack:"id"`
	Tick   int64        `msgpack:"tick"`
	Core   NetCharacter `msgpack:"core"`
	Health int          `msgpack:"hp"`
	Weapon int          `msgpack:"w"`
	Events int          `msgpack:"ev"` // core events since the previous snapshot
}

// ProjectileSnap is one grenade in flight
type ProjectileSnap struct {
	X         int32 `msgpack:"x"`
	Y         int32 `msgpack:"y"`
	VelX      int32 `msgpack:"vx"`
	VelY      int32 `msgpack:"vy"`
	StartTick int64 `msgpack:"st"`
}

// ScoreSnap is one scoreboard row
type ScoreSnap struct {
	ID     string `msgpack:"id"`
	Name   string `msgpack:"n"`
	Score  int    `msgpack:"s"`
	Kills  int    `msgpack:"k"`
	Deaths int    `msgpack:"d"`
}

// Snapshot is the binary state frame sent every snap tick
type Snapshot struct {
	Tick        int64            `msgpack:"tick"`
	Paused      bool             `msgpack:"paused"`
	Characters  []CharacterSnap  `msgpack:"chars"`
	Projectiles []ProjectileSnap `msgpack:"proj"`
	Scores      []ScoreSnap      `msgpack:"scores"`
}
