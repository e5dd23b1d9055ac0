// Package protocol implements the comma-separated text wire format
// the server speaks. Message words and field order follow the
// published protocol, including its historical spellings; fields may
// not contain the separator, and no escaping is performed.
package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"spectrangle/internal/board"
	"spectrangle/internal/tile"
)

const Separator = ","

// Message identifiers.
const (
	MsgConnectRequest     = "CONNECTREQUEST"
	MsgConnectAccept      = "CONNECTACCEPT"
	MsgJoinGame           = "JOINGAME"
	MsgGameStarted        = "GAMESTARTED"
	MsgPlayerTiles        = "PLAYERTILES"
	MsgTile               = "TILE"
	MsgMove               = "MOVE"
	MsgMoveRequest        = "MOVEREQUEST"
	MsgTileReplace        = "TILEREPLACE"
	MsgSkip               = "SKIP"
	MsgKick               = "KICK"
	MsgGameOver           = "GAMEOVER"
	MsgError              = "ERROR"
	MsgClientMessage      = "CLIENTMESSAGE"
	MsgServerMessage      = "SERVERMESSAGE"
	MsgGetClientNames     = "GETCLIENTNAMES"
	MsgClientNames        = "CLIENTNAMES"
	MsgChallengePlayers   = "CHALLANGEPLAYERS"
	MsgNotifyChallenge    = "NOTIFYCHALLENGE"
	MsgAcceptChallenge    = "ACCEPTCHALLENGE"
	MsgRequestLeaderboard = "REQUESTLEADERBOARD"
	MsgSendLeaderboard    = "SENDLEADERBOARD"
)

// Extension capability names a session may declare on connect.
const (
	ExtChat        = "chat"
	ExtChallenge   = "challenge"
	ExtLeaderboard = "leaderboard"
)

// ServerExtensions is the capability set this server offers.
var ServerExtensions = []string{ExtChat, ExtChallenge, ExtLeaderboard}

var (
	ErrUnknownMessage = errors.New("unknown message")
	ErrBadMessage     = errors.New("malformed message")
	ErrBadField       = errors.New("field contains reserved character")
)

// Request is one parsed inbound client message. Kind selects which of
// the remaining fields are meaningful.
type Request struct {
	Kind       string
	Name       string
	Extensions []string
	Preference int
	Tile       tile.Tile
	Rotation   int
	Slot       int
	Text       string
	Targets    []string
}

// ParseRequest decodes one line from a client.
func ParseRequest(line string) (Request, error) {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), Separator)
	switch fields[0] {
	case MsgConnectRequest:
		if len(fields) < 2 || fields[1] == "" {
			return Request{}, fmt.Errorf("%s needs a name: %w", MsgConnectRequest, ErrBadMessage)
		}
		return Request{Kind: MsgConnectRequest, Name: fields[1], Extensions: fields[2:]}, nil

	case MsgJoinGame:
		if len(fields) != 2 {
			return Request{}, fmt.Errorf("%s needs a player count: %w", MsgJoinGame, ErrBadMessage)
		}
		pref, err := strconv.Atoi(fields[1])
		if err != nil {
			return Request{}, fmt.Errorf("%s count %q: %w", MsgJoinGame, fields[1], ErrBadMessage)
		}
		return Request{Kind: MsgJoinGame, Preference: pref}, nil

	case MsgMove:
		// MOVE,TILE,l,v,r,value,rotation,row,column
		if len(fields) != 9 {
			return Request{}, fmt.Errorf("%s needs 8 arguments: %w", MsgMove, ErrBadMessage)
		}
		t, err := parseTile(fields[1:6])
		if err != nil {
			return Request{}, err
		}
		rot, err := strconv.Atoi(fields[6])
		if err != nil {
			return Request{}, fmt.Errorf("rotation %q: %w", fields[6], ErrBadMessage)
		}
		row, err1 := strconv.Atoi(fields[7])
		col, err2 := strconv.Atoi(fields[8])
		if err1 != nil || err2 != nil {
			return Request{}, fmt.Errorf("coordinates %q,%q: %w", fields[7], fields[8], ErrBadMessage)
		}
		slot, ok := board.SlotIndex(row, col)
		if !ok {
			return Request{}, fmt.Errorf("coordinates (%d,%d) outside board: %w", row, col, ErrBadMessage)
		}
		return Request{Kind: MsgMove, Tile: t, Rotation: rot, Slot: slot}, nil

	case MsgTileReplace:
		if len(fields) != 6 {
			return Request{}, fmt.Errorf("%s needs a tile: %w", MsgTileReplace, ErrBadMessage)
		}
		t, err := parseTile(fields[1:6])
		if err != nil {
			return Request{}, err
		}
		return Request{Kind: MsgTileReplace, Tile: t}, nil

	case MsgSkip:
		return Request{Kind: MsgSkip}, nil

	case MsgClientMessage:
		if len(fields) < 2 {
			return Request{}, fmt.Errorf("%s needs a message: %w", MsgClientMessage, ErrBadMessage)
		}
		// Chat is the one place commas pass through unharmed.
		return Request{Kind: MsgClientMessage, Text: strings.Join(fields[1:], Separator)}, nil

	case MsgGetClientNames:
		return Request{Kind: MsgGetClientNames}, nil

	case MsgChallengePlayers:
		if len(fields) < 2 {
			return Request{}, fmt.Errorf("%s needs at least one name: %w", MsgChallengePlayers, ErrBadMessage)
		}
		return Request{Kind: MsgChallengePlayers, Targets: fields[1:]}, nil

	case MsgAcceptChallenge:
		return Request{Kind: MsgAcceptChallenge}, nil

	case MsgRequestLeaderboard:
		return Request{Kind: MsgRequestLeaderboard}, nil

	default:
		return Request{}, fmt.Errorf("%q: %w", fields[0], ErrUnknownMessage)
	}
}

// parseTile decodes the five fields following a TILE identifier
// check: identifier, three colours and a value.
func parseTile(fields []string) (tile.Tile, error) {
	if fields[0] != MsgTile {
		return tile.Tile{}, fmt.Errorf("expected %s, got %q: %w", MsgTile, fields[0], ErrBadMessage)
	}
	var colours [3]tile.Colour
	for i, f := range fields[1:4] {
		if len(f) != 1 || !tile.ValidColour(f[0]) {
			return tile.Tile{}, fmt.Errorf("colour %q: %w", f, ErrBadMessage)
		}
		colours[i] = tile.Colour(f[0])
	}
	value, err := strconv.Atoi(fields[4])
	if err != nil || value < 1 || value > 6 {
		return tile.Tile{}, fmt.Errorf("tile value %q: %w", fields[4], ErrBadMessage)
	}
	return tile.Tile{Left: colours[0], Vertical: colours[1], Right: colours[2], Value: value}, nil
}

// ValidName reports whether a player name is acceptable on the wire.
func ValidName(name string) bool {
	return name != "" && !strings.ContainsAny(name, Separator+" \\\r\n")
}

func join(fields ...string) string {
	return strings.Join(fields, Separator)
}

func encodeTileFields(t tile.Tile) string {
	return join(MsgTile, string(t.Left), string(t.Vertical), string(t.Right), strconv.Itoa(t.Value))
}

func EncodeConnectAccept(exts []string) string {
	return join(append([]string{MsgConnectAccept}, exts...)...)
}

func EncodePlayerTiles(name string, hand []tile.Tile) string {
	fields := []string{MsgPlayerTiles}
	for _, t := range hand {
		fields = append(fields, encodeTileFields(t))
	}
	return join(append(fields, name)...)
}

func EncodeGameStarted(order []string, hands map[string][]tile.Tile) string {
	fields := []string{MsgGameStarted}
	for _, name := range order {
		fields = append(fields, EncodePlayerTiles(name, hands[name]))
	}
	return join(fields...)
}

func EncodeTile(t tile.Tile) string {
	return encodeTileFields(t)
}

// EncodeMove announces a resolved move: the original client MOVE
// arguments plus the mover's name.
func EncodeMove(seat string, t tile.Tile, rotation, slot int) string {
	row, col := board.RowCol(slot)
	return join(MsgMove, encodeTileFields(t), strconv.Itoa(rotation), strconv.Itoa(row), strconv.Itoa(col), seat)
}

func EncodeMoveRequest() string {
	return MsgMoveRequest
}

func EncodeTileReplace(seat string, t tile.Tile) string {
	return join(MsgTileReplace, encodeTileFields(t), seat)
}

func EncodeSkip(seat string) string {
	return join(MsgSkip, seat)
}

func EncodeKick(seat string) string {
	return join(MsgKick, seat)
}

// ScoreEntry is one (name, score) pair of a final ranking.
type ScoreEntry struct {
	Name  string
	Score int
}

func EncodeGameOver(scores []ScoreEntry) string {
	fields := []string{MsgGameOver}
	for _, s := range scores {
		fields = append(fields, s.Name, strconv.Itoa(s.Score))
	}
	return join(fields...)
}

func EncodeError(text string) string {
	return join(MsgError, strings.ReplaceAll(text, Separator, ";"))
}

func EncodeServerMessage(name, text string) string {
	return join(MsgServerMessage, name, text)
}

func EncodeClientNames(names []string) string {
	return join(append([]string{MsgClientNames}, names...)...)
}

func EncodeNotifyChallenge(challenger string) string {
	return join(MsgNotifyChallenge, challenger)
}

// LeaderboardEntry is one persisted result: name, score and the unix
// time the score was recorded.
type LeaderboardEntry struct {
	Name  string
	Score int
	Time  int64
}

func EncodeLeaderboard(entries []LeaderboardEntry) string {
	fields := []string{MsgSendLeaderboard}
	for _, e := range entries {
		fields = append(fields, e.Name, strconv.Itoa(e.Score), strconv.FormatInt(e.Time, 10))
	}
	return join(fields...)
}
