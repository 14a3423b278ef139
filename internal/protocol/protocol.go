package protocol

// Every frame is a JSON envelope {"t":"<name>","p":<payload>}.
//
//   Client → Server:
//     "join"               {"nickname":"Ann"}
//     "update"             {"x":1.0,"y":2.0,"radius":10,"score":0}
//     "eatFood"            42                                   (bare slot index)
//   Server → Client:
//     "init"               {"players":{id:Player},"foods":[Food],"you":"id"}
//     "updatePlayers"      {id:Player}                          (~60 Hz)
//     "foodUpdate"         {"index":42,"food":Food}
//     "playerDisconnected" "id"                                 (bare session id)

// Message type identifiers
const (
	MsgJoin               = "join"
	MsgInit               = "init"
	MsgUpdate             = "update"
	MsgUpdatePlayers      = "updatePlayers"
	MsgEatFood            = "eatFood"
	MsgFoodUpdate         = "foodUpdate"
	MsgPlayerDisconnected = "playerDisconnected"
)

// Player is the wire form of one connected avatar.
type Player struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Radius   float64 `json:"radius"`
	Nickname string  `json:"nickname"`
	Score    int     `json:"score"`
}

// Food is one particle of the fixed-size pool. Its slot index is carried
// separately and is the particle's identity on the wire.
type Food struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
	Value  int     `json:"value"`
}

// Message is the closed set of frames exchanged between client and server.
type Message interface {
	Type() string
	sealed()
}

// Join asks the server to create a player for the sending session.
type Join struct {
	Nickname string `json:"nickname"`
}

// Init is the one full snapshot a session receives after joining. You is
// the receiving session's own id; clients that ignore it keep working.
type Init struct {
	Players map[string]Player `json:"players"`
	Foods   []Food            `json:"foods"`
	You     string            `json:"you,omitempty"`
}

// Update carries the client's locally simulated avatar state.
type Update struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
	Score  int     `json:"score"`
}

// UpdatePlayers is the periodic full player broadcast.
type UpdatePlayers struct {
	Players map[string]Player
}

// EatFood reports that the client consumed the particle at Index.
type EatFood struct {
	Index int
}

// FoodUpdate announces the replacement particle for a consumed slot.
type FoodUpdate struct {
	Index int  `json:"index"`
	Food  Food `json:"food"`
}

// PlayerDisconnected tells clients to drop a player from their mirror.
type PlayerDisconnected struct {
	ID string
}

func (Join) Type() string               { return MsgJoin }
func (Init) Type() string               { return MsgInit }
func (Update) Type() string             { return MsgUpdate }
func (UpdatePlayers) Type() string      { return MsgUpdatePlayers }
func (EatFood) Type() string            { return MsgEatFood }
func (FoodUpdate) Type() string         { return MsgFoodUpdate }
func (PlayerDisconnected) Type() string { return MsgPlayerDisconnected }

func (Join) sealed()               {}
func (Init) sealed()               {}
func (Update) sealed()             {}
func (UpdatePlayers) sealed()      {}
func (EatFood) sealed()            {}
func (FoodUpdate) sealed()         {}
func (PlayerDisconnected) sealed() {}
