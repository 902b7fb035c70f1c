package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name"`
	Role            string `json:"role,omitempty"` // CONTROL (default) or OBSERVER
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	WorldID         string         `json:"world_id"`
	Tick            uint64         `json:"tick"`
	WorldParams     WorldParams    `json:"world_params"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type WorldParams struct {
	TickRateHz int `json:"tick_rate_hz"`
	BoundaryR  int `json:"boundary_r"`
}

type CatalogDigests struct {
	ItemPalette   DigestRef `json:"item_palette"`
	RecipesDigest string    `json:"recipes_digest"`
	TuningDigest  string    `json:"tuning_digest,omitempty"`
}

type DigestRef struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

// Command names carried in CmdMsg.Cmd.
const (
	CmdPlace       = "PLACE"
	CmdRemove      = "REMOVE"
	CmdSetRecipe   = "SET_RECIPE"
	CmdInsert      = "INSERT"
	CmdSetGround   = "SET_GROUND"
	CmdClearGround = "CLEAR_GROUND"
)

// CMD (client -> server). Which optional fields apply depends on Cmd.
type CmdMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	Cmd             string `json:"cmd"`
	Pos             [2]int `json:"pos"`

	Kind     string `json:"kind,omitempty"`
	Facing   string `json:"facing,omitempty"`
	From     string `json:"from,omitempty"`
	RecipeID string `json:"recipe_id,omitempty"`
	Side     string `json:"side,omitempty"`
	Item     string `json:"item,omitempty"`
	Count    int    `json:"count,omitempty"`
	Resource string `json:"resource,omitempty"`
}

// RESULT (server -> client) answers one CMD after the tick that applied it.
type ResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	Tick            uint64 `json:"tick"`
	Accepted        bool   `json:"accepted"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	// Applied is the number of items actually inserted for INSERT.
	Applied int `json:"applied,omitempty"`
}

// SUBSCRIBE (observer -> server)
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	MaxCells        int    `json:"max_cells,omitempty"`
}

// FRAME (server -> observer): the settled state after one tick.
type FrameMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	WorldID         string      `json:"world_id"`
	Tick            uint64      `json:"tick"`
	Digest          string      `json:"digest"`
	Stats           FrameStats  `json:"stats"`
	Cells           []FrameCell `json:"cells"`
	Truncated       bool        `json:"truncated,omitempty"`
}

type FrameStats struct {
	Nodes      int `json:"nodes"`
	Edges      int `json:"edges"`
	Components int `json:"components"`
	Actions    int `json:"actions"`
	Transfers  int `json:"transfers"`
	Rejected   int `json:"rejected"`
	Forced     int `json:"forced"`
}

type FrameCell struct {
	Pos    [2]int              `json:"pos"`
	Kind   string              `json:"kind"`
	Facing string              `json:"facing"`
	Input  map[string][]string `json:"input,omitempty"`
	Output map[string][]string `json:"output,omitempty"`

	Recipe    string   `json:"recipe,omitempty"`
	Countdown int      `json:"countdown,omitempty"`
	BurnTime  int      `json:"burn_time,omitempty"`
	Preferred []string `json:"preferred,omitempty"`
	Ground    string   `json:"ground,omitempty"`
}
