package config

import "time"

// Game constants. Client and server must agree on all of these.
const (
	// World is a fixed rectangle starting at the origin.
	WorldWidth  = 3000.0
	WorldHeight = 3000.0

	// Food pool
	MaxFood       = 500
	FoodMinRadius = 2.0
	FoodMaxRadius = 6.0 // exclusive
	FoodMinValue  = 1
	FoodMaxValue  = 3 // inclusive

	// Snake
	MinSnakeSize     = 5.0
	MaxSnakeSize     = 150.0
	InitialSnakeSize = 10.0
	MaxSpeed         = 1.0 // px per frame at MinSnakeSize
	MinSpeed         = 0.3 // px per frame at MaxSnakeSize

	// Out-of-bounds penalty: BoundaryShrink * max(1, radius/BoundaryShrinkScale) per frame
	BoundaryShrink      = 0.1
	BoundaryShrinkScale = 10.0
	// Size-proportional decay applied every frame
	DecayRate = 0.0001

	// Broadcast Scheduler period (~60 Hz)
	BroadcastInterval = 16 * time.Millisecond
	// Client render-rate tick
	FrameInterval = time.Second / 60

	// Viewport used for camera offset on headless clients
	ViewportWidth  = 1536.0
	ViewportHeight = 864.0

	DefaultNickname   = "Player"
	MaxNicknameLength = 24
)

// Server connection tuning
const (
	WebSocketPath  = "/ws"
	SendBufferSize = 256
	ReadLimit      = 1 << 16
	WriteWait      = 10 * time.Second
	PongWait       = 60 * time.Second
	PingPeriod     = (PongWait * 9) / 10
)
