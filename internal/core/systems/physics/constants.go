package physics

// Engine tuning. These are fixed gameplay constants, not runtime settings.
const (
	Gravity  float32 = 9.81 * 5.0
	Buoyancy float32 = 1.0

	FrictionAir    float32 = 0.0125
	FrictionGround float32 = 0.15
	FrictionFluid  float32 = 0.2

	TerminalVelocity float32 = -80

	// FrictionBaseline is the tick rate the friction constants were tuned at.
	FrictionBaseline float32 = 60
	// DeltaLerp weights the new velocity when deriving the position delta.
	DeltaLerp float32 = 0.2
	// SubmergedDepth is the fluid depth past which buoyancy applies.
	SubmergedDepth float32 = 0.75

	SubstepLength    float32 = 0.3
	MaxResolveTries          = 16
	StepProbe        float32 = 0.1
	SupportProbe     float32 = 1.05
	SnapProbe        float32 = 0.05
	SnapMaxFallSpeed float32 = 1.5
	WallProbe        float32 = 0.01
	BlockPickZBias   float32 = 0.5

	PushbackDistance float32 = 0.55
	PushbackHeight   float32 = 1.6
)
