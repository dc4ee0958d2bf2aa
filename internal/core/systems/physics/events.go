package physics

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/zeusync/voxelphys/internal/core/components"
	"github.com/zeusync/voxelphys/internal/core/events/bus"
	"github.com/zeusync/voxelphys/internal/core/models"
)

const EventLandOnGround = "physics.land_on_ground"

var _ bus.Event = LandOnGround{}

// LandOnGround is emitted once per tick for an entity that goes from
// airborne to grounded.
type LandOnGround struct {
	Entity   models.EntityID
	Uid      components.Uid
	Velocity mgl32.Vec3
	Tick     uint64
	At       time.Time
}

func (e LandOnGround) Type() string         { return EventLandOnGround }
func (e LandOnGround) Source() string       { return Name }
func (e LandOnGround) Timestamp() time.Time { return e.At }
func (e LandOnGround) Data() any            { return e }
