package system

import (
	"fmt"

	"github.com/zeusync/voxelphys/internal/core/components"
	"github.com/zeusync/voxelphys/internal/core/models"
)

// World owns the entity registry and one typed store per component.
// Structural changes (Spawn, Despawn, Insert) happen between ticks; systems
// only mutate existing slots.
type World struct {
	Entities *models.Registry

	Uids         *models.Storage[components.Uid]
	Pos          *models.Storage[components.Pos]
	Vel          *models.Storage[components.Vel]
	Ori          *models.Storage[components.Ori]
	Scale        *models.Storage[components.Scale]
	Mass         *models.Storage[components.Mass]
	Collider     *models.Storage[components.Collider]
	Sticky       *models.Storage[components.Sticky]
	Gravity      *models.Storage[components.Gravity]
	Group        *models.Storage[components.Group]
	Projectile   *models.Storage[components.Projectile]
	Mounting     *models.Storage[components.Mounting]
	PhysicsState *models.Storage[components.PhysicsState]

	uidIndex map[components.Uid]models.EntityID
	nextUid  components.Uid
	tick     uint64
}

func NewWorld() *World {
	return &World{
		Entities:     models.NewRegistry(),
		Uids:         models.NewStorage[components.Uid](),
		Pos:          models.NewStorage[components.Pos](),
		Vel:          models.NewStorage[components.Vel](),
		Ori:          models.NewStorage[components.Ori](),
		Scale:        models.NewStorage[components.Scale](),
		Mass:         models.NewStorage[components.Mass](),
		Collider:     models.NewStorage[components.Collider](),
		Sticky:       models.NewStorage[components.Sticky](),
		Gravity:      models.NewStorage[components.Gravity](),
		Group:        models.NewStorage[components.Group](),
		Projectile:   models.NewStorage[components.Projectile](),
		Mounting:     models.NewStorage[components.Mounting](),
		PhysicsState: models.NewStorage[components.PhysicsState](),
		uidIndex:     make(map[components.Uid]models.EntityID),
		nextUid:      1,
	}
}

// Spawn creates an entity with a fresh Uid.
func (w *World) Spawn() models.EntityID {
	id := w.Entities.Create()
	uid := w.nextUid
	w.nextUid++
	w.Uids.Insert(id, uid)
	w.uidIndex[uid] = id
	return id
}

// Despawn removes the entity and every component it holds.
func (w *World) Despawn(id models.EntityID) error {
	if !w.Entities.Alive(id) {
		return fmt.Errorf("despawn %s: %w", id, models.ErrEntityNotFound)
	}
	if uid, ok := w.Uids.Get(id); ok {
		delete(w.uidIndex, uid)
	}
	w.Uids.Remove(id)
	w.Pos.Remove(id)
	w.Vel.Remove(id)
	w.Ori.Remove(id)
	w.Scale.Remove(id)
	w.Mass.Remove(id)
	w.Collider.Remove(id)
	w.Sticky.Remove(id)
	w.Gravity.Remove(id)
	w.Group.Remove(id)
	w.Projectile.Remove(id)
	w.Mounting.Remove(id)
	w.PhysicsState.Remove(id)
	return w.Entities.Destroy(id)
}

func (w *World) EntityByUid(uid components.Uid) (models.EntityID, bool) {
	id, ok := w.uidIndex[uid]
	if !ok || !w.Entities.Alive(id) {
		return models.NoEntity, false
	}
	return id, true
}

// Uid returns the entity's Uid, or 0.
func (w *World) Uid(id models.EntityID) components.Uid {
	return w.Uids.GetOr(id, 0)
}

// Tick is the number of completed simulation ticks.
func (w *World) Tick() uint64 { return w.tick }

// Advance marks one tick as completed; called by the systems manager.
func (w *World) Advance() { w.tick++ }
