package main

import "bytes"

// staleness window in seconds after which the broadcast baseline is
// refreshed even without divergence
const reckoningWindow = 3

// Reconciler decides which state of one character goes out in snapshots.
// Reckoning is advanced blind each tick from the last broadcast state;
// as long as it matches the live core byte for byte, viewers extrapolating
// from Send are still right and nothing needs to be resent.
type Reconciler struct {
	Tick      int64 // baseline tick; 0 until the first refresh
	Send      CharacterCore
	Reckoning CharacterCore

	Refreshes int
}

// Reset forgets the baseline, used on spawn
func (r *Reconciler) Reset() {
	*r = Reconciler{}
}

// Advance steps the reckoning core one tick in a world of its own without
// input, the way a viewer extrapolates
func (r *Reconciler) Advance(collision *CollisionMap, tuning *Tuning) {
	r.Reckoning.Init(NewWorldCore(tuning), collision)
	r.Reckoning.Tick(false)
	r.Reckoning.Move()
	r.Reckoning.Quantize()
}

// Compare checks the settled live core against the reckoning core and
// refreshes the baseline when they differ or the baseline is stale.
// Reports whether a refresh happened.
func (r *Reconciler) Compare(tick int64, tickSpeed int, core *CharacterCore) bool {
	var predicted, current NetCharacter
	r.Reckoning.Write(&predicted)
	core.Write(&current)

	stale := r.Tick+int64(tickSpeed)*reckoningWindow < tick
	if !stale && bytes.Equal(EncodeNetCharacter(&predicted), EncodeNetCharacter(&current)) {
		return false
	}

	r.Tick = tick
	r.Send = *core
	r.Reckoning = *core
	r.Refreshes++
	return true
}

// Shift keeps the baseline aligned while the world is paused so
// extrapolation resumes from the same offset afterwards
func (r *Reconciler) Shift() {
	if r.Tick != 0 {
		r.Tick++
	}
}

// Slot returns the tick and state to put in a snapshot. While paused or
// before the first baseline it is the literal live state with tick 0.
func (r *Reconciler) Slot(paused bool, core *CharacterCore) (int64, NetCharacter) {
	var out NetCharacter
	if paused || r.Tick == 0 {
		core.Write(&out)
		return 0, out
	}
	r.Send.Write(&out)
	return r.Tick, out
}
