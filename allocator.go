package fmtrack

type (
	// NoteID identifies a logical note for the allocator. Negative values are
	// used for track-bound voices when rendering a song; positive values are
	// free for callers triggering ad hoc notes.
	NoteID int

	// VoiceAllocation records the hardware channels a note currently owns.
	// Channels has one or two entries; a degraded dual-voice allocation has
	// one entry but keeps IsDualVoice set so the caller knows the note asked
	// for two.
	VoiceAllocation struct {
		NoteID      NoteID
		Channels    []int
		StartTime   uint64 // monotonic allocation sequence number
		IsDualVoice bool
	}

	// VoiceAllocator owns the chip's fixed pool of hardware channels and maps
	// short-lived logical notes onto it, stealing the least recently started
	// voices when the pool runs dry. Resource exhaustion is never an error:
	// requests degrade before they fail, because audible voice loss beats a
	// failed render.
	VoiceAllocator struct {
		inUse [MaxChannels]bool
		byID  map[NoteID]*VoiceAllocation
		order []NoteID // allocation order, for deterministic LRU ties
		clock uint64
	}

	// AllocatorStats is a read-only snapshot of pool usage.
	AllocatorStats struct {
		Free               int
		Allocated          int
		DualVoiceNoteCount int
	}
)

func NewVoiceAllocator() *VoiceAllocator {
	return &VoiceAllocator{byID: make(map[NoteID]*VoiceAllocation)}
}

// AllocateSingle assigns one channel to the note, stealing the least recently
// started voice if nothing is free. Idempotent: a note that already holds an
// allocation gets its first channel back. Returns false only when no channel
// can be obtained at all, which cannot happen while any allocation exists.
func (a *VoiceAllocator) AllocateSingle(id NoteID) (channel int, ok bool) {
	if alloc, exists := a.byID[id]; exists {
		return alloc.Channels[0], true
	}
	ch, ok := a.takeFree()
	if !ok {
		if victim := a.oldest(false); victim == nil {
			victim = a.oldest(true)
			if victim == nil {
				return 0, false
			}
			a.Release(victim.NoteID)
		} else {
			a.Release(victim.NoteID)
		}
		ch, ok = a.takeFree()
		if !ok {
			return 0, false
		}
	}
	a.record(id, []int{ch}, false)
	return ch, true
}

// AllocateDual assigns two channels to the note. If fewer than two channels
// are free, it steals the oldest single-voice allocations; dual-voice
// allocations are never stolen here, to avoid cascading churn. When fewer
// than two single-voice allocations exist to steal, the request degrades to
// a single channel returned in both positions, with the allocation still
// flagged dual-voice.
func (a *VoiceAllocator) AllocateDual(id NoteID) (first, second int, ok bool) {
	if alloc, exists := a.byID[id]; exists {
		if len(alloc.Channels) == 2 {
			return alloc.Channels[0], alloc.Channels[1], true
		}
		return alloc.Channels[0], alloc.Channels[0], true
	}
	if a.freeCount() < 2 && a.countSingles() >= 2 {
		for a.freeCount() < 2 {
			victim := a.oldest(false)
			if victim == nil {
				break
			}
			a.Release(victim.NoteID)
		}
	}
	if a.freeCount() >= 2 {
		ch1, _ := a.takeFree()
		ch2, _ := a.takeFree()
		a.record(id, []int{ch1, ch2}, true)
		return ch1, ch2, true
	}
	// degrade to mono rather than fail
	ch, ok := a.AllocateSingle(id)
	if !ok {
		return 0, 0, false
	}
	a.byID[id].IsDualVoice = true
	return ch, ch, true
}

// Release frees all channels owned by the note. Unknown notes and double
// releases are no-ops, so cleanup paths can release unconditionally.
func (a *VoiceAllocator) Release(id NoteID) {
	alloc, exists := a.byID[id]
	if !exists {
		return
	}
	for _, ch := range alloc.Channels {
		a.inUse[ch] = false
	}
	delete(a.byID, id)
	for i, oid := range a.order {
		if oid == id {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
}

// Allocation returns a copy of the note's current allocation record.
func (a *VoiceAllocator) Allocation(id NoteID) (VoiceAllocation, bool) {
	alloc, exists := a.byID[id]
	if !exists {
		return VoiceAllocation{}, false
	}
	channels := make([]int, len(alloc.Channels))
	copy(channels, alloc.Channels)
	ret := *alloc
	ret.Channels = channels
	return ret, true
}

// Stats returns a snapshot of pool usage.
func (a *VoiceAllocator) Stats() AllocatorStats {
	stats := AllocatorStats{Free: a.freeCount()}
	for _, alloc := range a.byID {
		stats.Allocated += len(alloc.Channels)
		if alloc.IsDualVoice {
			stats.DualVoiceNoteCount++
		}
	}
	return stats
}

// Reset clears all allocations and refills the free pool. Independent render
// passes each start from a reset allocator so nothing leaks between exports.
func (a *VoiceAllocator) Reset() {
	a.inUse = [MaxChannels]bool{}
	a.byID = make(map[NoteID]*VoiceAllocation)
	a.order = a.order[:0]
	a.clock = 0
}

func (a *VoiceAllocator) record(id NoteID, channels []int, dual bool) {
	a.clock++
	a.byID[id] = &VoiceAllocation{NoteID: id, Channels: channels, StartTime: a.clock, IsDualVoice: dual}
	a.order = append(a.order, id)
}

// takeFree claims the lowest-indexed free channel.
func (a *VoiceAllocator) takeFree() (int, bool) {
	for ch := 0; ch < MaxChannels; ch++ {
		if !a.inUse[ch] {
			a.inUse[ch] = true
			return ch, true
		}
	}
	return 0, false
}

func (a *VoiceAllocator) freeCount() int {
	n := 0
	for _, used := range a.inUse {
		if !used {
			n++
		}
	}
	return n
}

func (a *VoiceAllocator) countSingles() int {
	n := 0
	for _, alloc := range a.byID {
		if !alloc.IsDualVoice {
			n++
		}
	}
	return n
}

// oldest returns the live allocation with the smallest StartTime, walking the
// allocation order so equal-age candidates resolve deterministically.
func (a *VoiceAllocator) oldest(dual bool) *VoiceAllocation {
	var ret *VoiceAllocation
	for _, id := range a.order {
		alloc := a.byID[id]
		if alloc == nil || alloc.IsDualVoice != dual {
			continue
		}
		if ret == nil || alloc.StartTime < ret.StartTime {
			ret = alloc
		}
	}
	return ret
}
