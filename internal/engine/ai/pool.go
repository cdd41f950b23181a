package ai

import (
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"tablecenter/internal/engine/rules"
)

// PoolManager is the default collaborator: a fixed pool of profiles
// checked out per session, with a configurable probability of leaving
// instead of rematching after a round. One shared instance is built by
// the composition root and injected everywhere.
type PoolManager struct {
	leaveProbability float64

	mu       sync.Mutex
	profiles []Profile
	inUse    map[string]bool
	rnd      *rand.Rand
}

func NewPoolManager(profiles []Profile, leaveProbability float64) *PoolManager {
	return &PoolManager{
		leaveProbability: leaveProbability,
		profiles:         profiles,
		inUse:            map[string]bool{},
		rnd:              rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *PoolManager) RequestOpponent(band rules.RatingRange) (Profile, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, prof := range p.profiles {
		if p.inUse[prof.ID] {
			continue
		}
		if !band.Contains(prof.Rating) {
			continue
		}
		p.inUse[prof.ID] = true
		return prof, true
	}
	return Profile{}, false
}

func (p *PoolManager) SessionStarted(tableID string, prof Profile) {
	log.Debug().Str("table_id", tableID).Str("ai_id", prof.ID).Msg("ai session opened")
}

func (p *PoolManager) HumanLeft(tableID string, prof Profile) Decision {
	log.Debug().Str("table_id", tableID).Str("ai_id", prof.ID).Msg("last human left ai table")
	return DecisionLeave
}

func (p *PoolManager) RoundEnded(_ string, _ Profile, _ bool) Decision {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rnd.Float64() < p.leaveProbability {
		return DecisionLeave
	}
	return DecisionStay
}

func (p *PoolManager) SessionClosed(tableID string, prof Profile) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inUse, prof.ID)
	log.Debug().Str("table_id", tableID).Str("ai_id", prof.ID).Msg("ai session closed")
}
