package utils

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// GridOffer is a pending medium-carbon claim waiting for the user's explicit
// half-credit confirmation. The multiplier applied on confirm is the one that
// was offered, not a re-check of the grid.
type GridOffer struct {
	UserID     uint    `json:"user_id"`
	TaskID     int     `json:"task_id"`
	Multiplier float64 `json:"multiplier"`
	Intensity  int     `json:"intensity"`
}

const offerTTL = 10 * time.Minute

type offerEntry struct {
	offer     GridOffer
	expiresAt time.Time
}

var (
	offerStore   = map[string]offerEntry{}
	offerStoreMu sync.Mutex
)

// SaveGridOffer stores an offer and returns its single-use token. Redis is
// preferred so tokens survive restarts; in-memory is the single-instance
// fallback.
func SaveGridOffer(offer GridOffer) string {
	token := uuid.NewString()
	storeGridOffer(token, offer)
	return token
}

// RestoreGridOffer puts a consumed offer back under its original token. Used
// when the credit it was consumed for could not be applied, so the user does
// not lose the offer to a transient failure.
func RestoreGridOffer(token string, offer GridOffer) {
	storeGridOffer(token, offer)
}

func storeGridOffer(token string, offer GridOffer) {
	if rc := GetRedis(); rc != nil {
		b, err := json.Marshal(offer)
		if err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if rc.Set(ctx, "grid:offer:"+token, b, offerTTL).Err() == nil {
				return
			}
		}
	}

	offerStoreMu.Lock()
	offerStore[token] = offerEntry{offer: offer, expiresAt: time.Now().Add(offerTTL)}
	offerStoreMu.Unlock()
}

// ConsumeGridOffer validates and removes an offer token. A token can be
// consumed at most once.
func ConsumeGridOffer(token string) (GridOffer, bool) {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if v, err := rc.GetDel(ctx, "grid:offer:"+token).Bytes(); err == nil {
			var offer GridOffer
			if json.Unmarshal(v, &offer) == nil {
				return offer, true
			}
			return GridOffer{}, false
		}
		// fall through: the token may predate a redis outage
	}

	offerStoreMu.Lock()
	entry, ok := offerStore[token]
	if ok {
		delete(offerStore, token)
	}
	offerStoreMu.Unlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return GridOffer{}, false
	}
	return entry.offer, true
}
