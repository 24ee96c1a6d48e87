package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/salesworks/sales-engine/pkg/models"
	"github.com/salesworks/sales-engine/pkg/normalize"
	"github.com/salesworks/sales-engine/pkg/repositories"
)

// Resolution is the outcome of resolving one name.
type Resolution struct {
	ID      uuid.UUID
	Key     string // normalized name used as the lookup key
	Created bool
	// Warning is set when the store already held duplicate entities
	// for the key and the first match was used.
	Warning *models.Warning
}

// Resolver maps normalized entity names to persisted entity ids,
// creating entities on first sight. One Resolver serves one import
// run: its alias cache is scoped to the run, while the entity store
// provides cross-run continuity. Create-or-fetch is serialized per
// normalized key, so concurrent workers resolving the same new name
// get the same id.
type Resolver struct {
	store  repositories.EntityStore
	logger *zap.Logger

	mu    sync.RWMutex
	cache map[string]Resolution

	locks keyedLocks
}

// NewResolver creates a Resolver for a single import run.
func NewResolver(store repositories.EntityStore, logger *zap.Logger) *Resolver {
	return &Resolver{
		store:  store,
		logger: logger.Named("resolver"),
		cache:  make(map[string]Resolution),
		locks:  keyedLocks{locks: make(map[string]*sync.Mutex)},
	}
}

// Resolve normalizes rawName and returns the id of the matching
// entity, creating one when absent. The returned Resolution reports
// whether a new entity was created during this call.
func (r *Resolver) Resolve(ctx context.Context, kind models.EntityKind, rawName string) (Resolution, error) {
	key := normalize.Name(rawName)
	if key == "" {
		return Resolution{}, fmt.Errorf("name %q normalizes to empty", rawName)
	}
	cacheKey := string(kind) + "\x00" + key

	r.mu.RLock()
	res, ok := r.cache[cacheKey]
	r.mu.RUnlock()
	if ok {
		// Cache hits never re-report creation or conflicts.
		return Resolution{ID: res.ID, Key: key}, nil
	}

	// Serialize create-or-fetch per key. The store call is blocking
	// I/O, but holding the key lock across it is exactly what keeps
	// two workers from creating the same entity twice.
	unlock := r.locks.lock(cacheKey)
	defer unlock()

	r.mu.RLock()
	res, ok = r.cache[cacheKey]
	r.mu.RUnlock()
	if ok {
		return Resolution{ID: res.ID, Key: key}, nil
	}

	res, err := r.resolveUncached(ctx, kind, rawName, key)
	if err != nil {
		return Resolution{}, err
	}

	r.mu.Lock()
	r.cache[cacheKey] = res
	r.mu.Unlock()
	return res, nil
}

func (r *Resolver) resolveUncached(ctx context.Context, kind models.EntityKind, rawName, key string) (Resolution, error) {
	refs, err := r.store.FindByNormalizedName(ctx, kind, key)
	if err != nil {
		return Resolution{}, fmt.Errorf("failed to look up %s %q: %w", kind, key, err)
	}

	if len(refs) > 0 {
		res := Resolution{ID: refs[0].ID, Key: key}
		if len(refs) > 1 {
			// Pre-existing data defect: duplicate normalized keys.
			// First match wins; never create a third duplicate.
			r.logger.Warn("duplicate normalized key in store",
				zap.String("kind", string(kind)),
				zap.String("key", key),
				zap.Int("matches", len(refs)))
			res.Warning = &models.Warning{
				Kind:    models.WarningResolutionConflict,
				Message: fmt.Sprintf("%s %q matches %d entities; using first", kind, key, len(refs)),
			}
		}
		return res, nil
	}

	id, err := r.store.CreateFromImport(ctx, kind, strings.TrimSpace(rawName), key)
	if err != nil {
		return Resolution{}, fmt.Errorf("failed to create %s %q: %w", kind, key, err)
	}
	r.logger.Debug("entity created",
		zap.String("kind", string(kind)),
		zap.String("key", key),
		zap.String("id", id.String()))
	return Resolution{ID: id, Key: key, Created: true}, nil
}

// keyedLocks hands out one mutex per key.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedLocks) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
