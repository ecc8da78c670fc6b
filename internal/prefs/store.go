package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/farhan-ashraf/simpledex-analytics/internal/guard"
	"github.com/farhan-ashraf/simpledex-analytics/internal/models"
)

const valuePrefix = "prefs:slippage:"

// ErrNotFound is returned when a user has never saved preferences. Load
// papers over it with defaults; it only surfaces through Delete/raw Get.
var ErrNotFound = errors.New("preference not found")

var userRe = regexp.MustCompile(`^[a-zA-Z0-9]{1,128}$`)

// Store persists per-user slippage preferences in Redis, keyed by the
// lowercased user address.
type Store struct {
	client redis.Cmdable
}

func NewStore(client redis.Cmdable) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &Store{client: client}, nil
}

// ValidateUser checks the user address shape before it becomes part of a
// Redis key.
func ValidateUser(user string) error {
	if !userRe.MatchString(user) {
		return fmt.Errorf("invalid user address")
	}
	return nil
}

// Save validates and persists one user's preference. Out-of-range values
// are rejected with guard.ErrInvalidPreference, never silently clamped.
func (s *Store) Save(ctx context.Context, user string, pref models.SlippagePreference) (*models.SlippagePreference, error) {
	if err := ValidateUser(user); err != nil {
		return nil, err
	}
	if err := guard.Validate(pref); err != nil {
		return nil, err
	}

	pref.UpdatedAt = time.Now().UTC()
	b, err := json.Marshal(pref)
	if err != nil {
		return nil, fmt.Errorf("marshal preference: %w", err)
	}

	if err := s.client.Set(ctx, prefKey(user), b, 0).Err(); err != nil {
		return nil, fmt.Errorf("save preference: %w", err)
	}
	return &pref, nil
}

// Load returns the user's stored preference, or the defaults when nothing
// was ever saved. A user with no row is indistinguishable from one who
// saved the defaults, which is the intended UI behavior.
func (s *Store) Load(ctx context.Context, user string) (models.SlippagePreference, error) {
	if err := ValidateUser(user); err != nil {
		return models.SlippagePreference{}, err
	}

	val, err := s.client.Get(ctx, prefKey(user)).Result()
	if err == redis.Nil {
		return guard.DefaultPreference(), nil
	}
	if err != nil {
		return models.SlippagePreference{}, fmt.Errorf("load preference: %w", err)
	}

	var pref models.SlippagePreference
	if err := json.Unmarshal([]byte(val), &pref); err != nil {
		return models.SlippagePreference{}, fmt.Errorf("unmarshal preference: %w", err)
	}
	// stored rows predating a bounds change get clamped on the way out
	return guard.Clamp(pref), nil
}

// Delete drops the stored preference, reverting the user to defaults.
func (s *Store) Delete(ctx context.Context, user string) error {
	if err := ValidateUser(user); err != nil {
		return err
	}
	if err := s.client.Del(ctx, prefKey(user)).Err(); err != nil {
		return fmt.Errorf("delete preference: %w", err)
	}
	return nil
}

func prefKey(user string) string {
	return valuePrefix + strings.ToLower(user)
}
