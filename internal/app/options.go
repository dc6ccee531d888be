package app

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"studysphere-tracker/internal/crypto"
)

// Options are the collaborators shared by the tracker components. Zero values
// are replaced with production defaults.
type Options struct {
	// Clock returns the current time; tests pin it.
	Clock func() time.Time
	// Location decides calendar-day boundaries for streaks.
	Location *time.Location
	Hasher   crypto.Hasher
	// NewID returns a fresh identifier with the given prefix.
	NewID  func(prefix string) string
	Logger *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Hasher == nil {
		o.Hasher = crypto.NewArgon2Hasher(crypto.DefaultArgon2Params)
	}
	if o.NewID == nil {
		o.NewID = newID
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

func newID(prefix string) string {
	return prefix + uuid.NewString()
}
