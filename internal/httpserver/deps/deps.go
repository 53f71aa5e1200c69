package deps

import (
	"time"

	"github.com/franckmandon/vinylib-sub000/internal/catalog"
	"github.com/franckmandon/vinylib-sub000/internal/logger"
	"github.com/franckmandon/vinylib-sub000/internal/store"
)

type Deps struct {
	Logger          logger.Logger
	StartTime       time.Time
	Version         string
	Commit          string
	BuildDate       string
	GoVersion       string
	TimeNow         func() time.Time  // for testing, defaults to time.Now
	AllowedCIDRS    []string          // IPs allowed to access readyz/infra/metrics
	TrustProxy      bool              // true if running behind a trusted reverse proxy
	CORSOrigins     []string          // Origins allowed by the CORS middleware
	WriteRatePerMin int               // Per-IP sustained rate for mutating requests
	WriteBurst      int               // Per-IP burst for mutating requests
	Backend         string            // Name of the KV backend in use
	Catalog         *catalog.Service  // Record, ownership, rating and bookmark operations
	Accounts        *catalog.Accounts // Registration and identity resolution
	Records         *store.Records    // Direct store access for probes and counts
	Users           *store.Users      // User counts for infra
}

// Now returns the injected clock or time.Now.
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
