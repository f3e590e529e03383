package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time is used for duration tunables
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints and durations
// for limits and timeouts.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time‑to‑live in minutes
	RefreshTTLDays int    // refresh token time‑to‑live in days
	BcryptCost     int    // bcrypt cost for password hashing

	Admission AdmissionConfig // waiting-room and active-session tuning
	Lock      LockConfig      // distributed seat lock tuning
}

// AdmissionConfig tunes the waiting room.  All values have sane
// defaults and are only overridden through environment variables, so
// a bare deployment admits up to 2000 concurrent purchase sessions
// per concert, the shape the original launch ran with.
type AdmissionConfig struct {
	Capacity              int64         // max concurrently active purchase sessions per concert
	ActiveTTL             time.Duration // inactivity window after which an active session stops counting
	WaitingTTL            time.Duration // age after which a never-admitted waiting entry is evicted
	OverbookFactor        int64         // read path reports "queue active" above Capacity*OverbookFactor
	PerUserServiceSeconds int64         // heuristic seconds of funnel time per waiting position
}

// LockConfig tunes per-seat distributed locks.  WaitTimeout bounds
// how long a reservation attempt blocks on a contended seat; Lease
// bounds how long a crashed holder can keep a seat locked.
type LockConfig struct {
	WaitTimeout time.Duration // max time to wait for one seat lock
	Lease       time.Duration // auto-expiry of a held lock
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Tunables fall back
// to defaults when unset.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),                   // environment (dev/test/prod)
		Port:           must("APP_PORT"),                  // port to bind the HTTP server
		DBUser:         must("DB_USER"),                   // database user
		DBPass:         os.Getenv("DB_PASS"),              // database password (empty allowed)
		DBHost:         must("DB_HOST"),                   // database host
		DBPort:         must("DB_PORT"),                   // database port
		DBName:         must("DB_NAME"),                   // database name
		JWTSecret:      must("JWT_SECRET"),                // secret used for signing JWTs
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),   // TTL for access tokens in minutes
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"), // TTL for refresh tokens in days
		BcryptCost:     mustInt("BCRYPT_COST"),            // bcrypt cost factor
		Admission: AdmissionConfig{
			Capacity:              int64(envInt("ADMISSION_CAPACITY", 2000)),
			ActiveTTL:             envDur("ADMISSION_ACTIVE_TTL", 5*time.Minute),
			WaitingTTL:            envDur("ADMISSION_WAITING_TTL", 30*time.Minute),
			OverbookFactor:        int64(envInt("ADMISSION_OVERBOOK_FACTOR", 3)),
			PerUserServiceSeconds: int64(envInt("ADMISSION_SERVICE_SECONDS", 2)),
		},
		Lock: LockConfig{
			WaitTimeout: envDur("SEAT_LOCK_WAIT", 5*time.Second),
			Lease:       envDur("SEAT_LOCK_LEASE", 5*time.Second),
		},
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
