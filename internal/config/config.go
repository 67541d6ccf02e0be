package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers, ints for durations in their
// natural unit.
type Config struct {
    Env              string // application environment (e.g. "dev", "prod")
    Port             string // HTTP port to listen on
    DBUser           string // database username
    DBPass           string // database password (optional)
    DBHost           string // database host address
    DBPort           string // database port number
    DBName           string // database name
    HoldTTLMin       int    // minutes a seat reservation is held before it expires
    CartTTLMin       int    // minutes a cart survives without being touched
    SweepIntervalSec int    // seconds between expiry reconciler runs
    Currency         string // default ISO currency code for bookings
    CouponServiceURL string // base URL of the promo code validation service (optional)
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Tunables fall back
// to sensible defaults so a bare .env with database settings is enough to
// boot the service.
func Load() Config {
    return Config{
        Env:              must("APP_ENV"),                       // environment (dev/test/prod)
        Port:             must("APP_PORT"),                      // port to bind the HTTP server
        DBUser:           must("DB_USER"),                       // database user
        DBPass:           os.Getenv("DB_PASS"),                  // database password (empty allowed)
        DBHost:           must("DB_HOST"),                       // database host
        DBPort:           must("DB_PORT"),                       // database port
        DBName:           must("DB_NAME"),                       // database name
        HoldTTLMin:       getenvInt("HOLD_TTL_MIN", 15),         // reservation hold duration
        CartTTLMin:       getenvInt("CART_TTL_MIN", 15),         // cart idle lifetime
        SweepIntervalSec: getenvInt("SWEEP_INTERVAL_SEC", 60),   // reconciler cadence
        Currency:         getenv("DEFAULT_CURRENCY", "USD"),     // currency for new bookings
        CouponServiceURL: os.Getenv("COUPON_SERVICE_URL"),       // promo validation endpoint (empty disables promos)
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

// getenv retrieves an optional environment variable, falling back to def
// when it is unset or empty.
func getenv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

// getenvInt is like getenv() but converts the value to an integer.  A value
// that does not parse is treated as a configuration mistake and aborts
// startup, matching the behavior of must().
func getenvInt(key string, def int) int {
    s := os.Getenv(key)
    if s == "" {
        return def
    }
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}
