package config

// Redis backs the cart store: one JSON blob per (user, event) pair that
// expires on its own TTL.  Connection parameters come from the environment.
// When the server cannot be reached at startup the constructor returns nil
// and the service runs with carts disabled.

import (
    "context"
    "crypto/tls"
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
)

// Cart payloads are a few hundred bytes; a cart that cannot be read
// quickly is reported unavailable rather than allowed to stall checkout.
const (
    redisDialTimeout = 2 * time.Second
    redisOpTimeout   = 1 * time.Second
)

// redisAddr resolves the server address.  REDIS_HOST plus REDIS_PORT win
// over the REDIS_ADDR shorthand; with neither set a local default is used.
func redisAddr() string {
    if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
        return host + ":" + port
    }
    if addr := os.Getenv("REDIS_ADDR"); addr != "" {
        return addr
    }
    return "localhost:6379"
}

// NewRedisClient builds and pings the client used by the cart store.
// Recognised variables: REDIS_HOST, REDIS_PORT, REDIS_ADDR, REDIS_PASSWORD,
// REDIS_DB and REDIS_TLS.  Returns nil when the ping fails.
func NewRedisClient() *redis.Client {
    db := 0
    if s := os.Getenv("REDIS_DB"); s != "" {
        if n, err := strconv.Atoi(s); err == nil {
            db = n
        }
    }
    var tlsConf *tls.Config
    if v := os.Getenv("REDIS_TLS"); v == "1" || strings.EqualFold(v, "true") {
        tlsConf = &tls.Config{InsecureSkipVerify: true}
    }
    client := redis.NewClient(&redis.Options{
        Addr:         redisAddr(),
        Password:     os.Getenv("REDIS_PASSWORD"),
        DB:           db,
        DialTimeout:  redisDialTimeout,
        ReadTimeout:  redisOpTimeout,
        WriteTimeout: redisOpTimeout,
        TLSConfig:    tlsConf,
    })

    ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        return nil
    }
    return client
}
