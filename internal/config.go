package internal

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

type Config struct {
	Host              string        `env:"HOST,default=0.0.0.0"`
	Port              int           `env:"PORT,required=true"`
	JWTSecret         string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	BusBufferSize     int           `env:"BUS_BUFFER_SIZE,default=16"`
	LimitMessages     *int          `env:"LIMIT_MESSAGES"`
	CensoredWords     string        `env:"CENSORED_WORDS"`
	CharReplacement   string        `env:"CHARACTER_REPLACEMENT,default=*"`
	LogLevel          string        `env:"LOG_LEVEL,default=INFO"`
	SeedUsers         string        `env:"SEED_USERS"`
}

// JWTKey decodes the base64-encoded symmetric signing key.
func (c Config) JWTKey() ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(c.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("JWT_SECRET must be base64-encoded: %w", err)
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("JWT_SECRET decodes to an empty key")
	}
	return key, nil
}

// Words splits the comma-separated censored words list, dropping blanks.
func (c Config) Words() []string {
	return lo.FilterMap(strings.Split(c.CensoredWords, ","), func(w string, _ int) (string, bool) {
		w = strings.TrimSpace(w)
		return w, w != ""
	})
}

// Users parses SEED_USERS ("alice:pw1,bob:pw2") into id/password pairs.
func (c Config) Users() (map[string]string, error) {
	users := make(map[string]string)
	for _, pair := range strings.Split(c.SeedUsers, ",") {
		if pair = strings.TrimSpace(pair); pair == "" {
			continue
		}
		id, password, found := strings.Cut(pair, ":")
		if !found || id == "" {
			return nil, fmt.Errorf("SEED_USERS entry %q must be id:password", pair)
		}
		users[id] = password
	}
	return users, nil
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
