package otp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/flora-checkout/internal/redisx"
)

// RedisStore keeps the active code per user plus a (username, code) lookup key.
// Codes have no TTL; they are revoked only when replaced.
type RedisStore struct{ Redis *redis.Client }

func (s *RedisStore) Replace(ctx context.Context, c Code) error {
	userKey := fmt.Sprintf(redisx.KeyOTPUser, c.UserID)
	record, err := json.Marshal(c)
	if err != nil {
		return err
	}

	// Retry once on a concurrent renewal of the same user.
	for attempt := 0; attempt < 2; attempt++ {
		err = s.Redis.Watch(ctx, func(tx *redis.Tx) error {
			var prev Code
			raw, err := tx.Get(ctx, userKey).Bytes()
			switch {
			case errors.Is(err, redis.Nil):
			case err != nil:
				return err
			default:
				if err := json.Unmarshal(raw, &prev); err != nil {
					return errors.Wrap(err, "decode previous code")
				}
			}

			_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
				if prev.Code != "" {
					p.Del(ctx, fmt.Sprintf(redisx.KeyOTPCode, prev.Username, prev.Code))
				}
				p.Set(ctx, userKey, record, 0)
				p.Set(ctx, fmt.Sprintf(redisx.KeyOTPCode, c.Username, c.Code), strconv.FormatInt(c.UserID, 10), 0)
				return nil
			})
			return err
		}, userKey)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	return errors.Wrap(err, "replace otp")
}

func (s *RedisStore) Exists(ctx context.Context, code, username string) (bool, error) {
	ok, err := redisx.Exists(ctx, s.Redis, fmt.Sprintf(redisx.KeyOTPCode, username, code))
	return ok, errors.Wrap(err, "otp exists")
}
