package locksvc

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/juku/core"
)

// New returns the locker selected by conf.Driver and a func releasing its connection.
func New(ctx context.Context, conf core.LockConfig, log core.Logger) (core.Locker, func(), error) {
	switch conf.Driver {
	case core.LockRedis:
		client, err := NewRedisClient(ctx, conf.Redis)
		if err != nil {
			return nil, nil, err
		}
		return NewRedisLocker(client, conf, log), func() { _ = client.Close() }, nil
	case core.LockLocal:
		return NewLocalLocker(conf.Wait), func() {}, nil
	default:
		return nil, nil, errors.Errorf("unknown lock driver %q", conf.Driver)
	}
}
