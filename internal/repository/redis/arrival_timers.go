package redis

import (
	"context"
	"strconv"
	"time"
)

// Key pattern for movement arrival timers.
func arrivalKey(movementID int64) string {
	return "movement:" + strconv.FormatInt(movementID, 10) + ":arrival"
}

// arrivalGracePeriod delays expiry slightly past the arrival time so the
// combat pass never fires before the movement is actually ripe.
const arrivalGracePeriod = time.Second

// SetArrivalTimer creates a timer key that expires when a movement
// arrives at its target. Keyspace notifications on the expiry trigger a
// combat pass.
func (c *Client) SetArrivalTimer(ctx context.Context, movementID int64, arrival time.Time) error {
	ttl := time.Until(arrival) + arrivalGracePeriod
	if ttl <= 0 {
		ttl = time.Second
	}
	return c.rdb.Set(ctx, arrivalKey(movementID), arrival.Unix(), ttl).Err()
}

// ClearArrivalTimer removes a movement's arrival timer.
func (c *Client) ClearArrivalTimer(ctx context.Context, movementID int64) error {
	return c.rdb.Del(ctx, arrivalKey(movementID)).Err()
}
