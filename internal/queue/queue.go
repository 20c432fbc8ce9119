package queue

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	sweepQueueKey    = "sweep_queue"
	sweepInFlightKey = "sweep_inflight"
	sweepCursorKey   = "sweep_cursor"
)

// Client wraps Redis operations for the liquidation sweep queue. Positions
// are queued scored by health factor, so the closest to liquidation is
// always popped first.
type Client struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewClient creates a new Redis queue client
func NewClient(redisURL string, logger zerolog.Logger) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info().Str("redis_url", redisURL).Msg("Connected to Redis successfully")

	return &Client{
		client: client,
		logger: logger.With().Str("component", "queue").Logger(),
	}, nil
}

// Redis returns the underlying client for components that share the
// connection, like the price cache and the arb deposit limiter.
func (c *Client) Redis() *redis.Client {
	return c.client
}

// PopPosition removes and returns the position with the lowest health
// factor. Returns 0 when the queue is empty.
func (c *Client) PopPosition(ctx context.Context) (uint, error) {
	result, err := c.client.ZPopMin(ctx, sweepQueueKey, 1).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to pop position from queue: %w", err)
	}

	if len(result) == 0 {
		return 0, nil
	}

	member, ok := result[0].Member.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected queue member type %T", result[0].Member)
	}
	id, err := strconv.ParseUint(member, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid position id %q in queue: %w", member, err)
	}

	c.logger.Debug().Uint64("position_id", id).Msg("Popped position from queue")
	return uint(id), nil
}

// PushPosition adds a position to the queue scored by its last observed
// health factor. Re-pushing an already queued position just updates the
// score.
func (c *Client) PushPosition(ctx context.Context, positionID uint, healthFactor int64) error {
	err := c.client.ZAdd(ctx, sweepQueueKey, redis.Z{
		Score:  float64(healthFactor),
		Member: strconv.FormatUint(uint64(positionID), 10),
	}).Err()

	if err != nil {
		return fmt.Errorf("failed to push position to queue: %w", err)
	}

	c.logger.Debug().
		Uint("position_id", positionID).
		Int64("health_factor", healthFactor).
		Msg("Pushed position to queue")

	return nil
}

// SetInFlight marks a position as being checked by a worker
func (c *Client) SetInFlight(ctx context.Context, positionID uint, worker string) error {
	value := fmt.Sprintf("%s,%d", worker, time.Now().Unix())
	err := c.client.HSet(ctx, sweepInFlightKey, positionField(positionID), value).Err()

	if err != nil {
		return fmt.Errorf("failed to set position in-flight: %w", err)
	}

	c.logger.Debug().
		Uint("position_id", positionID).
		Str("worker", worker).
		Msg("Marked position as in-flight")

	return nil
}

// RemoveInFlight removes a position from the in-flight tracking
func (c *Client) RemoveInFlight(ctx context.Context, positionID uint) error {
	err := c.client.HDel(ctx, sweepInFlightKey, positionField(positionID)).Err()

	if err != nil {
		return fmt.Errorf("failed to remove position from in-flight: %w", err)
	}

	c.logger.Debug().Uint("position_id", positionID).Msg("Removed position from in-flight")
	return nil
}

// GetCursor retrieves the last position id a full-table sweep reached, so a
// restart resumes instead of rescanning from zero.
func (c *Client) GetCursor(ctx context.Context) (uint, error) {
	result, err := c.client.Get(ctx, sweepCursorKey).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get sweep cursor: %w", err)
	}

	id, err := strconv.ParseUint(result, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid sweep cursor %q: %w", result, err)
	}
	return uint(id), nil
}

// SetCursor updates the sweep resume point
func (c *Client) SetCursor(ctx context.Context, positionID uint) error {
	err := c.client.Set(ctx, sweepCursorKey, strconv.FormatUint(uint64(positionID), 10), 0).Err()

	if err != nil {
		return fmt.Errorf("failed to set sweep cursor: %w", err)
	}

	c.logger.Debug().
		Uint("position_id", positionID).
		Msg("Updated sweep cursor")

	return nil
}

// GetQueueLength returns the number of positions waiting to be checked
func (c *Client) GetQueueLength(ctx context.Context) (int64, error) {
	length, err := c.client.ZCard(ctx, sweepQueueKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue length: %w", err)
	}
	return length, nil
}

// GetInFlightPositions returns all positions currently being checked
func (c *Client) GetInFlightPositions(ctx context.Context) (map[string]string, error) {
	result, err := c.client.HGetAll(ctx, sweepInFlightKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get in-flight positions: %w", err)
	}
	return result, nil
}

// RequeueStuckPositions moves positions that have been in-flight too long
// back to the queue at top priority.
func (c *Client) RequeueStuckPositions(ctx context.Context, timeoutMinutes int) error {
	inFlight, err := c.GetInFlightPositions(ctx)
	if err != nil {
		return fmt.Errorf("failed to get in-flight positions: %w", err)
	}

	cutoff := time.Now().Add(-time.Duration(timeoutMinutes) * time.Minute).Unix()
	requeuedCount := 0

	for field, value := range inFlight {
		id, err := strconv.ParseUint(field, 10, 64)
		if err != nil {
			c.logger.Warn().Str("field", field).Msg("Invalid in-flight position id")
			continue
		}

		parts := splitValue(value)
		if len(parts) != 2 {
			c.logger.Warn().Str("field", field).Str("value", value).Msg("Invalid in-flight value format")
			continue
		}

		startTime, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			c.logger.Warn().Str("field", field).Str("value", value).Msg("Invalid timestamp in in-flight value")
			continue
		}

		if startTime < cutoff {
			// Stuck too long, requeue at the front
			if err := c.PushPosition(ctx, uint(id), 0); err != nil {
				c.logger.Error().Err(err).Uint64("position_id", id).Msg("Failed to requeue stuck position")
				continue
			}

			if err := c.RemoveInFlight(ctx, uint(id)); err != nil {
				c.logger.Error().Err(err).Uint64("position_id", id).Msg("Failed to remove requeued position from in-flight")
			}

			requeuedCount++
			c.logger.Info().
				Uint64("position_id", id).
				Str("worker", parts[0]).
				Int64("stuck_minutes", (time.Now().Unix()-startTime)/60).
				Msg("Requeued stuck position")
		}
	}

	if requeuedCount > 0 {
		c.logger.Info().Int("count", requeuedCount).Msg("Requeued stuck positions")
	}

	return nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

func positionField(positionID uint) string {
	return strconv.FormatUint(uint64(positionID), 10)
}

// splitValue splits the in-flight value format "worker,timestamp"
func splitValue(value string) []string {
	parts := make([]string, 0, 2)
	commaIndex := -1

	for i, char := range value {
		if char == ',' {
			commaIndex = i
			break
		}
	}

	if commaIndex == -1 {
		return []string{value}
	}

	parts = append(parts, value[:commaIndex])
	parts = append(parts, value[commaIndex+1:])
	return parts
}
