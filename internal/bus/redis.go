package bus

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yanun0323/errors"
)

const payloadField = "payload"

// Redis is the production Bus backend: topics are Redis streams, point keys
// are SET with expiry, rings are RPUSH + LTRIM lists.
type Redis struct {
	client *redis.Client
}

// NewRedis connects and pings the Redis server behind the URL.
func NewRedis(ctx context.Context, url string) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "ping redis")
	}
	return &Redis{client: client}, nil
}

func (r *Redis) Append(ctx context.Context, topic Topic, payload []byte) error {
	err := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(topic),
		MaxLen: StreamMaxLen,
		Approx: true,
		Values: map[string]any{payloadField: string(payload)},
	}).Err()
	return errors.Wrap(err, "xadd")
}

func (r *Redis) Read(ctx context.Context, cursors map[Topic]string, count int, block time.Duration) ([]Entry, error) {
	if count <= 0 {
		count = 100
	}
	streams := make([]string, 0, len(cursors)*2)
	topics := make([]Topic, 0, len(cursors))
	for topic := range cursors {
		topics = append(topics, topic)
	}
	for _, topic := range topics {
		streams = append(streams, string(topic))
	}
	for _, topic := range topics {
		streams = append(streams, cursors[topic])
	}
	res, err := r.client.XRead(ctx, &redis.XReadArgs{
		Streams: streams,
		Count:   int64(count),
		Block:   block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "xread")
	}
	var out []Entry
	for _, stream := range res {
		topic := Topic(stream.Stream)
		for _, msg := range stream.Messages {
			payload, _ := msg.Values[payloadField].(string)
			out = append(out, Entry{Topic: topic, ID: msg.ID, Payload: []byte(payload)})
			cursors[topic] = msg.ID
		}
	}
	return out, nil
}

func (r *Redis) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	return errors.Wrap(r.client.Set(ctx, key, payload, ttl).Err(), "set")
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "get")
	}
	return val, true, nil
}

func (r *Redis) Push(ctx context.Context, key string, payload []byte, maxLen int) error {
	if err := r.client.RPush(ctx, key, payload).Err(); err != nil {
		return errors.Wrap(err, "rpush")
	}
	if maxLen > 0 {
		if err := r.client.LTrim(ctx, key, int64(-maxLen), -1).Err(); err != nil {
			return errors.Wrap(err, "ltrim")
		}
	}
	return nil
}

func (r *Redis) Range(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	vals, err := r.client.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, errors.Wrap(err, "lrange")
	}
	out := make([][]byte, 0, len(vals))
	for _, v := range vals {
		out = append(out, []byte(v))
	}
	return out, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
