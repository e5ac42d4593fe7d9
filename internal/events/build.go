package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtbook/internal/config"
)

// Build returns a Fanout holding one publisher per configured driver. The
// "memory" driver adds an in-process MemoryBus that retains no history, so
// local subscribers can attach to it; it is nil when not configured.
func Build(ctx context.Context, cfg config.EventsConfig) (*Fanout, *MemoryBus, error) {
	var memory *MemoryBus
	fanout := NewFanout()

	for _, driver := range cfg.Drivers {
		switch strings.ToLower(driver) {
		case "memory":
			if memory == nil {
				memory = NewMemoryBusWithHistory(0)
				fanout.Add(memory)
			}
		case "redis":
			bus, err := NewRedisBus(ctx, RedisOptions{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			if err != nil {
				_ = fanout.Close()
				return nil, nil, err
			}
			fanout.Add(bus)
		case "rabbitmq":
			bus, err := NewAMQPBus(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
			if err != nil {
				_ = fanout.Close()
				return nil, nil, err
			}
			fanout.Add(bus)
		case "kafka":
			bus, err := NewKafkaBus(cfg.Kafka.Brokers, cfg.Kafka.Topic)
			if err != nil {
				_ = fanout.Close()
				return nil, nil, err
			}
			fanout.Add(bus)
		default:
			_ = fanout.Close()
			return nil, nil, fmt.Errorf("unsupported events driver: %s", driver)
		}
		log.Info().Str("driver", driver).Msg("Event publisher enabled")
	}

	return fanout, memory, nil
}
