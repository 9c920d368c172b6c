// sim_damage fires damage batches at a running API.
//
//	blast: n concurrent batches with unique event ids, all accepted
//	idem:  n concurrent posts of one event id, one accepted and the rest duplicate
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/snowmuffin/game-hub-nest-sub001/internal/modules/damage/dto"
	"github.com/snowmuffin/game-hub-nest-sub001/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    dto.BatchResult `json:"data"`
	Error   string          `json:"error"`
}

func main() {
	url := flag.String("url", "http://127.0.0.1:3000/api/damage_logs", "damage endpoint")
	password := flag.String("password", "", "X-Ingest-Password value")
	steam := flag.String("steam", "76561198000000001", "steam id")
	server := flag.String("server", "S", "server tier code")
	mode := flag.String("mode", "blast", "test mode: blast | idem")
	n := flag.Int("n", 200, "number of concurrent requests")
	size := flag.Int("size", 10, "events per batch (blast)")
	maxDamage := flag.Float64("max-damage", 120, "upper bound of random damage")
	rps := flag.Float64("rps", 0, "request rate limit, 0 for unlimited")
	flag.Parse()

	limiter := rate.NewLimiter(rate.Inf, 1)
	if *rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(*rps), 1)
	}

	var accepted, duplicate, other atomic.Int64
	send := func(events []dto.DamageEventInput) {
		if err := limiter.Wait(context.Background()); err != nil {
			other.Add(int64(len(events)))
			return
		}
		res, err := post(*url, *password, events)
		if err != nil {
			logger.WithError(err).Warn("post failed")
			other.Add(int64(len(events)))
			return
		}
		accepted.Add(int64(res.Accepted))
		duplicate.Add(int64(res.Duplicate))
		other.Add(int64(res.Invalid + res.Failed + res.Skipped))
	}

	start := time.Now()
	var wg sync.WaitGroup
	switch *mode {
	case "idem":
		eventID := "idem-" + uuid.NewString()
		damage := 1 + rand.Float64()*(*maxDamage)
		logger.Infof("Running IDEM test: n=%d event_id=%s", *n, eventID)
		for i := 0; i < *n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				send([]dto.DamageEventInput{{SteamID: *steam, Damage: &damage, ServerID: *server, EventID: eventID}})
			}()
		}
		wg.Wait()
		logger.Infof("IDEM test done in %s. accepted=%d (expected=1) duplicate=%d other=%d",
			time.Since(start), accepted.Load(), duplicate.Load(), other.Load())

	case "blast":
		logger.Infof("Running BLAST test: n=%d size=%d", *n, *size)
		for i := 0; i < *n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				events := make([]dto.DamageEventInput, *size)
				for j := range events {
					damage := rand.Float64() * (*maxDamage)
					events[j] = dto.DamageEventInput{
						SteamID:  fmt.Sprintf("%s%d", *steam, i%7),
						Damage:   &damage,
						ServerID: *server,
						EventID:  fmt.Sprintf("blast-%d-%d-%s", i, j, uuid.NewString()[:8]),
					}
				}
				send(events)
			}(i)
		}
		wg.Wait()
		logger.Infof("BLAST test done in %s. accepted=%d (expected=%d) duplicate=%d other=%d",
			time.Since(start), accepted.Load(), *n*(*size), duplicate.Load(), other.Load())

	default:
		logger.Fatalf("unknown mode: %s", *mode)
	}
}

func post(url, password string, events []dto.DamageEventInput) (*dto.BatchResult, error) {
	agent := fiber.Post(url).JSON(events).Timeout(15 * time.Second)
	if password != "" {
		agent.Set("X-Ingest-Password", password)
	}
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, errs[0]
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("status %d: %w", code, err)
	}
	if code != fiber.StatusOK {
		return nil, fmt.Errorf("status %d: %s", code, env.Error)
	}
	return &env.Data, nil
}
