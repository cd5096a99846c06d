package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

func main() {
	var (
		broker   = flag.String("broker", "", "MQTT broker URL; empty prints estimates to stdout")
		topic    = flag.String("topic", "port/eta", "topic for ETA estimates")
		size     = flag.Int("fleet", 10, "number of simulated inbound vessels")
		spread   = flag.Float64("spread", 24, "hours the initial ETAs spread over")
		drift    = flag.Float64("drift", 0.2, "per-tick drift probability")
		interval = flag.Duration("interval", 5*time.Second, "tick interval")
		seed     = flag.Int64("seed", 0, "rng seed; 0 derives one from the clock")
	)
	flag.Parse()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))
	fleet := GenerateFleet(FleetConfig{
		Size: *size, SpreadHours: *spread, DriftRate: *drift, DeepDraftPct: 0.2,
	}, rng, time.Now())

	emit := func(payload []byte) error {
		fmt.Println(string(payload))
		return nil
	}
	if *broker != "" {
		opts := paho.NewClientOptions().AddBroker(*broker).SetClientID(fmt.Sprintf("traffic-sim-%d", *seed))
		cli := paho.NewClient(opts)
		if token := cli.Connect(); token.Wait() && token.Error() != nil {
			log.Fatalf("connect: %v", token.Error())
		}
		defer cli.Disconnect(250)
		emit = func(payload []byte) error {
			token := cli.Publish(*topic, 0, false, payload)
			token.Wait()
			return token.Error()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	log.Printf("simulating %d inbound vessels, seed %d", len(fleet), *seed)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, t := range fleet {
				est := t.Step(rng)
				payload, err := json.Marshal(est)
				if err != nil {
					log.Printf("%s: encode: %v", t.VesselID, err)
					continue
				}
				if err := emit(payload); err != nil {
					log.Printf("%s: emit: %v", t.VesselID, err)
				}
			}
		}
	}
}
