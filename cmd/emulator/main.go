package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Krimson/vibro-monitor/internal/emulator"
	"github.com/Krimson/vibro-monitor/internal/stream"
)

func main() {
	var (
		serverURL    = flag.String("server", "ws://localhost:8080/ws/ingest", "Адрес WebSocket приема сэмплов")
		structureID  = flag.String("structure", "bridge-1", "ID конструкции")
		sensors      = flag.Int("sensors", 5, "Число датчиков")
		sampleRate   = flag.Float64("rate", 100.0, "Частота дискретизации, Гц")
		noiseLevel   = flag.Float64("noise", 0.01, "Уровень шума, g")
		anomalyAfter = flag.Duration("anomaly-after", 0, "Включить аномальный режим через указанное время (0 - никогда)")
		seed         = flag.Int64("seed", time.Now().UnixNano(), "Зерно генератора")
	)
	flag.Parse()

	log.Printf("[EMULATOR] Starting: server=%s structure=%s sensors=%d rate=%.1fHz",
		*serverURL, *structureID, *sensors, *sampleRate)

	gen := emulator.NewGenerator(emulator.DefaultModes(), *noiseLevel, *seed)
	sender := stream.NewSender(*serverURL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := sender.Run(ctx); err != nil {
			log.Printf("[EMULATOR] Sender stopped: %v", err)
		}
	}()

	if *anomalyAfter > 0 {
		go func() {
			select {
			case <-ctx.Done():
			case <-time.After(*anomalyAfter):
				log.Printf("[EMULATOR] Switching to anomaly mode")
				gen.SetAnomaly(true)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	interval := time.Duration(float64(time.Second) / *sampleRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var sent, dropped int64
	start := time.Now()

loop:
	for {
		select {
		case <-sigCh:
			log.Printf("[EMULATOR] Received shutdown signal")
			break loop
		case now := <-ticker.C:
			tsMS := now.UnixMilli()
			for sensor := 1; sensor <= *sensors; sensor++ {
				x, y, z := gen.At(tsMS, sensor)
				msg := &stream.SampleMessage{
					StructureID: *structureID,
					SensorID:    sensor,
					TsMS:        tsMS,
					X:           x,
					Y:           y,
					Z:           z,
				}
				if sender.Send(msg) {
					sent++
				} else {
					dropped++
				}
			}
		}
	}

	cancel()
	log.Printf("[EMULATOR] Stopped after %v: sent=%d dropped=%d (state: %s)",
		time.Since(start).Round(time.Second), sent, dropped, sender.State())
}
