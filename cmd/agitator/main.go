// Package main - agitator
// Load generator for stress testing: many concurrent browsers pressing
// random panel controls over WebSocket.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"
	"github.com/gorilla/websocket"

	"github.com/superwave/timer/server/internal/network"
)

// Config for the agitator
type Config struct {
	ServerURL      string        `name:"url" default:"ws://localhost:8080/ws" help:"WebSocket server URL"`
	NumClients     int           `name:"clients" default:"50" help:"Number of concurrent clients"`
	ActionInterval time.Duration `name:"interval" default:"100ms" help:"Command interval per client"`
	TestDuration   time.Duration `name:"duration" default:"60s" help:"Test duration"`
	Output         string        `name:"output" default:"stress_test_results.json" help:"Results file"`
}

// Stats tracks performance metrics
type Stats struct {
	MessagesSent     int64
	MessagesReceived int64
	StatesReceived   int64
	Rejected         int64
	Errors           int64
	Latencies        []time.Duration
	mu               sync.Mutex
}

// Command mix for simulation
var commandTypes = []network.CommandType{
	network.CmdKeypad,
	network.CmdKeypad,
	network.CmdClock,
	network.CmdStart,
	network.CmdStart,
	network.CmdStopOrReset,
	network.CmdAddThirty,
	network.CmdClear,
}

func main() {
	config := Config{}
	kong.Parse(
		&config,
		kong.Name("agitator"),
		kong.Description("timer-server WebSocket load generator"),
		kong.UsageOnError(),
	)

	fmt.Println("=========================================")
	fmt.Println("AGITATOR - Stress Test Tool")
	fmt.Println("=========================================")
	fmt.Printf("Server: %s\n", config.ServerURL)
	fmt.Printf("Clients: %d\n", config.NumClients)
	fmt.Printf("Interval: %v\n", config.ActionInterval)
	fmt.Printf("Duration: %v\n", config.TestDuration)
	fmt.Println("=========================================")

	// Setup graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), config.TestDuration)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupt received, stopping...")
		cancel()
	}()

	started := time.Now()
	stats := runStressTest(ctx, config)

	printResults(stats, config, time.Since(started))
}

func runStressTest(ctx context.Context, config Config) *Stats {
	stats := &Stats{
		Latencies: make([]time.Duration, 0, 10000),
	}

	var wg sync.WaitGroup

	fmt.Println("\nStarting clients...")

	for i := 0; i < config.NumClients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()
			runClient(ctx, clientID, config, stats)
		}(i)

		// Stagger client starts to avoid thundering herd
		time.Sleep(10 * time.Millisecond)
	}

	fmt.Printf("All %d clients started\n\n", config.NumClients)

	// Progress updates
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Printf("Progress: Sent=%s Recv=%s Rejected=%s Errors=%s\n",
					humanize.Comma(atomic.LoadInt64(&stats.MessagesSent)),
					humanize.Comma(atomic.LoadInt64(&stats.MessagesReceived)),
					humanize.Comma(atomic.LoadInt64(&stats.Rejected)),
					humanize.Comma(atomic.LoadInt64(&stats.Errors)))
			}
		}
	}()

	wg.Wait()
	return stats
}

func runClient(ctx context.Context, clientID int, config Config, stats *Stats) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, nil)
	if err != nil {
		fmt.Printf("Client %d: connection failed: %v\n", clientID, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer conn.Close()

	// Start receiver goroutine
	go func() {
		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				return
			}
			for _, line := range bytes.Split(frame, []byte{'\n'}) {
				atomic.AddInt64(&stats.MessagesReceived, 1)

				var m network.Message
				if err := json.Unmarshal(line, &m); err != nil {
					atomic.AddInt64(&stats.Errors, 1)
					continue
				}
				switch m.Type {
				case network.MsgTypeState:
					atomic.AddInt64(&stats.StatesReceived, 1)
				case network.MsgTypeError:
					atomic.AddInt64(&stats.Rejected, 1)
				}
			}
		}
	}()

	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(clientID)))

	// Send commands at configured interval
	ticker := time.NewTicker(config.ActionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cmd := generateRandomCommand(rng)
			start := time.Now()

			if err := conn.WriteJSON(cmd); err != nil {
				atomic.AddInt64(&stats.Errors, 1)
				return
			}

			latency := time.Since(start)
			atomic.AddInt64(&stats.MessagesSent, 1)

			stats.mu.Lock()
			stats.Latencies = append(stats.Latencies, latency)
			stats.mu.Unlock()
		}
	}
}

func generateRandomCommand(rng *rand.Rand) network.Command {
	cmd := network.Command{
		Type: commandTypes[rng.Intn(len(commandTypes))],
	}

	switch cmd.Type {
	case network.CmdKeypad:
		cmd.Digit = fmt.Sprintf("%d", rng.Intn(10))
	case network.CmdClock:
		cmd.Digits = fmt.Sprintf("%02d%02d", rng.Intn(3), rng.Intn(100))
	}

	return cmd
}

func printResults(stats *Stats, config Config, elapsed time.Duration) {
	fmt.Println("\n=========================================")
	fmt.Println("STRESS TEST RESULTS")
	fmt.Println("=========================================")

	sent := atomic.LoadInt64(&stats.MessagesSent)
	recv := atomic.LoadInt64(&stats.MessagesReceived)
	states := atomic.LoadInt64(&stats.StatesReceived)
	rejected := atomic.LoadInt64(&stats.Rejected)
	errs := atomic.LoadInt64(&stats.Errors)

	fmt.Printf("Commands Sent:     %s\n", humanize.Comma(sent))
	fmt.Printf("Messages Received: %s (%s states)\n", humanize.Comma(recv), humanize.Comma(states))
	fmt.Printf("Rejected:          %s\n", humanize.Comma(rejected))
	fmt.Printf("Errors:            %s\n", humanize.Comma(errs))
	fmt.Printf("Error Rate:        %.2f%%\n", float64(errs)/float64(sent+1)*100)

	// Calculate throughput
	throughput := float64(sent) / elapsed.Seconds()
	fmt.Printf("Throughput:        %s cmd/sec\n", humanize.FormatFloat("#,###.##", throughput))

	// Latency stats
	if len(stats.Latencies) > 0 {
		var total time.Duration
		var min, max time.Duration = stats.Latencies[0], stats.Latencies[0]

		for _, l := range stats.Latencies {
			total += l
			if l < min {
				min = l
			}
			if l > max {
				max = l
			}
		}

		avg := total / time.Duration(len(stats.Latencies))

		fmt.Printf("\nWrite latency:\n")
		fmt.Printf("  Min: %v\n", min)
		fmt.Printf("  Avg: %v\n", avg)
		fmt.Printf("  Max: %v\n", max)
	}

	// Verdict
	fmt.Println("\n-----------------------------------------")
	if errs == 0 {
		fmt.Println("TEST PASSED: System handled the load")
	} else if float64(errs)/float64(sent+1) < 0.05 {
		fmt.Println("TEST WARNING: Some errors detected")
	} else {
		fmt.Println("TEST FAILED: High error rate")
	}
	fmt.Println("=========================================")

	// Export results as JSON
	results := map[string]interface{}{
		"commands_sent":      sent,
		"messages_received":  recv,
		"states_received":    states,
		"rejected":           rejected,
		"errors":             errs,
		"throughput_per_sec": throughput,
		"config": map[string]interface{}{
			"clients":  config.NumClients,
			"interval": config.ActionInterval.String(),
			"duration": config.TestDuration.String(),
		},
	}

	jsonData, _ := json.MarshalIndent(results, "", "  ")
	if err := os.WriteFile(config.Output, jsonData, 0644); err != nil {
		fmt.Printf("failed to save results: %v\n", err)
		return
	}
	fmt.Printf("\nResults saved to %s\n", config.Output)
}
