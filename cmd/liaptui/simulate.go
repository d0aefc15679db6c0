package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/liaptui/liaptui/internal/bot"
	"github.com/liaptui/liaptui/internal/protocol"
	"github.com/liaptui/liaptui/internal/randutil"
	"github.com/liaptui/liaptui/internal/room"
	"github.com/liaptui/liaptui/internal/roomid"
)

// SimulateCmd runs bot-only games to completion and reports the outcomes.
// Useful for soak-testing the rules engine and for tuning the scoring
// parameters.
type SimulateCmd struct {
	Games        int   `default:"10" help:"Number of games to simulate"`
	Parallel     int   `default:"4" help:"Games to run concurrently"`
	Seed         int64 `default:"0" help:"RNG seed (0 for time-based)"`
	WinThreshold int   `default:"50" help:"Score needed to win a game"`
	Verbose      bool  `help:"Verbose logging"`
}

type gameOutcome struct {
	winner int
	scores [4]int
	rounds int
}

func (c *SimulateCmd) Run() error {
	seed := c.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	logger := setupLogger("error")
	if c.Verbose {
		logger.SetLevel(log.DebugLevel)
	}

	clock := quartz.NewReal()
	driver := bot.NewDriver(logger, clock, time.Millisecond, 2*time.Millisecond, randutil.New(seed))
	gen := roomid.NewGenerator(nil)

	fmt.Printf("Simulating %d games (seed %d, win threshold %d)\n", c.Games, seed, c.WinThreshold)

	var (
		mu          sync.Mutex
		wins        [4]int
		totalRounds int
	)
	start := time.Now()

	var eg errgroup.Group
	eg.SetLimit(c.Parallel)
	for i := 0; i < c.Games; i++ {
		eg.Go(func() error {
			outcome, err := c.runGame(logger, clock, driver, gen, seed+int64(i))
			if err != nil {
				return fmt.Errorf("game %d: %w", i+1, err)
			}
			mu.Lock()
			if outcome.winner >= 0 {
				wins[outcome.winner]++
			}
			totalRounds += outcome.rounds
			mu.Unlock()
			if c.Verbose {
				fmt.Printf("game %d: winner seat %d, scores %v, %d rounds\n",
					i+1, outcome.winner, outcome.scores, outcome.rounds)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	fmt.Printf("\nDone in %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("Rounds per game: %.1f\n", float64(totalRounds)/float64(c.Games))
	for seat, n := range wins {
		fmt.Printf("  seat %d: %d wins (%.0f%%)\n", seat, n, 100*float64(n)/float64(c.Games))
	}
	return nil
}

func (c *SimulateCmd) runGame(logger *log.Logger, clock quartz.Clock, driver *bot.Driver, gen *roomid.Generator, seed int64) (gameOutcome, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg := room.DefaultConfig()
	cfg.WinThreshold = c.WinThreshold
	cfg.TickInterval = 5 * time.Millisecond
	cfg.TurnResultsDisplay = 10 * time.Millisecond
	cfg.EventRingSize = 100_000

	r := room.New(cfg, logger, clock, randutil.New(seed), gen.NewID(), gen.NewCode(), "Host", driver)
	go r.Run(ctx)
	defer r.Close(ctx, "simulation over")

	for i := 0; i < 3; i++ {
		if _, err := r.AddBot(ctx, 0); err != nil {
			return gameOutcome{}, err
		}
	}
	if err := r.StartGame(0, nil); err != nil {
		return gameOutcome{}, err
	}

	// hand the host seat to a bot so the game runs unattended
	for {
		st, err := r.Status(ctx)
		if err != nil {
			return gameOutcome{}, err
		}
		if st.Summary.Started {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if err := r.Leave(ctx, 0); err != nil {
		return gameOutcome{}, err
	}

	for {
		st, err := r.Status(ctx)
		if err != nil {
			return gameOutcome{}, err
		}
		if st.Phase == room.GameOver {
			break
		}
		select {
		case <-ctx.Done():
			return gameOutcome{}, fmt.Errorf("game did not finish: %w", ctx.Err())
		case <-time.After(5 * time.Millisecond):
		}
	}

	outcome := gameOutcome{winner: -1}
	for _, ev := range r.Events() {
		switch ev.Kind {
		case protocol.EventRoundScored:
			outcome.rounds++
		case protocol.EventGameEnded:
			var data protocol.GameEndedData
			if err := json.Unmarshal(ev.Payload, &data); err != nil {
				return gameOutcome{}, err
			}
			outcome.winner = data.Winner
			outcome.scores = data.FinalScores
		}
	}
	return outcome, nil
}
