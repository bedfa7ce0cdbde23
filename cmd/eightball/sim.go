package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/playmatatu/eightball/internal/config"
	"github.com/playmatatu/eightball/internal/game"
	"github.com/playmatatu/eightball/internal/models"
	"github.com/playmatatu/eightball/internal/store"
)

var (
	flagLevel1   string
	flagLevel2   string
	flagRacks    int
	flagSeed     int64
	flagMaxShots int
	flagRecord   bool
	flagTuning   string
)

var simCmd = &cobra.Command{
	Use:   "sim",
	Short: "Play AI-vs-AI racks headlessly",
	Long: `Play racks between two AI levels without a server and print the tally.
With --record every rack and shot is written to the ledger database.

Examples:
  eightball sim --level1 hard --level2 easy --racks 200
  eightball sim --seed 42 --racks 1 -v
  eightball sim --record`,
	RunE: runSim,
}

func init() {
	simCmd.Flags().StringVar(&flagLevel1, "level1", "medium", "Player 1 AI level (easy|medium|hard)")
	simCmd.Flags().StringVar(&flagLevel2, "level2", "medium", "Player 2 AI level (easy|medium|hard)")
	simCmd.Flags().IntVar(&flagRacks, "racks", 10, "Racks to play")
	simCmd.Flags().Int64Var(&flagSeed, "seed", 0, "RNG seed (0 = random based on time)")
	simCmd.Flags().IntVar(&flagMaxShots, "max-shots", 300, "Shot limit per rack")
	simCmd.Flags().BoolVar(&flagRecord, "record", false, "Write racks and shots to the ledger")
	simCmd.Flags().StringVar(&flagTuning, "tuning", "", "Tuning YAML (default: search path, then built-in)")
}

func runSim(_ *cobra.Command, _ []string) error {
	l1, ok := game.ParseLevel(flagLevel1)
	if !ok {
		return fmt.Errorf("unknown level %q", flagLevel1)
	}
	l2, ok := game.ParseLevel(flagLevel2)
	if !ok {
		return fmt.Errorf("unknown level %q", flagLevel2)
	}
	if flagRacks <= 0 {
		return fmt.Errorf("--racks must be positive")
	}

	tuning, err := config.LoadTuning(flagTuning)
	if err != nil {
		return err
	}

	seed := flagSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	var rec *recorder
	if flagRecord {
		cfg := config.Load()
		ledger, err := store.Open(cfg.DatabaseDriver, cfg.DatabaseURL, true)
		if err != nil {
			return err
		}
		defer ledger.Close()
		rec = &recorder{ledger: ledger, tableID: "sim-" + uuid.NewString(), mode: fmt.Sprintf("sim:%s-vs-%s", l1, l2)}
	}

	po := game.NewPlayOut(tuning, l1, l2, rand.New(rand.NewSource(seed)))
	log.Info("sim started", "p1", l1, "p2", l2, "racks", flagRacks, "seed", seed)

	var unfinished, shots int
	reasons := map[string]int{}
	for i := 1; i <= flagRacks; i++ {
		if err := rec.start(); err != nil {
			return err
		}
		res := po.Rack(flagMaxShots, rec.shot)
		if err := rec.finish(res); err != nil {
			return err
		}

		shots += res.Shots
		reasons[res.Reason]++
		if res.Winner == game.NoPlayer {
			unfinished++
		}
		log.Debug("rack", "n", i, "winner", res.Winner, "reason", res.Reason, "shots", res.Shots)
	}

	rules := po.Rules()
	fmt.Printf("Player 1 (%s): %d\n", l1, rules.RackWins(game.Player1))
	fmt.Printf("Player 2 (%s): %d\n", l2, rules.RackWins(game.Player2))
	fmt.Printf("Unfinished:   %d\n", unfinished)
	fmt.Printf("Avg shots:    %.1f\n", float64(shots)/float64(flagRacks))
	for reason, n := range reasons {
		fmt.Printf("  %-12s %d\n", reason, n)
	}
	if rec != nil {
		fmt.Printf("Recorded as table %s\n", rec.tableID)
	}
	return nil
}

// recorder writes sim racks to the ledger. A nil recorder does nothing.
type recorder struct {
	ledger  *store.Ledger
	tableID string
	mode    string
	rackID  int64
	err     error
}

func (r *recorder) start() error {
	if r == nil {
		return nil
	}
	id, err := r.ledger.StartRack(context.Background(), r.tableID, r.mode, time.Now())
	r.rackID, r.err = id, err
	return err
}

func (r *recorder) shot(n int, out game.ShotOutcome) {
	if r == nil || r.err != nil {
		return
	}
	pocketed, _ := json.Marshal(out.Telemetry.PocketedThisShot)
	r.err = r.ledger.RecordShot(context.Background(), models.Shot{
		RackID:      r.rackID,
		ShotNumber:  n,
		Player:      int(out.Shooter),
		FirstHit:    out.Telemetry.FirstObjectHit,
		RailContact: out.Telemetry.RailContactedAfterHit,
		Pocketed:    string(pocketed),
		Scratch:     out.Telemetry.Scratch,
		Foul:        string(out.Foul),
		CreatedAt:   time.Now(),
	})
}

func (r *recorder) finish(res game.PlayOutResult) error {
	if r == nil {
		return nil
	}
	if r.err != nil {
		return r.err
	}
	if res.Winner == game.NoPlayer {
		return nil
	}
	return r.ledger.FinishRack(context.Background(), r.rackID, int(res.Winner), res.Reason, time.Now())
}
