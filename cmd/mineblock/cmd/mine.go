package cmd

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/blockweave/blockcore/foundation/blockchain/block"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(mineCmd)
}

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Search for a nonce satisfying a difficulty target and print the mined block",
	RunE:  mineRun,
}

func mineRun(cmd *cobra.Command, args []string) error {
	mineCfg := struct {
		conf.Version
		Index        int64  `conf:"default:1"`
		Difficulty   int64  `conf:"default:1"`
		Miner        string `conf:"default:0000000000000000000000000000000000000009"`
		PreviousHash string `conf:"default:"`
	}{
		Version: conf.Version{
			Build: Build,
			Desc:  "mines one block against the blockweave block core",
		},
	}

	const prefix = "MINEBLOCK"
	help, err := conf.Parse(prefix, &mineCfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	minerBytes, err := hex.DecodeString(mineCfg.Miner)
	if err != nil {
		return fmt.Errorf("decoding miner address: %w", err)
	}
	miner, ok := block.AddressFromBytes(minerBytes)
	if !ok {
		return fmt.Errorf("miner address must be exactly 20 bytes")
	}

	var previousHash *block.Hash
	if mineCfg.PreviousHash != "" {
		b, err := hex.DecodeString(mineCfg.PreviousHash)
		if err != nil {
			return fmt.Errorf("decoding previous hash: %w", err)
		}
		h, ok := block.HashFromBytes(b)
		if !ok {
			return fmt.Errorf("previous hash must be exactly 32 bytes")
		}
		previousHash = &h
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	requestID := uuid.New()
	Log.Infow("mining", "request", requestID, "index", mineCfg.Index, "difficulty", mineCfg.Difficulty)

	params := block.MineParams{
		Index:        mineCfg.Index,
		Difficulty:   mineCfg.Difficulty,
		Miner:        &miner,
		PreviousHash: previousHash,
		Timestamp:    time.Now().UTC(),
	}

	opts := block.MineOptions{
		RequestID: requestID,
		EventHandler: func(v string, args ...any) {
			Log.Infow("mine", "event", fmt.Sprintf(v, args...))
		},
	}

	blk, err := block.Mine(ctx, params, opts)
	if err != nil {
		return fmt.Errorf("mining block: %w", err)
	}

	data, err := blk.Serialize()
	if err != nil {
		return fmt.Errorf("serializing block: %w", err)
	}

	Log.Infow("mined", "hash", blk.Hash().String(), "nonce", hex.EncodeToString(blk.Nonce()), "bytes", len(data))
	fmt.Println(hex.EncodeToString(data))
	return nil
}
