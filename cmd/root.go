package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wpacrack/wpacrack/internal/capture"
	"github.com/wpacrack/wpacrack/internal/config"
	"github.com/wpacrack/wpacrack/internal/crack"
	"github.com/wpacrack/wpacrack/internal/engine"
	"github.com/wpacrack/wpacrack/internal/result"
	"github.com/wpacrack/wpacrack/internal/wordlist"
	"github.com/wpacrack/wpacrack/pkg/wpa"
	"github.com/wpacrack/wpacrack/ui"
)

const banner = `
 __      ___ __   __ _  ___ _ __ __ _  ___| | __
 \ \ /\ / / '_ \ / _' |/ __| '__/ _' |/ __| |/ /
  \ V  V /| |_) | (_| | (__| | | (_| | (__|   <
   \_/\_/ | .__/ \__,_|\___|_|  \__,_|\___|_|\_\
          |_|
`

func Execute(version string) error {
	cfg := config.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:           "wpacrack",
		Short:         "Offline WPA/WPA2-PSK handshake recovery engine",
		Long:          banner + "\n  wpacrack v" + version + " - offline WPA2-PSK handshake recovery\n",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.IntVarP(&cfg.Output.Verbose, "verbose", "v", cfg.Output.Verbose, "Verbosity level (0-3)")
	pf.StringVarP(&cfg.Output.ResultsFile, "output", "o", cfg.Output.ResultsFile, "Results output file")
	pf.BoolVar(&cfg.Engine.ForceCPU, "cpu-only", false, "Skip GPU probing, derive on CPU")
	pf.StringVar(&cfg.Engine.ShaderPath, "shader", "", "Path to compiled PBKDF2 compute shader (SPIR-V)")
	pf.IntVar(&cfg.Engine.Workers, "workers", 0, "CPU worker count (0 = one per core)")

	rootCmd.AddCommand(crackCmd(cfg))
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(benchCmd(cfg))
	rootCmd.AddCommand(crackedCmd(cfg))

	return rootCmd.Execute()
}

// crackCmd runs a dictionary attack against a handshake from a capture file.
func crackCmd(cfg *config.Config) *cobra.Command {
	var hexInput hexHandshakeFlags

	c := &cobra.Command{
		Use:   "crack [cap-file]",
		Short: "Recover a WPA2-PSK passphrase from a captured 4-way handshake",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var hs *wpa.Handshake
			var err error

			switch {
			case len(args) == 1:
				hs, err = capture.LoadHandshake(args[0], cfg.BSSID, cfg.ESSID)
				if err != nil {
					return err
				}
			case hexInput.populated():
				hs = hexInput.handshake(cfg)
			default:
				return fmt.Errorf("provide a capture file or the handshake fields as hex flags")
			}

			return runCrack(cfg, hs)
		},
	}

	f := c.Flags()
	f.StringVarP(&cfg.Wordlist, "wordlist", "w", cfg.Wordlist, "Path to wordlist")
	f.StringVar(&cfg.BSSID, "bssid", "", "Target BSSID within the capture")
	f.StringVar(&cfg.ESSID, "essid", "", "SSID (required if the capture has no beacon)")
	f.BoolVar(&cfg.Output.NoTUI, "no-tui", false, "Plain log output instead of the TUI")

	// Direct handshake input, bypassing pcap parsing.
	f.StringVar(&hexInput.anonce, "anonce", "", "ANonce (64 hex chars)")
	f.StringVar(&hexInput.snonce, "snonce", "", "SNonce (64 hex chars)")
	f.StringVar(&hexInput.mic, "mic", "", "Captured MIC (32 hex chars)")
	f.StringVar(&hexInput.stationMAC, "sta", "", "Station MAC")
	f.StringVar(&hexInput.eapol, "eapol", "", "Full Message-2 EAPOL frame (hex, optional)")
	f.IntVar(&hexInput.keyVer, "key-version", 2, "Key descriptor version (1-3)")

	return c
}

type hexHandshakeFlags struct {
	anonce     string
	snonce     string
	mic        string
	stationMAC string
	eapol      string
	keyVer     int
}

func (h *hexHandshakeFlags) populated() bool {
	return h.anonce != "" && h.snonce != "" && h.mic != "" && h.stationMAC != ""
}

func (h *hexHandshakeFlags) handshake(cfg *config.Config) *wpa.Handshake {
	return &wpa.Handshake{
		SSID:                 cfg.ESSID,
		BSSID:                cfg.BSSID,
		StationMAC:           h.stationMAC,
		ANonce:               h.anonce,
		SNonce:               h.snonce,
		MIC:                  h.mic,
		EAPOLFrame:           h.eapol,
		KeyDescriptorVersion: h.keyVer,
	}
}

func runCrack(cfg *config.Config, hs *wpa.Handshake) error {
	words, err := wordlist.Load(cfg.Wordlist)
	if err != nil {
		return err
	}
	if len(words) == 0 {
		return fmt.Errorf("wordlist %s has no candidates in the 8-63 byte range", cfg.Wordlist)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	eng := engine.New(engine.Options{
		ForceCPU:   cfg.Engine.ForceCPU,
		ShaderPath: cfg.Engine.ShaderPath,
		Workers:    cfg.Engine.Workers,
		Verbose:    cfg.Output.Verbose,
	})

	cracker := crack.New(eng, cfg.Output.Verbose)

	var res *result.CrackResult
	if cfg.Output.NoTUI {
		go logProgress(cracker.Progress(), cfg.Output.Verbose)
		res = cracker.Run(ctx, hs, words)
	} else {
		res, err = ui.RunCrack(ctx, cancel, cracker, hs, words)
		if err != nil {
			return err
		}
	}

	res.BSSID = hs.BSSID
	res.ESSID = hs.SSID
	store := result.NewStore(cfg.Output.ResultsFile)
	store.Add(res)

	switch res.Status {
	case result.StatusSuccess:
		fmt.Printf("\n  Passphrase found: %s\n  PMK: %s\n  Frame: %s, %d candidates tested\n",
			res.Password, res.PMKHex, res.FrameSource, res.Tested)
	case result.StatusNotFound:
		fmt.Printf("\n  Exhausted %d candidates, no match.\n", res.Tested)
	case result.StatusCancelled:
		fmt.Printf("\n  Cancelled after %d candidates.\n", res.Tested)
	case result.StatusError:
		return fmt.Errorf("crack failed: %s", res.Reason)
	}

	return nil
}

func logProgress(ch <-chan crack.Progress, verbose int) {
	for p := range ch {
		if verbose > 0 {
			log.Printf("[%s] %d/%d tested (%.0f H/s), last: %s",
				p.Mode, p.Tested, p.Total, p.HashesPerSec, p.Password)
		}
	}
}

// checkCmd validates a capture file for complete handshakes.
func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [cap-file] [bssid]",
		Short: "Check a capture file for complete 4-way handshakes",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bssid := ""
			if len(args) == 2 {
				bssid = args[1]
			}

			state, err := capture.ScanFile(args[0], bssid)
			if err != nil {
				return err
			}

			if !state.HasCompleteHandshake() {
				return fmt.Errorf("no complete handshake (saw %d EAPOL pairs)", state.PairCount())
			}

			for _, hs := range state.Handshakes("") {
				fmt.Printf("  %s <-> %s  key-version=%d ssid=%q\n",
					hs.BSSID, hs.StationMAC, hs.KeyDescriptorVersion, hs.SSID)
			}
			return nil
		},
	}
}

// benchCmd measures PMK derivation throughput on the active backend.
func benchCmd(cfg *config.Config) *cobra.Command {
	var rounds int

	c := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark PMK derivation throughput",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng := engine.New(engine.Options{
				ForceCPU:   cfg.Engine.ForceCPU,
				ShaderPath: cfg.Engine.ShaderPath,
				Workers:    cfg.Engine.Workers,
				Verbose:    cfg.Output.Verbose,
			})

			accelerated, err := eng.Initialize()
			if err != nil {
				return err
			}
			defer eng.Shutdown()

			fmt.Printf("  Device: %s (accelerated=%v)\n", eng.DeviceName(), accelerated)

			rate, err := eng.Benchmark(rounds)
			if err != nil {
				return err
			}
			fmt.Printf("  %.0f H/s over %d rounds\n", rate, rounds)
			return nil
		},
	}

	c.Flags().IntVar(&rounds, "rounds", 8, "Benchmark rounds")
	return c
}

// crackedCmd shows previously recovered networks.
func crackedCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "cracked",
		Short: "Show previously recovered networks",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := result.NewStore(cfg.Output.ResultsFile)
			fmt.Print(banner)
			fmt.Println("\n  Recovered Networks:")
			fmt.Println()
			fmt.Print(store.FormatCracked())
			return nil
		},
	}
}
