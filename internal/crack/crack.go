// Package crack drives the compute engine and the key derivation chain
// against a wordlist until a candidate reproduces the captured MIC.
package crack

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/wpacrack/wpacrack/internal/result"
	"github.com/wpacrack/wpacrack/pkg/wpa"
)

// Engine is the batch PMK derivation dependency. The caller constructs it and
// hands it in; the cracker releases it when the run completes.
type Engine interface {
	Initialize() (accelerated bool, err error)
	DerivePMKBatch(passwords []string, ssid string) ([][]byte, error)
	BatchSize() int
	Mode() string
	Shutdown()
}

// Cracker runs one dictionary attack per instance. Candidates are tested in
// wordlist order, batch by batch; the first match wins and no later candidate
// is ever derived.
type Cracker struct {
	engine   Engine
	reporter *reporter
	verbose  int
	total    int
}

func New(engine Engine, verbose int) *Cracker {
	return &Cracker{
		engine:   engine,
		reporter: newReporter(),
		verbose:  verbose,
	}
}

// Progress returns the throttled progress stream for this run. The channel
// closes when Run returns.
func (c *Cracker) Progress() <-chan Progress {
	return c.reporter.ch
}

// Run validates the handshake, then tests every wordlist candidate against
// the captured MIC until one matches, the list is exhausted, or ctx is
// cancelled. Cancellation is cooperative: it is checked at batch boundaries,
// so its latency is bounded by one in-flight batch. The engine is shut down
// on every path out of here.
func (c *Cracker) Run(ctx context.Context, hs *wpa.Handshake, words []string) *result.CrackResult {
	defer c.reporter.close()

	// Validation gates all cryptography: a malformed handshake never
	// reaches the compute engine.
	parsed, err := hs.Parse()
	if err != nil {
		return c.finish(result.Failure(fmt.Errorf("handshake rejected: %w", err)), 0, time.Time{})
	}

	if c.verbose > 0 && parsed.Source == wpa.FrameReconstructed {
		log.Printf("no captured EAPOL frame for %s; verifying against a reconstructed frame (lower confidence)", hs.BSSID)
	}

	start := time.Now()

	accelerated, err := c.engine.Initialize()
	if err != nil {
		return c.finish(result.Failure(fmt.Errorf("engine unavailable: %w", err)), 0, start)
	}
	defer c.engine.Shutdown()

	if c.verbose > 0 {
		log.Printf("engine ready (accelerated=%v), %d candidates", accelerated, len(words))
	}

	c.total = len(words)
	tested := 0

	for len(words) > 0 {
		select {
		case <-ctx.Done():
			return c.finish(result.Cancelled(), tested, start)
		default:
		}

		batchSize := c.engine.BatchSize()
		if batchSize > len(words) {
			batchSize = len(words)
		}
		batch := words[:batchSize]
		words = words[batchSize:]

		pmks, err := c.engine.DerivePMKBatch(batch, parsed.SSID)
		if err != nil {
			return c.finish(result.Failure(fmt.Errorf("derive batch: %w", err)), tested, start)
		}

		// Score the whole batch before moving on: first match in
		// wordlist order terminates the search.
		for i, pmk := range pmks {
			match, err := c.verify(parsed, pmk)
			if err != nil {
				return c.finish(result.Failure(err), tested, start)
			}
			tested++
			if match {
				res := result.Success(batch[i], pmk, parsed.Source.String())
				return c.finish(res, tested, start)
			}
		}

		c.reporter.report(batch[len(batch)-1], tested, c.total, c.engine.Mode(), false)
	}

	return c.finish(result.NotFound(), tested, start)
}

// verify derives PTK -> KCK -> MIC for one candidate PMK and compares against
// the captured MIC in constant time.
func (c *Cracker) verify(parsed *wpa.ParsedHandshake, pmk []byte) (bool, error) {
	ptk, err := wpa.DerivePTK(pmk, parsed.BSSID, parsed.StationMAC, parsed.ANonce, parsed.SNonce, parsed.Variant)
	if err != nil {
		return false, fmt.Errorf("derive ptk: %w", err)
	}

	mic, err := wpa.CalculateMIC(wpa.ExtractKCK(ptk), parsed.FrameToHash, parsed.Version)
	if err != nil {
		return false, fmt.Errorf("calculate mic: %w", err)
	}

	return wpa.MICEqual(mic, parsed.MIC[:]), nil
}

func (c *Cracker) finish(res *result.CrackResult, tested int, start time.Time) *result.CrackResult {
	res.Tested = tested
	if !start.IsZero() {
		res.Duration = result.Duration(time.Since(start))
	}
	c.reporter.report(res.Password, tested, c.total, c.engine.Mode(), true)
	return res
}
