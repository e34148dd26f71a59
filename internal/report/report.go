// Package report renders pass results for human and machine
// consumption: per-run totals, throughput, and the outcome buckets of
// each mode.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/seclark/intact/internal/recon"
)

// Summary is the display form of one pass. Fields are pre-formatted
// where display is the only consumer; counts and paths stay structured
// so the JSON output remains scriptable.
type Summary struct {
	Mode       string    `json:"mode"`
	Run        string    `json:"run"`
	Files      int64     `json:"files"`
	Bytes      int64     `json:"bytes"`
	Elapsed    string    `json:"elapsed"`
	Throughput string    `json:"throughput"`
	Buckets    []Bucket  `json:"buckets,omitempty"`
	Failures   []Failure `json:"failures,omitempty"`
}

// Bucket is one named outcome list.
type Bucket struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Paths []string `json:"paths,omitempty"`
}

// Failure is one isolated per-file failure, stringified for display.
type Failure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// ForBuild summarizes a Build pass.
func ForBuild(r *recon.BuildResult) *Summary {
	return &Summary{
		Mode:       "build",
		Run:        r.Token,
		Files:      r.Files,
		Bytes:      r.Bytes,
		Elapsed:    r.Elapsed.String(),
		Throughput: throughput(r.Bytes, r.Elapsed),
		Failures:   failures(r.Failures),
	}
}

// ForUpdate summarizes an Update pass. New and Changed are reported as
// separate buckets; both empty means "no changes".
func ForUpdate(r *recon.UpdateResult) *Summary {
	return &Summary{
		Mode:       "update",
		Run:        r.Token,
		Files:      r.Files,
		Bytes:      r.Bytes,
		Elapsed:    r.Elapsed.String(),
		Throughput: throughput(r.Bytes, r.Elapsed),
		Buckets: []Bucket{
			{Name: "new", Count: len(r.New), Paths: r.New},
			{Name: "changed", Count: len(r.Changed), Paths: r.Changed},
		},
		Failures: failures(r.Failures),
	}
}

// ForVerify summarizes a Verify pass. Ok is reported as a count only;
// every problem bucket lists its paths.
func ForVerify(r *recon.VerifyResult) *Summary {
	return &Summary{
		Mode:       "verify",
		Run:        r.Token,
		Files:      r.Files,
		Bytes:      r.Bytes,
		Elapsed:    r.Elapsed.String(),
		Throughput: throughput(r.Bytes, r.Elapsed),
		Buckets: []Bucket{
			{Name: "ok", Count: len(r.Ok)},
			{Name: "failed", Count: len(r.Failed), Paths: r.Failed},
			{Name: "hash mismatch", Count: len(r.HashMismatch), Paths: r.HashMismatch},
			{Name: "changed", Count: len(r.FileChanged), Paths: r.FileChanged},
			{Name: "not found", Count: len(r.NotFound), Paths: r.NotFound},
			{Name: "missing", Count: len(r.Missing), Paths: r.Missing},
		},
		Failures: failures(r.Failures),
	}
}

// Render produces the human-readable text form.
func (s *Summary) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s complete (run %s)\n", s.Mode, s.Run)
	fmt.Fprintf(&b, "  files:      %d\n", s.Files)
	fmt.Fprintf(&b, "  bytes:      %s\n", HumanBytes(s.Bytes))
	fmt.Fprintf(&b, "  elapsed:    %s\n", s.Elapsed)
	fmt.Fprintf(&b, "  throughput: %s\n", s.Throughput)

	for _, bucket := range s.Buckets {
		fmt.Fprintf(&b, "  %-14s %d\n", bucket.Name+":", bucket.Count)
		for _, p := range bucket.Paths {
			fmt.Fprintf(&b, "    %s\n", p)
		}
	}

	fmt.Fprintf(&b, "  %-14s %d\n", "failures:", len(s.Failures))
	for _, f := range s.Failures {
		fmt.Fprintf(&b, "    %s: %s\n", f.Path, f.Error)
	}

	return b.String()
}

func failures(fs []recon.Failure) []Failure {
	if len(fs) == 0 {
		return nil
	}
	out := make([]Failure, len(fs))
	for i, f := range fs {
		out[i] = Failure{Path: f.Path, Error: f.Err.Error()}
	}
	return out
}

func throughput(bytes int64, elapsed time.Duration) string {
	if elapsed <= 0 {
		return "n/a"
	}
	perSec := float64(bytes) / elapsed.Seconds()
	return fmt.Sprintf("%s/s", HumanBytes(int64(perSec)))
}

// HumanBytes renders a byte count with a binary unit prefix.
func HumanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGT"[exp])
}
