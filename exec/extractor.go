// Package exec runs the out-of-process link extractor used when archive
// captures have already been downloaded next to a pre-built index.
package exec

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	osexec "os/exec"
	"path/filepath"

	"github.com/fwojciec/sweep"
	"github.com/google/uuid"
)

// Compile-time interface assertion.
var _ sweep.LinkExtractorBinary = (*Extractor)(nil)

// Extractor invokes an external binary: the job is written as a JSON temp
// file passed as the only argument, and the binary streams one LinkRecord
// per line on stdout. The process is killed on context cancellation.
type Extractor struct {
	// Path is the extractor binary.
	Path string

	// ArchiveDir holds the pre-downloaded archive files, passed to the
	// binary via the SWEEP_ARCHIVE_DIR environment variable.
	ArchiveDir string
}

// job is the on-disk request format the binary reads.
type job struct {
	TargetDomain string          `json:"targetDomain"`
	Refs         []sweep.PageRef `json:"refs"`
}

// Extract runs the binary for the given refs and collects its output.
// Malformed output lines are skipped.
func (e *Extractor) Extract(ctx context.Context, targetDomain string, refs []sweep.PageRef) ([]sweep.LinkRecord, error) {
	if e.Path == "" {
		return nil, sweep.Errorf(sweep.EINVALID, "extractor binary path required")
	}
	if len(refs) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(job{TargetDomain: targetDomain, Refs: refs})
	if err != nil {
		return nil, sweep.WrapError(sweep.EINTERNAL, err, "encoding extractor job")
	}

	jobFile := filepath.Join(os.TempDir(), "sweep-extract-"+uuid.New().String()+".json")
	if err := os.WriteFile(jobFile, payload, 0o644); err != nil {
		return nil, sweep.WrapError(sweep.EINTERNAL, err, "writing extractor job")
	}
	defer os.Remove(jobFile)

	cmd := osexec.CommandContext(ctx, e.Path, jobFile)
	cmd.Env = append(os.Environ(), "SWEEP_ARCHIVE_DIR="+e.ArchiveDir)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, sweep.WrapError(sweep.EINTERNAL, err, "attaching extractor stdout")
	}
	if err := cmd.Start(); err != nil {
		return nil, sweep.WrapError(sweep.EUNAVAILABLE, err, "starting extractor %s", e.Path)
	}

	var links []sweep.LinkRecord
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var l sweep.LinkRecord
		if err := json.Unmarshal(line, &l); err != nil {
			continue
		}
		links = append(links, l)
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return links, sweep.WrapError(sweep.ECANCELED, ctx.Err(), "extractor canceled")
		}
		return links, sweep.WrapError(sweep.EUNAVAILABLE, err, "extractor %s", e.Path)
	}
	return links, nil
}
