// Package oplog journals schematic operations as zstd-compressed JSON lines,
// one file per UTC hour.
package oplog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zstd"
)

const fileExt = ".jsonl.zst"

type Entry struct {
	Time          time.Time `json:"ts"`
	Op            string    `json:"op"`
	Path          string    `json:"path,omitempty"`
	OK            bool      `json:"ok"`
	Cells         int       `json:"cells,omitempty"`
	BlockEntities int       `json:"block_entities,omitempty"`
	Entities      int       `json:"entities,omitempty"`
	Skipped       int       `json:"skipped,omitempty"`
	Error         string    `json:"error,omitempty"`
	DurationMS    int64     `json:"duration_ms"`
}

type Journal struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func New(baseDir, prefix string) *Journal {
	return &Journal{baseDir: baseDir, prefix: prefix, now: time.Now}
}

// WithClock replaces the time source used for rotation and stamping.
func (j *Journal) WithClock(now func() time.Time) *Journal {
	j.now = now
	return j
}

func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.closeLocked()
}

// Append writes e and flushes it to disk before returning. A zero Time is
// stamped with the journal clock.
func (j *Journal) Append(e Entry) error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now().UTC()
	if e.Time.IsZero() {
		e.Time = now
	}
	hour := now.Format("2006-01-02-15")
	if hour != j.curHour {
		if err := j.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := j.w.Write(b); err != nil {
		return err
	}
	if err := j.w.WriteByte('\n'); err != nil {
		return err
	}
	if err := j.w.Flush(); err != nil {
		return err
	}
	return j.enc.Flush()
}

func (j *Journal) rotateLocked(hour string) error {
	if err := j.closeLocked(); err != nil {
		return err
	}
	path := j.pathForHour(hour)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "journal dir")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrap(err, "open journal")
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	j.f = f
	j.enc = enc
	j.w = bufio.NewWriterSize(enc, 32*1024)
	j.curHour = hour
	return nil
}

func (j *Journal) closeLocked() error {
	var err1 error
	if j.w != nil {
		_ = j.w.Flush()
	}
	if j.enc != nil {
		err1 = j.enc.Close()
		j.enc = nil
	}
	if j.f != nil {
		_ = j.f.Close()
		j.f = nil
	}
	j.w = nil
	j.curHour = ""
	return err1
}

func (j *Journal) pathForHour(hour string) string {
	return filepath.Join(j.baseDir, fmt.Sprintf("%s-%s%s", j.prefix, hour, fileExt))
}

// Files lists the journal files under baseDir for prefix, oldest first.
func Files(baseDir, prefix string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(baseDir, prefix+"-*"+fileExt))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// ReadFile decodes every entry in one journal file. Appends after a reopen
// start a new zstd frame; the decoder reads across frames.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []Entry
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return out, errors.Wrapf(err, "%s line %d", path, len(out)+1)
		}
		out = append(out, e)
	}
	return out, sc.Err()
}
