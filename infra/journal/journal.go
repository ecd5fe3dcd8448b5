package journal

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"bookreplay/domain/market"
	"bookreplay/infra/sequence"
)

const headerSize = 1 + 8 + 8 + 4

type Config struct {
	Dir         string `yaml:"dir"`
	SegmentSize int64  `yaml:"segment_size"`
}

// Journal appends records to the newest segment, rotating once a segment
// grows past SegmentSize.
type Journal struct {
	mu       sync.Mutex
	dir      string
	segSize  int64
	current  *segment
	segIndex int
	seq      *sequence.Sequencer
}

// Open creates dir if needed and resumes after the last record found in it.
func Open(cfg Config) (*Journal, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}
	if cfg.SegmentSize <= 0 {
		cfg.SegmentSize = 64 << 20
	}

	files, err := segments(cfg.Dir)
	if err != nil {
		return nil, err
	}
	var lastSeq uint64
	index := 0
	for _, path := range files {
		m, err := maxSeqInSegment(path)
		if err != nil {
			return nil, fmt.Errorf("journal: scan %s: %w", path, err)
		}
		if m > lastSeq {
			lastSeq = m
		}
		var i int
		if _, err := fmt.Sscanf(filepath.Base(path), "segment-%06d.wal", &i); err == nil && i > index {
			index = i
		}
	}

	seg, err := openSegment(cfg.Dir, index)
	if err != nil {
		return nil, err
	}
	return &Journal{
		dir:      cfg.Dir,
		segSize:  cfg.SegmentSize,
		current:  seg,
		segIndex: index,
		seq:      sequence.New(lastSeq),
	}, nil
}

// LastSeq returns the sequence number of the newest record.
func (j *Journal) LastSeq() uint64 {
	return j.seq.Current()
}

func (j *Journal) AppendDelta(d market.Delta) error {
	r, err := DeltaRecord(d)
	if err != nil {
		return err
	}
	return j.Append(r)
}

func (j *Journal) AppendTrade(t market.Trade) error {
	r, err := TradeRecord(t)
	if err != nil {
		return err
	}
	return j.Append(r)
}

// Append assigns the record the next sequence number and writes it.
func (j *Journal) Append(r *Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	r.Seq = j.seq.Next()
	payloadLen := uint32(len(r.Data))

	// Frame:
	// [type:1][seq:8][time:8][len:4][payload][crc:4]
	buf := make([]byte, headerSize+payloadLen+4)

	buf[0] = byte(r.Type)
	binary.BigEndian.PutUint64(buf[1:9], r.Seq)
	binary.BigEndian.PutUint64(buf[9:17], uint64(r.Time))
	binary.BigEndian.PutUint32(buf[17:21], payloadLen)
	copy(buf[headerSize:], r.Data)

	crc := checksum(buf[:headerSize+payloadLen])
	binary.BigEndian.PutUint32(buf[headerSize+payloadLen:], crc)

	if err := j.current.append(buf); err != nil {
		return err
	}

	if j.current.offset >= j.segSize {
		return j.rotate()
	}
	return nil
}

func (j *Journal) rotate() error {
	if err := j.current.sync(); err != nil {
		return err
	}
	_ = j.current.close()
	j.segIndex++

	seg, err := openSegment(j.dir, j.segIndex)
	if err != nil {
		return err
	}
	j.current = seg
	return nil
}

// Sync flushes the active segment to disk.
func (j *Journal) Sync() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.current.sync()
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.current.sync(); err != nil {
		_ = j.current.close()
		return err
	}
	return j.current.close()
}
