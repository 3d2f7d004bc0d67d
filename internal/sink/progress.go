package sink

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

const progressFileName = "progress.json"

// Progress tracks which combination indices have already produced a record,
// so interrupted runs pick up where they left off. It is keyed to the seed:
// indices are only meaningful against the same shuffled expansion.
type Progress struct {
	mu         sync.Mutex
	path       string
	successful map[int]bool

	Seed  int64
	Total int
}

// progressFile is the on-disk shape of the progress record.
type progressFile struct {
	SuccessfulIndices []int `json:"successful_indices"`
	Seed              int64 `json:"seed"`
	Total             int   `json:"total"`
	SuccessfulCount   int   `json:"successful_count"`
}

// LoadProgress reads the progress file under dir, returning empty progress
// when none exists yet.
func LoadProgress(dir string) (*Progress, error) {
	p := &Progress{
		path:       filepath.Join(dir, progressFileName),
		successful: make(map[int]bool),
	}

	data, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read progress file: %w", err)
	}

	var pf progressFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("progress file %s is corrupt: %w", p.path, err)
	}

	p.Seed = pf.Seed
	p.Total = pf.Total
	for _, idx := range pf.SuccessfulIndices {
		p.successful[idx] = true
	}
	return p, nil
}

// Count returns how many combinations have succeeded so far.
func (p *Progress) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.successful)
}

// Done reports whether the combination at index already succeeded.
func (p *Progress) Done(index int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.successful[index]
}

// MarkDone records a success and persists the file. Persisting after every
// success keeps the file honest across crashes at the cost of one small
// rewrite per record.
func (p *Progress) MarkDone(index int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.successful[index] = true
	return p.save()
}

func (p *Progress) save() error {
	indices := make([]int, 0, len(p.successful))
	for idx := range p.successful {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	data, err := json.Marshal(progressFile{
		SuccessfulIndices: indices,
		Seed:              p.Seed,
		Total:             p.Total,
		SuccessfulCount:   len(indices),
	})
	if err != nil {
		return fmt.Errorf("failed to serialize progress: %w", err)
	}

	if err := os.WriteFile(p.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write progress file: %w", err)
	}
	return nil
}
