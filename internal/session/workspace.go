package session

import (
	"sync"
	"time"

	"kpijoin/domain/core"
	"kpijoin/domain/kpi"
	"kpijoin/domain/table"
	"kpijoin/internal/errors"
)

// Workspace is the wizard state of one browser session: the uploaded pair,
// the current joined table and the most recent analysis.
type Workspace struct {
	mu sync.Mutex

	id        core.SessionID
	createdAt time.Time
	lastSeen  time.Time

	datasetA *table.Table
	datasetB *table.Table
	fileA    string
	fileB    string

	joined   *table.Table
	joinKeys []string
	joinType string

	lastAnalysis *kpi.Result
}

// Summary is a read-only view of a workspace
type Summary struct {
	Tag         string         `json:"session_tag"`
	FileA       string         `json:"file_a,omitempty"`
	FileB       string         `json:"file_b,omitempty"`
	HasDatasets bool           `json:"has_datasets"`
	HasJoined   bool           `json:"has_joined"`
	JoinKeys    []string       `json:"join_keys,omitempty"`
	JoinType    string         `json:"join_type,omitempty"`
	HasAnalysis bool           `json:"has_analysis"`
	CreatedAt   time.Time      `json:"created_at"`
	LastSeen    time.Time      `json:"last_seen"`
}

func newWorkspace(id core.SessionID, now time.Time) *Workspace {
	return &Workspace{id: id, createdAt: now, lastSeen: now}
}

// ID returns the session identifier
func (w *Workspace) ID() core.SessionID { return w.id }

// SetDatasets stores a freshly uploaded pair. The joined table and the last
// analysis are kept until they are replaced.
func (w *Workspace) SetDatasets(a, b *table.Table, fileA, fileB string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.datasetA, w.datasetB = a, b
	w.fileA, w.fileB = fileA, fileB
}

// Datasets returns the uploaded pair; ok is false before any upload
func (w *Workspace) Datasets() (a, b *table.Table, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.datasetA, w.datasetB, w.datasetA != nil && w.datasetB != nil
}

// SetJoined replaces the joined table. An analysis computed on the previous
// joined table is discarded; analyses of the uploaded datasets are kept.
func (w *Workspace) SetJoined(t *table.Table, keys []string, joinType string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.joined = t
	w.joinKeys = append([]string(nil), keys...)
	w.joinType = joinType
	if w.lastAnalysis != nil && w.lastAnalysis.Source == kpi.SourceJoined {
		w.lastAnalysis = nil
	}
}

// Joined returns the current joined table, nil if none
func (w *Workspace) Joined() *table.Table {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.joined
}

// Resolve maps a source selector to a stored table
func (w *Workspace) Resolve(src kpi.Source) (*table.Table, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var t *table.Table
	switch src {
	case kpi.SourceDataset1:
		t = w.datasetA
	case kpi.SourceDataset2:
		t = w.datasetB
	case kpi.SourceJoined:
		t = w.joined
	}
	if t == nil {
		return nil, errors.DatasetNotSelected()
	}
	return t, nil
}

// SetAnalysis records the most recent analysis result
func (w *Workspace) SetAnalysis(r *kpi.Result) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastAnalysis = r
}

// LastAnalysis returns the most recent analysis result
func (w *Workspace) LastAnalysis() (*kpi.Result, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastAnalysis, w.lastAnalysis != nil
}

// Summary returns a snapshot of the workspace state
func (w *Workspace) Summary() Summary {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Summary{
		Tag:         w.id.Tag(),
		FileA:       w.fileA,
		FileB:       w.fileB,
		HasDatasets: w.datasetA != nil && w.datasetB != nil,
		HasJoined:   w.joined != nil,
		JoinKeys:    append([]string(nil), w.joinKeys...),
		JoinType:    w.joinType,
		HasAnalysis: w.lastAnalysis != nil,
		CreatedAt:   w.createdAt,
		LastSeen:    w.lastSeen,
	}
}

func (w *Workspace) touch(now time.Time) {
	w.mu.Lock()
	w.lastSeen = now
	w.mu.Unlock()
}

func (w *Workspace) idleSince(now time.Time) time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return now.Sub(w.lastSeen)
}
