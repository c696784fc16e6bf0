package journals

import (
	"context"
	"errors"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// memoryLedger is a transactional in-memory ledger store. WithTx works on a
// copy of the state and swaps it in only when fn succeeds.
type memoryLedger struct {
	state    ledgerState
	failLine int // 1-based line index whose insert fails; 0 disables
	now      time.Time
}

type ledgerState struct {
	accounts   map[int64]Account
	entries    map[int64]JournalEntry
	lines      map[int64][]JournalLine
	nextEntry  int64
	nextLineID int64
}

func newMemoryLedger(accounts ...Account) *memoryLedger {
	repo := &memoryLedger{
		state: ledgerState{
			accounts: make(map[int64]Account),
			entries:  make(map[int64]JournalEntry),
			lines:    make(map[int64][]JournalLine),
		},
		now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	for _, a := range accounts {
		repo.state.accounts[a.ID] = a
	}
	return repo
}

func (s ledgerState) clone() ledgerState {
	out := ledgerState{
		accounts:   make(map[int64]Account, len(s.accounts)),
		entries:    make(map[int64]JournalEntry, len(s.entries)),
		lines:      make(map[int64][]JournalLine, len(s.lines)),
		nextEntry:  s.nextEntry,
		nextLineID: s.nextLineID,
	}
	for k, v := range s.accounts {
		out.accounts[k] = v
	}
	for k, v := range s.entries {
		out.entries[k] = v
	}
	for k, v := range s.lines {
		out.lines[k] = append([]JournalLine(nil), v...)
	}
	return out
}

func (r *memoryLedger) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	work := r.state.clone()
	tx := &memoryLedgerTx{repo: r, state: &work}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	r.state = work
	return nil
}

func (r *memoryLedger) ListUnbalancedEntries(ctx context.Context) ([]UnbalancedEntry, error) {
	var out []UnbalancedEntry
	for id := int64(1); id <= r.state.nextEntry; id++ {
		lines, ok := r.state.lines[id]
		if !ok {
			continue
		}
		debit, credit := sumLines(lines)
		if !debit.Equal(credit) {
			out = append(out, UnbalancedEntry{EntryID: id, Debit: debit, Credit: credit})
		}
	}
	return out, nil
}

func (r *memoryLedger) entryCount() int { return len(r.state.entries) }

func (r *memoryLedger) lineCount() int {
	total := 0
	for _, lines := range r.state.lines {
		total += len(lines)
	}
	return total
}

type memoryLedgerTx struct {
	repo  *memoryLedger
	state *ledgerState
}

func (tx *memoryLedgerTx) GetAccount(ctx context.Context, id int64) (Account, error) {
	a, ok := tx.state.accounts[id]
	if !ok {
		return Account{}, shared.NewNotFound("account", id)
	}
	return a, nil
}

func (tx *memoryLedgerTx) InsertEntry(ctx context.Context, in CreateEntryInput) (JournalEntry, error) {
	tx.state.nextEntry++
	entry := JournalEntry{
		ID:        tx.state.nextEntry,
		CompanyID: in.CompanyID,
		BranchID:  in.BranchID,
		EntryDate: in.EntryDate,
		Period:    in.Period,
		RefNo:     in.RefNo,
		Status:    EntryStatusDraft,
		CreatedBy: in.CreatedBy,
		Version:   1,
		CreatedAt: tx.repo.now,
		UpdatedAt: tx.repo.now,
	}
	tx.state.entries[entry.ID] = entry
	return entry, nil
}

func (tx *memoryLedgerTx) InsertLines(ctx context.Context, entryID int64, lines []LineInput) ([]JournalLine, error) {
	out := make([]JournalLine, 0, len(lines))
	for idx, line := range lines {
		if tx.repo.failLine == idx+1 {
			return nil, shared.WrapStorage("journals.insert_lines", errors.New("disk full"))
		}
		tx.state.nextLineID++
		inserted := JournalLine{
			ID:           tx.state.nextLineID,
			JournalID:    entryID,
			AccountID:    line.AccountID,
			Debit:        line.Debit,
			Credit:       line.Credit,
			Currency:     line.Currency,
			FxRate:       line.FxRate,
			CostCenterID: line.CostCenterID,
			ProjectID:    line.ProjectID,
			Memo:         line.Memo,
			CreatedAt:    tx.repo.now,
		}
		tx.state.lines[entryID] = append(tx.state.lines[entryID], inserted)
		out = append(out, inserted)
	}
	return out, nil
}

func (tx *memoryLedgerTx) GetEntry(ctx context.Context, id int64) (JournalEntry, error) {
	e, ok := tx.state.entries[id]
	if !ok {
		return JournalEntry{}, shared.NewNotFound("journal entry", id)
	}
	return e, nil
}

func (tx *memoryLedgerTx) GetEntryForUpdate(ctx context.Context, id int64) (JournalEntry, error) {
	return tx.GetEntry(ctx, id)
}

func (tx *memoryLedgerTx) GetLines(ctx context.Context, entryID int64) ([]JournalLine, error) {
	return append([]JournalLine(nil), tx.state.lines[entryID]...), nil
}

func (tx *memoryLedgerTx) UpdateEntry(ctx context.Context, id int64, patch EntryPatch) (JournalEntry, error) {
	e, ok := tx.state.entries[id]
	if !ok {
		return JournalEntry{}, shared.NewNotFound("journal entry", id)
	}
	if e.Version != patch.ExpectedVersion {
		return JournalEntry{}, &shared.ConflictError{Entity: "journal entry", Reason: "modified concurrently"}
	}
	e = applyEntryPatch(e, patch, tx.repo.now)
	tx.state.entries[id] = e
	return e, nil
}

func (tx *memoryLedgerTx) DeleteEntry(ctx context.Context, id int64) error {
	if _, ok := tx.state.entries[id]; !ok {
		return shared.NewNotFound("journal entry", id)
	}
	delete(tx.state.lines, id)
	delete(tx.state.entries, id)
	return nil
}

// applyEntryPatch mirrors the COALESCE merge of the SQL update.
func applyEntryPatch(entry JournalEntry, p EntryPatch, at time.Time) JournalEntry {
	if p.Status != "" {
		entry.Status = p.Status
	}
	if p.ApprovedBy != nil {
		entry.ApprovedBy = p.ApprovedBy
	}
	if p.ApprovedAt != nil {
		entry.ApprovedAt = p.ApprovedAt
	}
	if p.PostedBy != nil {
		entry.PostedBy = p.PostedBy
	}
	if p.PostedAt != nil {
		entry.PostedAt = p.PostedAt
	}
	if p.VoidedBy != nil {
		entry.VoidedBy = p.VoidedBy
	}
	if p.VoidedAt != nil {
		entry.VoidedAt = p.VoidedAt
	}
	if p.VoidReason != nil {
		entry.VoidReason = *p.VoidReason
	}
	entry.Version++
	entry.UpdatedAt = at
	return entry
}
