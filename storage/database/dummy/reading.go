package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/billing"
	"github.com/trezcool/smartbill/core/reading"
)

type readingRepository struct {
	db *DB
}

var _ reading.Repository = (*readingRepository)(nil) // interface compliance check

func NewReadingRepository(db *DB) reading.Repository {
	return &readingRepository{db: db}
}

func matchReading(r reading.Reading, filter reading.QueryFilter) bool {
	switch {
	case filter.ReaderID != "" && r.ReaderID != filter.ReaderID,
		filter.CustomerID != "" && r.CustomerID != filter.CustomerID,
		filter.ExcludedID != "" && r.ID == filter.ExcludedID,
		!filter.DateFrom.IsZero() && r.ReadingDate.Before(filter.DateFrom),
		!filter.DateTo.IsZero() && !r.ReadingDate.Before(filter.DateTo):
		return false
	}
	return true
}

func (repo *readingRepository) CreateReading(_ context.Context, r reading.Reading, _ ...core.DBExecutor) (reading.Reading, error) {
	repo.db.reading.Lock()
	defer repo.db.reading.Unlock()

	r.ID = newID()
	repo.db.reading.table[r.ID] = r
	return r, nil
}

func (repo *readingRepository) QueryReadings(_ context.Context, filter reading.QueryFilter, _ ...core.DBExecutor) ([]reading.Reading, error) {
	repo.db.reading.RLock()
	readings := make([]reading.Reading, 0)
	for _, r := range repo.db.reading.table {
		if matchReading(r, filter) {
			readings = append(readings, r)
		}
	}
	repo.db.reading.RUnlock()

	sort.SliceStable(readings, func(i, j int) bool {
		if readings[i].ReadingDate.Equal(readings[j].ReadingDate) {
			return readings[i].CreatedAt.After(readings[j].CreatedAt)
		}
		return readings[i].ReadingDate.After(readings[j].ReadingDate)
	})
	return readings, nil
}

func (repo *readingRepository) ReadingExists(_ context.Context, filter reading.QueryFilter, _ ...core.DBExecutor) (bool, error) {
	repo.db.reading.RLock()
	defer repo.db.reading.RUnlock()

	for _, r := range repo.db.reading.table {
		if matchReading(r, filter) {
			return true, nil
		}
	}
	return false, nil
}

func (repo *readingRepository) GetReading(_ context.Context, id string, _ ...core.DBExecutor) (reading.Reading, error) {
	repo.db.reading.RLock()
	r, ok := repo.db.reading.table[id]
	repo.db.reading.RUnlock()

	if !ok {
		return reading.Reading{}, reading.ErrNotFound
	}
	r.ReaderName = repo.db.userName(r.ReaderID)
	r.CustomerName = repo.db.customerName(r.CustomerID)
	return r, nil
}

func (repo *readingRepository) UpdateReading(_ context.Context, r reading.Reading, _ ...core.DBExecutor) (reading.Reading, error) {
	repo.db.reading.Lock()
	defer repo.db.reading.Unlock()

	if _, ok := repo.db.reading.table[r.ID]; !ok {
		return reading.Reading{}, reading.ErrNotFound
	}
	r.ReaderName, r.CustomerName = "", ""
	repo.db.reading.table[r.ID] = r
	return r, nil
}

func (repo *readingRepository) DeleteReading(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.reading.Lock()
	defer repo.db.reading.Unlock()

	if _, ok := repo.db.reading.table[id]; !ok {
		return reading.ErrNotFound
	}
	if repo.db.billed(func(b billing.Bill) bool { return b.ReadingID == id }) {
		return reading.ErrBilled
	}
	delete(repo.db.reading.table, id)
	return nil
}
