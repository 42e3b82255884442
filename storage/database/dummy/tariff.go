package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/billing"
	"github.com/trezcool/smartbill/core/tariff"
)

type tariffRepository struct {
	db    *tariffTable
	store *DB
}

var _ tariff.Repository = (*tariffRepository)(nil) // interface compliance check

func NewTariffRepository(db *DB) tariff.Repository {
	return &tariffRepository{db: db.tariff, store: db}
}

func (repo *tariffRepository) CheckNameUniqueness(_ context.Context, name, excludedID string, _ ...core.DBExecutor) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, t := range repo.db.table {
		if t.ID != excludedID && strings.EqualFold(t.Name, name) {
			return tariff.ErrNameExists
		}
	}
	return nil
}

func (repo *tariffRepository) CreateTariff(_ context.Context, t tariff.Tariff, _ ...core.DBExecutor) (tariff.Tariff, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	t.ID = newID()
	repo.db.table[t.ID] = t
	return t, nil
}

func (repo *tariffRepository) QueryTariffs(_ context.Context, _ ...core.DBExecutor) ([]tariff.Tariff, error) {
	repo.db.RLock()
	tariffs := make([]tariff.Tariff, 0, len(repo.db.table))
	for _, t := range repo.db.table {
		tariffs = append(tariffs, t)
	}
	repo.db.RUnlock()

	sort.Slice(tariffs, func(i, j int) bool { return tariffs[i].Name < tariffs[j].Name })
	return tariffs, nil
}

func (repo *tariffRepository) GetTariffByID(_ context.Context, id string, _ ...core.DBExecutor) (tariff.Tariff, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if t, ok := repo.db.table[id]; ok {
		return t, nil
	}
	return tariff.Tariff{}, tariff.ErrNotFound
}

func (repo *tariffRepository) GetTariffByName(_ context.Context, name string, _ ...core.DBExecutor) (tariff.Tariff, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, t := range repo.db.table {
		if strings.EqualFold(t.Name, name) {
			return t, nil
		}
	}
	return tariff.Tariff{}, tariff.ErrNotFound
}

func (repo *tariffRepository) UpdateTariff(_ context.Context, t tariff.Tariff, _ ...core.DBExecutor) (tariff.Tariff, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[t.ID]; !ok {
		return tariff.Tariff{}, tariff.ErrNotFound
	}
	repo.db.table[t.ID] = t
	return t, nil
}

func (repo *tariffRepository) DeleteTariff(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return tariff.ErrNotFound
	}
	if repo.store.billed(func(b billing.Bill) bool { return b.TariffID == id }) {
		return tariff.ErrInUse
	}
	delete(repo.db.table, id)
	return nil
}
