// Package wallets persists smart wallet records and operation audit entries.
package wallets

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"
	badger "github.com/dgraph-io/badger/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/oklog/ulid/v2"

	"github.com/avocetlabs/walletcore/metrics"
	"github.com/avocetlabs/walletcore/model"
	"github.com/avocetlabs/walletcore/storage"
	"github.com/avocetlabs/walletcore/storage/schema"
)

// ErrWalletNotFound is returned when no record exists for the requested
// owner and salt.
var ErrWalletNotFound = errors.New("wallets: wallet not found")

// OperationRecord is the audit entry kept for every submitted operation.
type OperationRecord struct {
	ID        string         `json:"id"`
	OpHash    common.Hash    `json:"op_hash"`
	Wallet    common.Address `json:"wallet"`
	Status    string         `json:"status"`
	Reason    string         `json:"reason,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Repository stores wallet records. Updates replace whole records; a wallet
// value is never mutated in place.
type Repository struct {
	db      storage.Storage
	logger  sdklogging.Logger
	metrics metrics.MetricsGenerator
}

func NewRepository(db storage.Storage, logger sdklogging.Logger, m metrics.MetricsGenerator) *Repository {
	if m == nil {
		m = metrics.Noop()
	}
	return &Repository{db: db, logger: logger, metrics: m}
}

// GetOrCreate returns the stored wallet for (chainID, owner, salt), creating
// the record with the derived address when seen for the first time.
func (r *Repository) GetOrCreate(chainID *big.Int, owner common.Address, salt *big.Int, derive func() (common.Address, error)) (*model.SmartWallet, error) {
	existing, err := r.Get(chainID, owner, salt)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrWalletNotFound) {
		return nil, err
	}

	address, err := derive()
	if err != nil {
		return nil, fmt.Errorf("failed to derive wallet address: %w", err)
	}

	wallet := &model.SmartWallet{
		Owner:     owner,
		Address:   address,
		Salt:      new(big.Int).Set(salt),
		ChainID:   new(big.Int).Set(chainID),
		CreatedAt: time.Now().UTC(),
	}
	if err := r.save(wallet); err != nil {
		return nil, err
	}

	r.logger.Info("created smart wallet record",
		"owner", owner.Hex(),
		"wallet", address.Hex(),
		"salt", salt.String(),
		"chain_id", chainID.String())
	return wallet, nil
}

// Get loads one wallet record.
func (r *Repository) Get(chainID *big.Int, owner common.Address, salt *big.Int) (*model.SmartWallet, error) {
	body, err := r.db.GetKey(schema.WalletStorageKey(chainID, owner, salt))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}

	wallet := &model.SmartWallet{}
	if err := wallet.FromStorageData(body); err != nil {
		return nil, fmt.Errorf("corrupt wallet record for owner %s salt %s: %w", owner.Hex(), salt.String(), err)
	}
	return wallet, nil
}

// ListByOwner returns every wallet of an owner on a chain.
func (r *Repository) ListByOwner(chainID *big.Int, owner common.Address) ([]*model.SmartWallet, error) {
	items, err := r.db.GetByPrefix(schema.WalletByOwnerPrefix(chainID, owner))
	if err != nil {
		return nil, err
	}

	out := make([]*model.SmartWallet, 0, len(items))
	for _, item := range items {
		wallet := &model.SmartWallet{}
		if err := wallet.FromStorageData(item.Value); err != nil {
			r.logger.Warn("skipping corrupt wallet record", "storage_key", string(item.Key), "error", err)
			continue
		}
		out = append(out, wallet)
	}
	return out, nil
}

// MarkDeployed flips the deployment flag by replacing the stored record.
func (r *Repository) MarkDeployed(chainID *big.Int, owner common.Address, salt *big.Int) (*model.SmartWallet, error) {
	wallet, err := r.Get(chainID, owner, salt)
	if err != nil {
		return nil, err
	}
	if wallet.IsDeployed {
		return wallet, nil
	}

	deployed := wallet.WithDeployed()
	if err := r.save(deployed); err != nil {
		return nil, err
	}

	r.metrics.IncWalletDeployed()
	r.logger.Info("smart wallet deployment confirmed",
		"wallet", deployed.Address.Hex(), "owner", owner.Hex())
	return deployed, nil
}

// SetHidden toggles the hidden flag on a wallet record.
func (r *Repository) SetHidden(chainID *big.Int, owner common.Address, salt *big.Int, hidden bool) error {
	wallet, err := r.Get(chainID, owner, salt)
	if err != nil {
		return err
	}

	next := *wallet
	next.IsHidden = hidden
	return r.save(&next)
}

func (r *Repository) save(wallet *model.SmartWallet) error {
	body, err := wallet.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal wallet record: %w", err)
	}
	return r.db.Set(schema.WalletStorageKey(wallet.ChainID, wallet.Owner, wallet.Salt), body)
}

// RecordOperation writes an audit entry for a submitted operation and bumps
// the wallet's operation counter.
func (r *Repository) RecordOperation(opHash common.Hash, wallet common.Address, status string) (*OperationRecord, error) {
	now := time.Now().UTC()
	record := &OperationRecord{
		ID:        ulid.Make().String(),
		OpHash:    opHash,
		Wallet:    wallet,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}

	body, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	if err := r.db.Set(schema.OperationStorageKey(opHash), body); err != nil {
		return nil, err
	}
	if _, err := r.db.IncCounter(schema.OperationCounterKey(wallet)); err != nil {
		return nil, err
	}
	return record, nil
}

// GetOperation loads one audit entry.
func (r *Repository) GetOperation(opHash common.Hash) (*OperationRecord, error) {
	body, err := r.db.GetKey(schema.OperationStorageKey(opHash))
	if err != nil {
		return nil, err
	}

	var record OperationRecord
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, fmt.Errorf("corrupt operation record %s: %w", opHash.Hex(), err)
	}
	return &record, nil
}

// UpdateOperation rewrites an audit entry with a new status.
func (r *Repository) UpdateOperation(opHash common.Hash, status, reason string) (*OperationRecord, error) {
	body, err := r.db.GetKey(schema.OperationStorageKey(opHash))
	if err != nil {
		return nil, err
	}

	var record OperationRecord
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, fmt.Errorf("corrupt operation record %s: %w", opHash.Hex(), err)
	}

	record.Status = status
	record.Reason = reason
	record.UpdatedAt = time.Now().UTC()

	updated, err := json.Marshal(&record)
	if err != nil {
		return nil, err
	}
	if err := r.db.Set(schema.OperationStorageKey(opHash), updated); err != nil {
		return nil, err
	}
	return &record, nil
}

// CountOperations returns how many operations a wallet has submitted.
func (r *Repository) CountOperations(wallet common.Address) (uint64, error) {
	return r.db.GetCounter(schema.OperationCounterKey(wallet), 0)
}
