package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ChainLedger/internal/balance"
	icommon "github.com/goran-ethernal/ChainLedger/internal/common"
	"github.com/goran-ethernal/ChainLedger/internal/contracts"
	"github.com/goran-ethernal/ChainLedger/internal/logger"
	"github.com/goran-ethernal/ChainLedger/internal/materializer"
	"github.com/goran-ethernal/ChainLedger/pkg/config"
	"github.com/goran-ethernal/ChainLedger/pkg/job"
	"github.com/russross/meddler"
)

// Property job types.
const (
	TypePropertyMeta              = "property-meta"
	TypePropertyBalance           = "property-balance"
	TypePropertyBalanceByTransfer = "property-balance-by-transfer"
	TypePropertyAuthorUpdate      = "property-author-update"
)

// ErrUnknownProperty is returned when a property has no property_meta row.
var ErrUnknownProperty = errors.New("property meta not found")

// LoadPropertyMeta returns the property_meta row of property.
func LoadPropertyMeta(db meddler.DB, property common.Address) (*PropertyMeta, error) {
	var meta PropertyMeta
	err := meddler.QueryRow(db, &meta, `SELECT * FROM property_meta WHERE property = ?`, property.Hex())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProperty, property.Hex())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load property meta of %s: %w", property.Hex(), err)
	}

	return &meta, nil
}

// PropertyAddresses returns every property with a property_meta row.
func PropertyAddresses(db meddler.DB) ([]common.Address, error) {
	var metas []*PropertyMeta
	if err := meddler.QueryAll(db, &metas, `SELECT * FROM property_meta`); err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}

	addrs := make([]common.Address, len(metas))
	for i, m := range metas {
		addrs[i] = m.Property
	}

	return addrs, nil
}

type propertyMetaHandler struct {
	tokens     *contracts.PropertyToken
	properties *contracts.PropertyDirectory
}

func (h *propertyMetaHandler) Pending(_ context.Context, db *sql.DB, after uint64) ([]*PropertyFactoryCreate, error) {
	var records []*PropertyFactoryCreate
	if err := meddler.QueryAll(db, &records,
		`SELECT * FROM property_factory_create WHERE block_number > ? ORDER BY block_number, log_index`,
		after); err != nil {
		return nil, fmt.Errorf("failed to load property creations after block %d: %w", after, err)
	}

	return records, nil
}

func (h *propertyMetaHandler) Prepare(context.Context, *sql.Tx) error {
	return nil
}

func (h *propertyMetaHandler) Apply(ctx context.Context, tx *sql.Tx, r *PropertyFactoryCreate) error {
	author, err := h.tokens.Author(ctx, r.Property)
	if err != nil {
		return err
	}
	name, err := h.tokens.Name(ctx, r.Property)
	if err != nil {
		return err
	}
	symbol, err := h.tokens.Symbol(ctx, r.Property)
	if err != nil {
		return err
	}
	totalSupply, err := h.tokens.TotalSupply(ctx, r.Property)
	if err != nil {
		return err
	}

	if err := meddler.Insert(tx, "property_meta", &PropertyMeta{
		Property:    r.Property,
		Author:      author,
		Sender:      r.From,
		Name:        name,
		Symbol:      symbol,
		TotalSupply: totalSupply,
		BlockNumber: r.BlockNumber,
	}); err != nil {
		return fmt.Errorf("failed to insert property meta of %s: %w", r.Property.Hex(), err)
	}

	if h.properties != nil {
		h.properties.Remember(r.Property)
	}

	return nil
}

// balanceRegenerator rebuilds the balance snapshot of one property from its
// Transfer history.
type balanceRegenerator struct {
	tokens *contracts.PropertyToken
	store  *balance.Store
	log    *logger.Logger
}

func newBalanceRegenerator(deps job.Deps) *balanceRegenerator {
	return &balanceRegenerator{
		tokens: deps.Tokens,
		store:  balance.NewStore(common.Address{}),
		log:    deps.Log.WithComponent(icommon.ComponentBalance),
	}
}

// regenerate replaces the snapshot of property with the balances as of endBlock.
// A property whose author holds the whole supply has no snapshot.
func (r *balanceRegenerator) regenerate(ctx context.Context, tx *sql.Tx, property common.Address, endBlock uint64) error {
	meta, err := LoadPropertyMeta(tx, property)
	if err != nil {
		return err
	}

	author, err := r.tokens.Author(ctx, property)
	if err != nil {
		return err
	}

	authorBalance, err := r.tokens.BalanceOf(ctx, property, author)
	if err != nil {
		return err
	}

	if meta.TotalSupply.Equal(authorBalance) {
		r.log.Debugw("author holds the whole supply", "property", property.Hex(), "author", author.Hex())
		return r.store.Clear(ctx, tx, property)
	}

	var fromBlock uint64
	if meta.BlockNumber > 0 {
		fromBlock = meta.BlockNumber - 1
	}

	entries, err := r.tokens.Transfers(ctx, property, fromBlock, endBlock+1)
	if err != nil {
		return err
	}

	transfers := make([]balance.Transfer, 0, len(entries))
	for i := range entries {
		t, err := toBalanceTransfer(&entries[i])
		if err != nil {
			return err
		}
		transfers = append(transfers, t)
	}

	snapshots, err := r.store.Regenerate(ctx, tx, property, author, transfers)
	if err != nil {
		return err
	}

	r.log.Debugw("regenerated property balance",
		"property", property.Hex(),
		"transfers", len(transfers),
		"holders", len(snapshots),
		"to", endBlock+1,
	)

	return nil
}

type withdrawBalanceHandler struct {
	*balanceRegenerator
}

func (h withdrawBalanceHandler) Pending(_ context.Context, db *sql.DB, after uint64) ([]*WithdrawPropertyTransfer, error) {
	var records []*WithdrawPropertyTransfer
	if err := meddler.QueryAll(db, &records,
		`SELECT * FROM withdraw_property_transfer WHERE block_number > ? ORDER BY block_number, log_index`,
		after); err != nil {
		return nil, fmt.Errorf("failed to load property withdrawals after block %d: %w", after, err)
	}

	return records, nil
}

func (h withdrawBalanceHandler) Prepare(context.Context, *sql.Tx) error {
	return nil
}

func (h withdrawBalanceHandler) Apply(ctx context.Context, tx *sql.Tx, r *WithdrawPropertyTransfer) error {
	return h.regenerate(ctx, tx, r.PropertyAddress, r.BlockNumber)
}

type creationBalanceHandler struct {
	*balanceRegenerator
}

func (h creationBalanceHandler) Pending(_ context.Context, db *sql.DB, after uint64) ([]*PropertyMeta, error) {
	var records []*PropertyMeta
	if err := meddler.QueryAll(db, &records,
		`SELECT * FROM property_meta WHERE block_number > ? ORDER BY block_number, property`,
		after); err != nil {
		return nil, fmt.Errorf("failed to load property meta after block %d: %w", after, err)
	}

	return records, nil
}

func (h creationBalanceHandler) Prepare(context.Context, *sql.Tx) error {
	return nil
}

func (h creationBalanceHandler) Apply(ctx context.Context, tx *sql.Tx, r *PropertyMeta) error {
	return h.regenerate(ctx, tx, r.Property, r.BlockNumber)
}

type authorUpdateHandler struct {
	*balanceRegenerator
}

func (h authorUpdateHandler) Pending(_ context.Context, db *sql.DB, after uint64) ([]*PropertyFactoryChangeAuthor, error) {
	var records []*PropertyFactoryChangeAuthor
	if err := meddler.QueryAll(db, &records,
		`SELECT * FROM property_factory_change_author WHERE block_number > ? ORDER BY block_number, log_index`,
		after); err != nil {
		return nil, fmt.Errorf("failed to load author changes after block %d: %w", after, err)
	}

	return records, nil
}

func (h authorUpdateHandler) Prepare(context.Context, *sql.Tx) error {
	return nil
}

func (h authorUpdateHandler) Apply(ctx context.Context, tx *sql.Tx, r *PropertyFactoryChangeAuthor) error {
	if r.BeforeAuthor == r.AfterAuthor {
		return nil
	}

	if _, err := tx.ExecContext(ctx, `UPDATE property_meta SET author = ? WHERE property = ?`,
		r.AfterAuthor.Hex(), r.Property.Hex()); err != nil {
		return fmt.Errorf("failed to update author of %s: %w", r.Property.Hex(), err)
	}

	return h.regenerate(ctx, tx, r.Property, r.BlockNumber)
}

func newPropertyMetaJob(cfg config.JobConfig, deps job.Deps) (job.Job, error) {
	if deps.Tokens == nil {
		return nil, fmt.Errorf("%s needs a property token reader", cfg.Name)
	}

	h := &propertyMetaHandler{tokens: deps.Tokens, properties: deps.Properties}

	return materialize(materializer.New[*PropertyFactoryCreate](cfg.Name, deps.DB, h,
		cfg.BatchSize, deps.Maintenance, deps.Log)), nil
}

func newPropertyBalanceJob(cfg config.JobConfig, deps job.Deps) (job.Job, error) {
	if deps.Tokens == nil {
		return nil, fmt.Errorf("%s needs a property token reader", cfg.Name)
	}

	h := withdrawBalanceHandler{newBalanceRegenerator(deps)}

	return materialize(materializer.New[*WithdrawPropertyTransfer](cfg.Name, deps.DB, h,
		cfg.BatchSize, deps.Maintenance, deps.Log)), nil
}

func newPropertyBalanceByTransferJob(cfg config.JobConfig, deps job.Deps) (job.Job, error) {
	if deps.Tokens == nil {
		return nil, fmt.Errorf("%s needs a property token reader", cfg.Name)
	}

	h := creationBalanceHandler{newBalanceRegenerator(deps)}

	return materialize(materializer.New[*PropertyMeta](cfg.Name, deps.DB, h,
		cfg.BatchSize, deps.Maintenance, deps.Log)), nil
}

func newPropertyAuthorUpdateJob(cfg config.JobConfig, deps job.Deps) (job.Job, error) {
	if deps.Tokens == nil {
		return nil, fmt.Errorf("%s needs a property token reader", cfg.Name)
	}

	h := authorUpdateHandler{newBalanceRegenerator(deps)}

	return materialize(materializer.New[*PropertyFactoryChangeAuthor](cfg.Name, deps.DB, h,
		cfg.BatchSize, deps.Maintenance, deps.Log)), nil
}
