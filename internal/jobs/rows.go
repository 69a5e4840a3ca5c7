package jobs

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Raw event rows. Every table shares the event header columns followed by the decoded arguments.

type DevPropertyTransfer struct {
	EventID          string          `meddler:"event_id"`
	BlockNumber      uint64          `meddler:"block_number"`
	LogIndex         uint            `meddler:"log_index"`
	TransactionIndex uint            `meddler:"transaction_index"`
	TransactionHash  common.Hash     `meddler:"transaction_hash,hash"`
	From             common.Address  `meddler:"from_address,address"`
	To               common.Address  `meddler:"to_address,address"`
	Value            decimal.Decimal `meddler:"value"`
	IsLockup         bool            `meddler:"is_lockup"`
	RawData          string          `meddler:"raw_data"`
}

type LockupLockedup struct {
	EventID          string          `meddler:"event_id"`
	BlockNumber      uint64          `meddler:"block_number"`
	LogIndex         uint            `meddler:"log_index"`
	TransactionIndex uint            `meddler:"transaction_index"`
	TransactionHash  common.Hash     `meddler:"transaction_hash,hash"`
	From             common.Address  `meddler:"from_address,address"`
	Property         common.Address  `meddler:"property,address"`
	TokenValue       decimal.Decimal `meddler:"token_value"`
	RawData          string          `meddler:"raw_data"`
}

type WithdrawPropertyTransfer struct {
	EventID          string         `meddler:"event_id"`
	BlockNumber      uint64         `meddler:"block_number"`
	LogIndex         uint           `meddler:"log_index"`
	TransactionIndex uint           `meddler:"transaction_index"`
	TransactionHash  common.Hash    `meddler:"transaction_hash,hash"`
	PropertyAddress  common.Address `meddler:"property_address,address"`
	From             common.Address `meddler:"from_address,address"`
	To               common.Address `meddler:"to_address,address"`
	RawData          string         `meddler:"raw_data"`
}

func (w *WithdrawPropertyTransfer) GetBlockNumber() uint64 {
	return w.BlockNumber
}

type PropertyFactoryCreate struct {
	EventID          string         `meddler:"event_id"`
	BlockNumber      uint64         `meddler:"block_number"`
	LogIndex         uint           `meddler:"log_index"`
	TransactionIndex uint           `meddler:"transaction_index"`
	TransactionHash  common.Hash    `meddler:"transaction_hash,hash"`
	From             common.Address `meddler:"from_address,address"`
	Property         common.Address `meddler:"property,address"`
	RawData          string         `meddler:"raw_data"`
}

func (p *PropertyFactoryCreate) GetBlockNumber() uint64 {
	return p.BlockNumber
}

type PropertyFactoryChangeAuthor struct {
	EventID          string         `meddler:"event_id"`
	BlockNumber      uint64         `meddler:"block_number"`
	LogIndex         uint           `meddler:"log_index"`
	TransactionIndex uint           `meddler:"transaction_index"`
	TransactionHash  common.Hash    `meddler:"transaction_hash,hash"`
	Property         common.Address `meddler:"property,address"`
	BeforeAuthor     common.Address `meddler:"before_author,address"`
	AfterAuthor      common.Address `meddler:"after_author,address"`
	RawData          string         `meddler:"raw_data"`
}

func (p *PropertyFactoryChangeAuthor) GetBlockNumber() uint64 {
	return p.BlockNumber
}

type MetricsFactoryEvent struct {
	EventID          string         `meddler:"event_id"`
	BlockNumber      uint64         `meddler:"block_number"`
	LogIndex         uint           `meddler:"log_index"`
	TransactionIndex uint           `meddler:"transaction_index"`
	TransactionHash  common.Hash    `meddler:"transaction_hash,hash"`
	From             common.Address `meddler:"from_address,address"`
	Metrics          common.Address `meddler:"metrics,address"`
	RawData          string         `meddler:"raw_data"`
}

type PropertyDirectoryFactoryCreate struct {
	EventID           string         `meddler:"event_id"`
	BlockNumber       uint64         `meddler:"block_number"`
	LogIndex          uint           `meddler:"log_index"`
	TransactionIndex  uint           `meddler:"transaction_index"`
	TransactionHash   common.Hash    `meddler:"transaction_hash,hash"`
	PropertyDirectory common.Address `meddler:"property_directory,address"`
	Author            common.Address `meddler:"author,address"`
	Name              string         `meddler:"name"`
	Symbol            string         `meddler:"symbol"`
	RawData           string         `meddler:"raw_data"`
}

// PropertyDirectoryFactoryRecreate records a directory replaced by a new deployment.
type PropertyDirectoryFactoryRecreate struct {
	EventID          string         `meddler:"event_id"`
	BlockNumber      uint64         `meddler:"block_number"`
	LogIndex         uint           `meddler:"log_index"`
	TransactionIndex uint           `meddler:"transaction_index"`
	TransactionHash  common.Hash    `meddler:"transaction_hash,hash"`
	Old              common.Address `meddler:"old_directory,address"`
	New              common.Address `meddler:"new_directory,address"`
	RawData          string         `meddler:"raw_data"`
}

type PairTransfer struct {
	EventID          string          `meddler:"event_id"`
	BlockNumber      uint64          `meddler:"block_number"`
	LogIndex         uint            `meddler:"log_index"`
	TransactionIndex uint            `meddler:"transaction_index"`
	TransactionHash  common.Hash     `meddler:"transaction_hash,hash"`
	From             common.Address  `meddler:"from_address,address"`
	To               common.Address  `meddler:"to_address,address"`
	TokenValue       decimal.Decimal `meddler:"token_value"`
	RawData          string          `meddler:"raw_data"`
}

type PairMint struct {
	EventID          string          `meddler:"event_id"`
	BlockNumber      uint64          `meddler:"block_number"`
	LogIndex         uint            `meddler:"log_index"`
	TransactionIndex uint            `meddler:"transaction_index"`
	TransactionHash  common.Hash     `meddler:"transaction_hash,hash"`
	Sender           common.Address  `meddler:"sender,address"`
	Amount0          decimal.Decimal `meddler:"amount0"`
	Amount1          decimal.Decimal `meddler:"amount1"`
	RawData          string          `meddler:"raw_data"`
}

// PropertyMeta is the static description of a property token.
type PropertyMeta struct {
	Property    common.Address  `meddler:"property,address"`
	Author      common.Address  `meddler:"author,address"`
	Sender      common.Address  `meddler:"sender,address"`
	Name        string          `meddler:"name"`
	Symbol      string          `meddler:"symbol"`
	TotalSupply decimal.Decimal `meddler:"total_supply"`
	BlockNumber uint64          `meddler:"block_number"`
}

func (p *PropertyMeta) GetBlockNumber() uint64 {
	return p.BlockNumber
}
