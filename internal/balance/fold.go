package balance

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Transfer is one token movement.
type Transfer struct {
	From        common.Address
	To          common.Address
	Value       decimal.Decimal
	BlockNumber uint64
}

// Result holds the folded balance and last touching block of every address.
type Result struct {
	Balances   map[common.Address]decimal.Decimal
	LastBlocks map[common.Address]uint64
}

// Fold reconstructs per-address balances from a transfer history.
// Transfers sent by mintSender are mints: they are applied first, in their
// relative order, and set the receiver's balance. The remaining transfers then
// subtract from the sender, which may go negative when the history is partial,
// and add to the receiver.
func Fold(transfers []Transfer, mintSender common.Address) Result {
	res := Result{
		Balances:   make(map[common.Address]decimal.Decimal),
		LastBlocks: make(map[common.Address]uint64),
	}

	var moves []Transfer
	for _, t := range transfers {
		if t.From != mintSender {
			moves = append(moves, t)
			continue
		}

		res.Balances[t.To] = t.Value
		res.LastBlocks[t.To] = t.BlockNumber
	}

	for _, t := range moves {
		res.Balances[t.From] = res.Balances[t.From].Sub(t.Value)
		res.LastBlocks[t.From] = t.BlockNumber

		res.Balances[t.To] = res.Balances[t.To].Add(t.Value)
		res.LastBlocks[t.To] = t.BlockNumber
	}

	return res
}
